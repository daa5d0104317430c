package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/table"
)

// printNotifier writes notifications as single lines.
type printNotifier struct {
	out, errOut io.Writer
}

var _ table.Notifier = printNotifier{}

func (n printNotifier) Success(msg string) { fmt.Fprintln(n.out, "ok: "+msg) }
func (n printNotifier) Error(msg string)   { fmt.Fprintln(n.errOut, "error: "+msg) }

// promptConfirmer asks on out and reads y/N from in. assumeYes skips the prompt.
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

var _ table.Confirmer = (*promptConfirmer)(nil)

func (c *promptConfirmer) Confirm(ctx context.Context, prompt string) bool {
	if c.assumeYes {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// prompt reads one line from in after printing label.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

const lastLoginLayout = "2006-01-02 15:04"

func lastLogin(r table.ViewRow) string {
	switch {
	case !r.LastLoginAt.IsZero():
		return r.LastLoginAt.In(time.Local).Format(lastLoginLayout)
	case r.LastLogin != "":
		return r.LastLogin
	}
	return "never"
}

func roleTags(roles []string) string {
	if len(roles) == 0 {
		return "-"
	}
	tags := make([]string, len(roles))
	for i, r := range roles {
		tags[i] = "[" + r + "]"
	}
	return strings.Join(tags, " ")
}

// describeQuery summarizes the applied search, filters and sort, or "" when none apply.
func describeQuery(q table.Query) string {
	var parts []string
	if q.SearchTerm != "" {
		parts = append(parts, fmt.Sprintf("search %s~%q", q.SearchField, q.SearchTerm))
	}
	cols := make([]string, 0, len(q.Filters))
	for c := range q.Filters {
		cols = append(cols, string(c))
	}
	sort.Strings(cols)
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=%s", c, strings.Join(q.Filters[table.Column(c)], "|")))
	}
	if q.SortColumn != "" && q.SortDir != table.SortNone {
		parts = append(parts, fmt.Sprintf("sort %s %s", q.SortColumn, q.SortDir))
	}
	return strings.Join(parts, ", ")
}

// renderView prints the statistics cards, the table and the pagination summary.
func renderView(w io.Writer, v table.View) {
	if !v.Ready {
		fmt.Fprintln(w, "loading...")
		return
	}
	fmt.Fprintf(w, "Users: %d  Active: %d  Inactive: %d  Locked: %d\n",
		v.Stats.Total, v.Stats.Active, v.Stats.Inactive, v.Stats.Locked)
	if d := describeQuery(v.Query); d != "" {
		fmt.Fprintln(w, "Applied: "+d)
	}

	if len(v.Visible) == 0 {
		fmt.Fprintln(w, "No users")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSER\tEMAIL\tROLE\tSTATUS\tLAST LOGIN")
		for _, r := range v.Visible {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Email, roleTags(r.Roles), r.Status, lastLogin(r))
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "Page %d of %d (%d per page)  Total %d users\n",
		v.Query.Page, table.LastPage(v.Total, v.Query.Size), v.Query.Size, v.Total)
}

// renderRecord prints a single user as a key/value block.
func renderRecord(w io.Writer, rec model.UserRecord) {
	r := table.NewRow(rec)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Name\t%s\n", r.Name)
	fmt.Fprintf(tw, "Email\t%s\n", r.Email)
	fmt.Fprintf(tw, "Roles\t%s\n", roleTags(r.Roles))
	fmt.Fprintf(tw, "Status\t%s\n", r.Status)
	fmt.Fprintf(tw, "Last login\t%s\n", lastLogin(r))
	if rec.Phone != "" {
		fmt.Fprintf(tw, "Phone\t%s\n", rec.Phone)
	}
	if rec.Dob != "" {
		fmt.Fprintf(tw, "Born\t%s\n", rec.Dob)
	}
	fmt.Fprintf(tw, "Avatar\t%s\n", r.Avatar)
	_ = tw.Flush()
}
