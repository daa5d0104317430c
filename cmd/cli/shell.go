package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/session"
	"github.com/and161185/user-admin/internal/table"
)

const shellHelp = `Commands:
  show | refresh
  search <name|email|id> <term>    commit a search now
  type <name|email|id> <text>      stage a search; it commits after a short pause
  reset <name|email|id>            clear that search
  filter <role|status> [v1,v2]     accepted values; no values removes the filter
  clear | clearall                 clear filters and search (clearall also drops sort)
  sort <name|email|lastLogin>      cycle asc, desc, none
  page <n> | next | prev | size <5|10|20|50>
  edit <id> key=value...           keys: name email phone dob avatar roles active
  toggle <id> | delete <id>
  passwd <id> <new password>
  me | help | quit`

// lineConfirmer answers prompts from the shell's input stream.
type lineConfirmer struct {
	lines <-chan string
	out   io.Writer
}

var _ table.Confirmer = (*lineConfirmer)(nil)

func (c *lineConfirmer) Confirm(ctx context.Context, prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	select {
	case <-ctx.Done():
		return false
	case line, ok := <-c.lines:
		if !ok {
			return false
		}
		ans := strings.ToLower(strings.TrimSpace(line))
		return ans == "y" || ans == "yes"
	}
}

// shell is the interactive dashboard: one table, one coordinator, one input stream.
type shell struct {
	a     *app
	orch  *table.Orchestrator
	t     *table.Table
	coord *table.Coordinator
	me    model.CurrentUser
}

func (a *app) cmdShell(ctx context.Context, args []string) error {
	fs := a.flags("shell")
	size := fs.Int("limit", table.DefaultPageSize, "page size (5, 10, 20 or 50)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	q, err := table.DefaultQuery().WithPage(1, *size, -1)
	if err != nil {
		return errs.Validation(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	expired := make(chan session.Event, 1)
	a.holder.Subscribe(func(ev session.Event) {
		select {
		case expired <- ev:
		default:
		}
		cancel()
	})

	orch := a.orchestrator()
	me, err := a.bootstrap(ctx, orch, q)
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	t := table.NewTable(ctx, orch, a.log, table.WithQuery(q))
	defer t.Close()
	sh := &shell{
		a:    a,
		orch: orch,
		t:    t,
		coord: table.NewCoordinator(a.dir, &lineConfirmer{lines: lines, out: a.out}, t,
			a.latch, a.holder, a.notifier(), a.log),
		me: me,
	}
	orch.Subscribe(func(v table.View) {
		if !v.Loading {
			renderView(a.out, v)
		}
	})

	role := ""
	if me.IsAdmin() {
		role = " (admin)"
	}
	fmt.Fprintf(a.out, "signed in as %s%s; type help for commands\n", me.FullName, role)
	renderView(a.out, orch.View())

	for {
		fmt.Fprint(a.out, "> ")
		select {
		case <-ctx.Done():
			select {
			case ev := <-expired:
				a.log.Sugar().Infof("shell closed: %s", ev.Reason)
				return errs.ErrUnauthorized
			default:
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				return a.leaveShell()
			}
			if sh.exec(ctx, line) {
				return a.leaveShell()
			}
		}
	}
}

// leaveShell stops a session drop that is still waiting out its delay. The session is
// dead, so the caller clears it before exiting.
func (a *app) leaveShell() error {
	if a.latch.CancelInvalidation() {
		return errs.ErrUnauthorized
	}
	return nil
}

// exec runs one shell line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		renderView(s.a.out, s.orch.View())
		return false
	}
	cmd, args := fields[0], fields[1:]
	rest := func(i int) string { return strings.Join(args[i:], " ") }

	var err error
	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.a.out, shellHelp)
	case "show":
		renderView(s.a.out, s.orch.View())
	case "refresh":
		s.t.Refresh()
	case "me":
		printJSON(s.a.out, s.me)
	case "search", "type":
		if len(args) < 2 {
			err = errUsage(cmd + " <column> <term>")
			break
		}
		if cmd == "search" {
			err = s.t.ConfirmSearch(table.Column(args[0]), rest(1))
		} else {
			err = s.t.StageSearch(table.Column(args[0]), rest(1))
		}
	case "reset":
		if len(args) != 1 {
			err = errUsage("reset <column>")
			break
		}
		s.t.ResetSearch(table.Column(args[0]))
	case "filter":
		if len(args) == 0 {
			err = errUsage("filter <column> [v1,v2]")
			break
		}
		err = s.t.SetFilter(table.Column(args[0]), splitList(rest(1)))
	case "clear":
		s.t.ClearFilters()
	case "clearall":
		s.t.ClearAll()
	case "sort":
		if len(args) != 1 {
			err = errUsage("sort <column>")
			break
		}
		err = s.t.ToggleSort(table.Column(args[0]))
	case "page", "next", "prev", "size":
		err = s.paginate(cmd, args)
	case "edit":
		err = s.edit(ctx, args)
	case "toggle":
		if len(args) != 1 {
			err = errUsage("toggle <id>")
			break
		}
		err = s.toggle(ctx, args[0])
	case "delete":
		if len(args) != 1 {
			err = errUsage("delete <id>")
			break
		}
		err = s.a.settle(s.coord.Dispatch(ctx, table.Action{Op: table.OpDelete, UserID: args[0]}))
	case "passwd":
		if len(args) != 2 {
			err = errUsage("passwd <id> <new password>")
			break
		}
		err = s.a.settle(s.coord.UpdatePassword(ctx, args[0], model.PasswordChange{NewPassword: args[1]}))
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintln(s.a.errOut, "error: "+describe(err))
		}
	}
	return false
}

func errUsage(u string) error { return errors.New("usage: " + u) }

func (s *shell) paginate(cmd string, args []string) error {
	q := s.t.Query()
	page, size := q.Page, q.Size
	switch cmd {
	case "next":
		page++
	case "prev":
		page--
	case "page", "size":
		if len(args) != 1 {
			return errUsage(cmd + " <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errUsage(cmd + " <n>")
		}
		if cmd == "page" {
			page = n
		} else {
			size = n
		}
	}
	return s.t.ChangePage(page, size)
}

// rowStatus returns the displayed status of id, asking the directory when the row is not on screen.
func (s *shell) rowStatus(ctx context.Context, id string) (table.Status, error) {
	for _, r := range s.orch.View().Rows {
		if r.ID == id {
			return r.Status, nil
		}
	}
	rec, err := s.a.dir.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return table.NewRow(rec).Status, nil
}

func (s *shell) toggle(ctx context.Context, id string) error {
	st, err := s.rowStatus(ctx, id)
	if err != nil {
		return err
	}
	return s.a.settle(s.coord.Dispatch(ctx, table.Action{Op: table.OpToggle, UserID: id, Status: st}))
}

// parseEdit turns key=value pairs into a partial update.
func parseEdit(pairs []string) (model.UserUpdate, error) {
	var upd model.UserUpdate
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return upd, fmt.Errorf("expected key=value, got %q", p)
		}
		switch k {
		case "name":
			upd.FullName = &v
		case "email":
			upd.Email = &v
		case "phone":
			upd.Phone = &v
		case "dob":
			upd.Dob = &v
		case "avatar":
			upd.Avatar = &v
		case "roles":
			roles := splitList(v)
			upd.RoleNames = &roles
		case "active":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return upd, fmt.Errorf("active: %w", err)
			}
			upd.Active = &b
		default:
			return upd, fmt.Errorf("unknown field %q", k)
		}
	}
	if upd == (model.UserUpdate{}) {
		return upd, errors.New("nothing to update")
	}
	return upd, nil
}

func (s *shell) edit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage("edit <id> key=value...")
	}
	upd, err := parseEdit(args[1:])
	if err != nil {
		return errs.Validation(err)
	}
	return s.a.settle(s.coord.Dispatch(ctx, table.Action{Op: table.OpEdit, UserID: args[0], Update: &upd}))
}
