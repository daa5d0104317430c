package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/table"
)

func TestRenderView(t *testing.T) {
	t.Parallel()

	rows := table.Rows([]model.UserRecord{
		{ID: "u-1", FullName: "Ann", Email: "ann@example.com", RoleNames: []string{"Admin", "User"}, Active: true},
		{ID: "u-2", Email: "bob@example.com", IsDelete: true, LastLogin: "garbage"},
		{ID: "u-3", FullName: "Cid", RoleNames: []string{"Admin"}, LastLogin: "2024-05-01T10:00:00Z"},
	})
	q, err := table.DefaultQuery().WithFilter(table.ColRole, []string{"Admin"})
	require.NoError(t, err)
	q, err = q.WithSort(table.ColName, table.SortDesc)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderView(&buf, table.View{
		Query:   q,
		Rows:    rows,
		Visible: table.Project(rows, q, language.Und),
		Stats:   table.Compute(rows),
		Total:   12,
		Ready:   true,
	})
	out := buf.String()

	require.Contains(t, out, "Users: 3  Active: 1  Inactive: 1  Locked: 1")
	require.Contains(t, out, "Applied: role=Admin, sort name desc")
	require.Contains(t, out, "[Admin] [User]")
	require.NotContains(t, out, "bob@example.com", "filtered out")
	require.Less(t, strings.Index(out, "Cid"), strings.Index(out, "Ann"), "descending by name")
	require.Contains(t, out, "never")
	require.Contains(t, out, "Page 1 of 3 (5 per page)  Total 12 users")
}

func TestRenderView_EmptyAndLoading(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderView(&buf, table.View{})
	require.Equal(t, "loading...\n", buf.String())

	buf.Reset()
	renderView(&buf, table.View{Query: table.DefaultQuery(), Ready: true})
	require.Contains(t, buf.String(), "No users")
	require.Contains(t, buf.String(), "Page 1 of 1 (5 per page)  Total 0 users")
}

func TestRenderRecord_FallbackName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderRecord(&buf, model.UserRecord{ID: "u-9", Email: "x@example.com", Phone: "090 123-4567", LastLogin: "garbage"})
	out := buf.String()
	require.Contains(t, out, "x@example.com")
	require.Contains(t, out, "Inactive")
	require.Contains(t, out, "garbage", "unparseable timestamps are shown as sent")
	require.Contains(t, out, table.DefaultAvatar)
	require.Contains(t, out, "090 123-4567")
}

func TestPromptConfirmer(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false, "maybe\n": false}
	for in, want := range cases {
		var out bytes.Buffer
		c := &promptConfirmer{in: bufio.NewReader(strings.NewReader(in)), out: &out}
		require.Equal(t, want, c.Confirm(context.Background(), "Delete user u-1?"), "%q", in)
		require.Equal(t, "Delete user u-1? [y/N]: ", out.String())
	}

	c := &promptConfirmer{assumeYes: true}
	require.True(t, c.Confirm(context.Background(), "anything"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c = &promptConfirmer{in: bufio.NewReader(strings.NewReader("y\n")), out: &bytes.Buffer{}}
	require.False(t, c.Confirm(ctx, "Delete?"))
}
