package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/table"
)

// ------- wiring -------

func (a *app) notifier() printNotifier { return printNotifier{out: a.out, errOut: a.errOut} }

func (a *app) orchestrator() *table.Orchestrator {
	return table.NewOrchestrator(a.dir, a.latch, a.holder, a.notifier(), a.log, table.WithLanguage(a.lang))
}

// coordinator builds a mutation coordinator; refresh may be nil for one-shot commands.
func (a *app) coordinator(refresh table.Refresher, assumeYes bool) *table.Coordinator {
	confirm := &promptConfirmer{in: a.in, out: a.out, assumeYes: assumeYes}
	return table.NewCoordinator(a.dir, confirm, refresh, a.latch, a.holder, a.notifier(), a.log)
}

// settle turns a coordinator outcome into the command result.
func (a *app) settle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, table.ErrCancelled) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	var f *errs.Fault
	if errors.As(err, &f) && f.Kind != errs.KindAuth && f.Kind != errs.KindValidation {
		return reported{err}
	}
	return err
}

// bootstrap loads the current user and the first page concurrently.
func (a *app) bootstrap(ctx context.Context, orch *table.Orchestrator, q table.Query) (model.CurrentUser, error) {
	var (
		me  model.CurrentUser
		res table.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = a.dir.MyInfo(gctx)
		return err
	})
	g.Go(func() error {
		res = orch.Refresh(gctx, q)
		return nil
	})
	if err := g.Wait(); err != nil {
		return me, err
	}
	if err := a.holder.SetUser(me); err != nil {
		a.log.Warn("user snapshot not saved", zap.Error(err))
	}
	switch res {
	case table.ResultApplied:
		return me, nil
	case table.ResultAuthFault, table.ResultSuppressed:
		return me, errs.ErrUnauthorized
	}
	return me, reported{fmt.Errorf("list: %s", res)}
}

func needID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Validation(errors.New("id: cannot be blank"))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildQuery assembles a table query from list flags. Search and size changes reset the
// page, so the page is applied last.
func buildQuery(page, size int, search, by, sortCol, order, roles, statuses string) (table.Query, error) {
	q := table.DefaultQuery()
	var err error
	if search != "" {
		if q, err = q.WithSearch(table.Column(by), search); err != nil {
			return q, err
		}
	}
	if q, err = q.WithFilter(table.ColRole, splitList(roles)); err != nil {
		return q, err
	}
	if q, err = q.WithFilter(table.ColStatus, splitList(statuses)); err != nil {
		return q, err
	}
	if sortCol != "" {
		dir, err := table.ParseSortDir(order)
		if err != nil {
			return q, err
		}
		if dir == table.SortNone {
			dir = table.SortAsc
		}
		if q, err = q.WithSort(table.Column(sortCol), dir); err != nil {
			return q, err
		}
	}
	if q, err = q.WithPage(1, size, -1); err != nil {
		return q, err
	}
	return q.WithPage(page, size, -1)
}

// ------- read commands -------

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := a.flags("list")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("limit", table.DefaultPageSize, "page size (5, 10, 20 or 50)")
	search := fs.String("search", "", "search term")
	by := fs.String("by", string(table.ColName), "search column: name, email or id")
	sortCol := fs.String("sort", "", "sort column: name, email or lastLogin")
	order := fs.String("order", "asc", "sort order: asc or desc")
	roles := fs.String("role", "", "role filter, comma separated")
	statuses := fs.String("status", "", "status filter, comma separated")
	asJSON := fs.Bool("json", false, "print the visible rows as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	q, err := buildQuery(*page, *size, *search, *by, *sortCol, *order, *roles, *statuses)
	if err != nil {
		return errs.Validation(err)
	}

	orch := a.orchestrator()
	if _, err := a.bootstrap(ctx, orch, q); err != nil {
		return err
	}
	v := orch.View()
	if *asJSON {
		printJSON(a.out, v.Visible)
		return nil
	}
	renderView(a.out, v)
	return nil
}

func (a *app) cmdGet(ctx context.Context, args []string) error {
	fs := a.flags("get")
	id := fs.String("id", "", "user id")
	asJSON := fs.Bool("json", false, "print the raw record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := needID(*id); err != nil {
		return err
	}
	rec, err := a.dir.Get(ctx, *id)
	if err != nil {
		return err
	}
	if *asJSON {
		printJSON(a.out, rec)
		return nil
	}
	renderRecord(a.out, rec)
	return nil
}

// ------- mutations -------

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := a.flags("create")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "initial password")
	phone := fs.String("phone", "", "phone")
	dob := fs.String("dob", "", "date of birth, YYYY-MM-DD")
	roles := fs.String("roles", model.RoleUser, "roles, comma separated")
	active := fs.Bool("active", false, "create the account already active")
	avatar := fs.String("avatar", "", "avatar URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	p := model.UserPayload{
		FullName:  *name,
		Email:     *email,
		Password:  *pw,
		Phone:     *phone,
		Dob:       *dob,
		RoleNames: splitList(*roles),
		Active:    *active,
		Avatar:    *avatar,
	}
	return a.settle(a.coordinator(nil, true).Create(ctx, p))
}

// updateFromFlags fills only the fields whose flags were given.
func updateFromFlags(fs *flag.FlagSet) model.UserUpdate {
	var upd model.UserUpdate
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
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
		}
	})
	return upd
}

func (a *app) cmdUpdate(ctx context.Context, args []string) error {
	fs := a.flags("update")
	id := fs.String("id", "", "user id")
	fs.String("name", "", "full name")
	fs.String("email", "", "email")
	fs.String("phone", "", "phone")
	fs.String("dob", "", "date of birth, YYYY-MM-DD")
	fs.String("roles", "", "roles, comma separated")
	fs.String("avatar", "", "avatar URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := needID(*id); err != nil {
		return err
	}
	upd := updateFromFlags(fs)
	if upd == (model.UserUpdate{}) {
		return errs.Validation(errors.New("nothing to update"))
	}
	return a.settle(a.coordinator(nil, true).Update(ctx, *id, upd))
}

func (a *app) cmdPasswd(ctx context.Context, args []string) error {
	fs := a.flags("passwd")
	id := fs.String("id", "", "user id (default: yourself)")
	old := fs.String("old", "", "current password, required for your own account")
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	target := *id
	if target == "" {
		me, ok := a.holder.User()
		if !ok {
			return errs.Validation(errors.New("id: unknown current user, pass -id"))
		}
		target = me.ID
	}
	ch := model.PasswordChange{OldPassword: *old, NewPassword: *next}
	return a.settle(a.coordinator(nil, true).UpdatePassword(ctx, target, ch))
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	id := fs.String("id", "", "user id")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := needID(*id); err != nil {
		return err
	}
	return a.settle(a.coordinator(nil, *yes).Delete(ctx, *id))
}

// cmdToggle reads the user's current status first so the action matches what a row shows.
func (a *app) cmdToggle(ctx context.Context, args []string) error {
	fs := a.flags("toggle")
	id := fs.String("id", "", "user id")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := needID(*id); err != nil {
		return err
	}
	rec, err := a.dir.Get(ctx, *id)
	if err != nil {
		return err
	}
	return a.settle(a.coordinator(nil, *yes).Dispatch(ctx, table.Action{
		Op:     table.OpToggle,
		UserID: rec.ID,
		Status: table.NewRow(rec).Status,
	}))
}
