package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/session"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// askPassword falls back to reading the password from the terminal.
func (a *app) askPassword(pw string) (string, error) {
	if pw != "" {
		return pw, nil
	}
	return prompt(a.in, a.out, "Password: ")
}

func (a *app) requireSession() error {
	if _, ok := a.holder.Token(); !ok {
		return session.ErrNoSession
	}
	return nil
}

// cmdLogin stores the token and the current user snapshot.
func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "email (default: remembered email)")
	pw := fs.String("password", "", "password (prompted when empty)")
	remember := fs.Bool("remember", false, "remember the email for the next login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		*email = a.holder.RememberedEmail()
	}
	if *email == "" {
		var err error
		if *email, err = prompt(a.in, a.out, "Email: "); err != nil {
			return err
		}
	}
	password, err := a.askPassword(*pw)
	if err != nil {
		return err
	}
	cr := model.Credentials{Email: strings.TrimSpace(*email), Password: password}
	if err := cr.Validate(); err != nil {
		return errs.Validation(err)
	}

	tok, err := a.dir.Login(ctx, cr)
	if err != nil {
		return err
	}
	if err := a.holder.Set(tok); err != nil {
		return err
	}
	a.latch.Reset()
	me, err := a.dir.MyInfo(ctx)
	if err != nil {
		return err
	}
	if err := a.holder.SetUser(me); err != nil {
		a.log.Warn("user snapshot not saved", zap.Error(err))
	}
	if *remember {
		if err := a.holder.Remember(cr.Email); err != nil {
			a.log.Warn("email not remembered", zap.Error(err))
		}
	}
	fmt.Fprintf(a.out, "logged in as %s <%s>\n", me.FullName, me.Email)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := a.flags("register")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "password (prompted when empty)")
	phone := fs.String("phone", "", "phone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	password, err := a.askPassword(*pw)
	if err != nil {
		return err
	}
	req := model.RegisterRequest{FullName: *name, Email: *email, Password: password, Phone: *phone}
	if err := req.Validate(); err != nil {
		return errs.Validation(err)
	}
	rec, err := a.dir.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s; check %s for the activation link\n", rec.ID, rec.Email)
	return nil
}

// cmdLogout revokes the token server side and always clears the local session.
func (a *app) cmdLogout(ctx context.Context, _ []string) error {
	if tok, ok := a.holder.Token(); ok {
		if err := a.dir.Logout(ctx, tok); err != nil {
			a.log.Warn("server logout failed", zap.Error(err))
		}
	}
	if err := a.holder.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *app) cmdRefresh(ctx context.Context, _ []string) error {
	tok, ok := a.holder.Token()
	if !ok {
		return session.ErrNoSession
	}
	fresh, err := a.dir.RefreshToken(ctx, tok)
	if err != nil {
		return err
	}
	if err := a.holder.Set(fresh); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "token refreshed, valid until %s\n", a.holder.Credential().ExpiresAt.Format(lastLoginLayout))
	return nil
}

func (a *app) cmdSendEmail(ctx context.Context, args []string) error {
	fs := a.flags("send-email")
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errs.Validation(errors.New("email: cannot be blank"))
	}
	if err := a.dir.SendEmail(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "activation link sent")
	return nil
}

func (a *app) cmdActivate(ctx context.Context, args []string) error {
	fs := a.flags("activate")
	token := fs.String("token", "", "activation token from the link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*token) == "" {
		return errs.Validation(errors.New("token: cannot be blank"))
	}
	if err := a.dir.Activate(ctx, *token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "account activated; you can log in now")
	return nil
}

func (a *app) cmdMe(ctx context.Context, _ []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	me, err := a.dir.MyInfo(ctx)
	if err != nil {
		return err
	}
	if err := a.holder.SetUser(me); err != nil {
		a.log.Warn("user snapshot not saved", zap.Error(err))
	}
	printJSON(a.out, me)
	return nil
}
