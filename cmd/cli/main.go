// Command ua is the administrative console for the user directory.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/and161185/user-admin/internal/directory"
	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/session"
	"github.com/and161185/user-admin/internal/table"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `ua - user directory console
Usage:
  ua [-api URL] [-timeout 10s] [-debug] <cmd> [args]

Account:
  version
  register      -name <full name> -email <email> [-password <pw>] [-phone <phone>]
  login         [-email <email>] [-password <pw>] [-remember]
  logout
  refresh-token
  send-email    -email <email>                  (resend activation link)
  activate      -token <token>
  me

Users:
  list     [-page 1] [-limit 5] [-search <term>] [-by name|email|id]
           [-sort name|email|lastLogin] [-order asc|desc]
           [-role Admin,User,Editor] [-status Active,Inactive,Locked] [-json]
  get      -id <id>
  create   -name <full name> -email <email> -password <pw> [-roles User] [-active]
           [-phone <phone>] [-dob YYYY-MM-DD] [-avatar <url>]
  update   -id <id> [-name ..] [-email ..] [-phone ..] [-dob ..] [-roles ..] [-avatar ..]
  passwd   [-id <id>] [-old <pw>] -new <pw>      (default id: yourself)
  delete   -id <id> [-yes]
  toggle   -id <id> [-yes]                        (lock an active user, unlock otherwise)
  shell                                           (interactive table)
`)
	os.Exit(2)
}

// lockedWriter serializes writes from the renderer, notifier and prompts.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// app bundles the console's collaborators for one invocation.
type app struct {
	dir    *directory.Client
	holder *session.Holder
	latch  *table.AuthLatch
	log    *zap.Logger
	lang   language.Tag

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// redirectDelay leaves the shell's last notification readable before it closes on an
// expired session.
const redirectDelay = time.Second

func newApp(apiBase string, timeout time.Duration, store session.Store, log *zap.Logger, in io.Reader, out, errOut io.Writer) (*app, error) {
	holder := session.NewHolder(store, log, session.WithDelay(redirectDelay))
	dir, err := directory.New(apiBase, holder, log, directory.WithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return &app{
		dir:    dir,
		holder: holder,
		latch:  &table.AuthLatch{},
		log:    log,
		lang:   langFromEnv(),
		in:     bufio.NewReader(in),
		out:    &lockedWriter{w: out},
		errOut: &lockedWriter{w: errOut},
	}, nil
}

// langFromEnv picks the collation language from LC_ALL/LANG (e.g. "de_DE.UTF-8").
func langFromEnv() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v, _, _ = strings.Cut(v, ".")
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.Und
}

// run dispatches one subcommand.
func (a *app) run(ctx context.Context, args []string) error {
	cmds := map[string]func(context.Context, []string) error{
		"register":      a.cmdRegister,
		"login":         a.cmdLogin,
		"logout":        a.cmdLogout,
		"refresh-token": a.cmdRefresh,
		"send-email":    a.cmdSendEmail,
		"activate":      a.cmdActivate,
		"me":            a.cmdMe,
		"list":          a.cmdList,
		"get":           a.cmdGet,
		"create":        a.cmdCreate,
		"update":        a.cmdUpdate,
		"passwd":        a.cmdPasswd,
		"delete":        a.cmdDelete,
		"toggle":        a.cmdToggle,
		"shell":         a.cmdShell,
	}
	fn, ok := cmds[args[0]]
	if !ok {
		return errUnknownCommand
	}
	err := fn(ctx, args[1:])
	if errs.IsAuth(err) {
		// the holder's own invalidation waits out redirectDelay; drop the dead token now
		a.latch.CancelInvalidation()
		_ = a.holder.Clear()
	}
	return err
}

var errUnknownCommand = errors.New("unknown command")

// main parses global flags and dispatches the subcommand.
func main() {
	api := flag.String("api", envOr("UA_API_BASE_URL", "http://localhost:8080"), "directory base URL")
	timeout := flag.Duration("timeout", directory.DefaultTimeout, "per-request timeout")
	debug := flag.Bool("debug", false, "log to stderr")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	if flag.Arg(0) == "version" {
		fmt.Printf("ua %s (%s)\n", version, buildDate)
		return
	}

	log := zap.NewNop()
	if *debug {
		log, _ = zap.NewDevelopment()
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(*api, *timeout, session.NewFileStore(session.DefaultDir()), log, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fail(err)
	}
	if err := a.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUnknownCommand) {
			usage()
		}
		fail(err)
	}
}

// ---- helpers ----

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// reported marks an error the notifier has already shown.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// describe renders err for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "not logged in: run `ua login`"
	case errs.IsAuth(err):
		return "session expired or access denied: run `ua login` again"
	}
	var f *errs.Fault
	if errors.As(err, &f) {
		return fmt.Sprintf("%s error: %s", f.Kind, f.Message)
	}
	return err.Error()
}

func fail(err error) {
	var r reported
	if !errors.As(err, &r) {
		fmt.Fprintln(os.Stderr, describe(err))
	}
	os.Exit(1)
}
