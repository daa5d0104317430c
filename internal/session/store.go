package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/user-admin/internal/model"
)

// ErrNoSession is returned when no usable credential is stored.
var ErrNoSession = errors.New("no valid token (login required)")

// Credential is a stored access token and the expiry read from its exp claim.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the credential is present and not expired at now.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Store persists session state between console runs.
type Store interface {
	LoadCredential() (Credential, error)
	SaveCredential(c Credential) error
	LoadUser() (model.CurrentUser, error)
	SaveUser(u model.CurrentUser) error
	LoadRememberedEmail() (string, error)
	SaveRememberedEmail(email string) error
	Clear() error
}

// FileStore keeps the session in a per-user config directory.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// DefaultDir is $XDG_CONFIG_HOME/user-admin, falling back to ~/.config/user-admin.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "user-admin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "user-admin")
}

// NewFileStore returns a store rooted at dir; empty dir means DefaultDir().
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileStore{dir: dir}
}

// Dir returns the store root.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) tokenPath() string    { return filepath.Join(s.dir, "token.json") }
func (s *FileStore) userPath() string     { return filepath.Join(s.dir, "user.json") }
func (s *FileStore) rememberPath() string { return filepath.Join(s.dir, "remember_email") }

func (s *FileStore) LoadCredential() (Credential, error) {
	var c Credential
	if err := s.readJSON(s.tokenPath(), &c); err != nil {
		return Credential{}, err
	}
	if c.AccessToken == "" {
		return Credential{}, ErrNoSession
	}
	return c, nil
}

func (s *FileStore) SaveCredential(c Credential) error {
	return s.writeJSON(s.tokenPath(), c)
}

func (s *FileStore) LoadUser() (model.CurrentUser, error) {
	var u model.CurrentUser
	err := s.readJSON(s.userPath(), &u)
	return u, err
}

func (s *FileStore) SaveUser(u model.CurrentUser) error {
	return s.writeJSON(s.userPath(), u)
}

func (s *FileStore) LoadRememberedEmail() (string, error) {
	b, err := os.ReadFile(s.rememberPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) SaveRememberedEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		err := os.Remove(s.rememberPath())
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.rememberPath(), []byte(email), 0o600)
}

// Clear removes every session file. Missing files are not an error.
func (s *FileStore) Clear() error {
	var errList []error
	for _, p := range []string{s.tokenPath(), s.userPath(), s.rememberPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

func (s *FileStore) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
