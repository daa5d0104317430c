// Package directory is the REST client for the remote user directory. It is the only
// place where transport failures become errs.Fault values.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

const maxBody = 4 << 20

// Header names carrying the credential.
const (
	HeaderAPIToken  = "x-api-token"
	HeaderRequestID = "X-Request-ID"
)

// TokenSource yields the credential to attach, if one is held.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to the directory over HTTP/JSON.
type Client struct {
	base   *url.URL
	hc     *http.Client
	tokens TokenSource
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// New builds a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, log *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		base:   u,
		hc:     &http.Client{Timeout: DefaultTimeout},
		tokens: tokens,
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call performs one request and decodes the envelope result into out (when non-nil).
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	rid := uuid.Must(uuid.NewV4()).String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, rid)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set(HeaderAPIToken, tok)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("request_id", rid), zap.Error(err))
		return errs.Classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errs.Classify(err)
	}
	c.log.Debug("request done", zap.String("method", method), zap.String("path", path),
		zap.String("request_id", rid), zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	var env model.Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr != nil {
			return errs.FromResponse(resp.StatusCode, 0, "")
		}
		return errs.FromResponse(resp.StatusCode, env.Code, env.Message)
	}
	if decodeErr != nil {
		return errs.Classify(decodeErr)
	}
	if env.Code != 0 && env.Code != errs.CodeOK {
		return errs.FromResponse(resp.StatusCode, env.Code, env.Message)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return errs.Classify(err)
	}
	return nil
}

func userPath(prefix, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errs.Validation(errors.New("user id is required"))
	}
	if strings.ContainsAny(id, "/?#") {
		return "", errs.Validation(fmt.Errorf("malformed user id %q", id))
	}
	return prefix + id, nil
}
