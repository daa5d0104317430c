package directory

import (
	"context"
	"net/http"
	"net/url"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

type tokenBody struct {
	Token string `json:"token"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, cr model.Credentials) (string, error) {
	var res model.AuthResult
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, cr, &res); err != nil {
		return "", err
	}
	if !res.Authenticated || res.Token == "" {
		return "", &errs.Fault{Kind: errs.KindAuth, Message: "authentication failed", Code: errs.CodeUnauthenticated}
	}
	return res.Token, nil
}

func (c *Client) Register(ctx context.Context, r model.RegisterRequest) (model.UserRecord, error) {
	var u model.UserRecord
	err := c.call(ctx, http.MethodPost, "/auth/register", nil, r, &u)
	return u, err
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, tokenBody{Token: token}, nil)
}

// RefreshToken trades token for a new one; the old one stops working.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	var res model.AuthResult
	if err := c.call(ctx, http.MethodPost, "/auth/refresh-token", nil, tokenBody{Token: token}, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", &errs.Fault{Kind: errs.KindAuth, Message: "token not refreshed", Code: errs.CodeInvalidToken}
	}
	return res.Token, nil
}

// SendEmail asks the directory to (re)send the activation mail.
func (c *Client) SendEmail(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodGet, "/send-email", url.Values{"email": {email}}, nil, nil)
}

// Activate confirms an account with the token from the activation mail.
func (c *Client) Activate(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodGet, "/user/active", url.Values{"token": {token}}, nil, nil)
}
