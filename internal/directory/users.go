package directory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/user-admin/internal/model"
)

// List fetches one page of users.
func (c *Client) List(ctx context.Context, q model.ListQuery) (model.Page, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Search != "" {
		v.Set("search", q.Search)
		if q.SearchBy != "" {
			v.Set("searchBy", q.SearchBy)
		}
	}
	var p model.Page
	err := c.call(ctx, http.MethodGet, "/user/pagnition", v, nil, &p)
	return p, err
}

func (c *Client) Get(ctx context.Context, id string) (model.UserRecord, error) {
	var u model.UserRecord
	path, err := userPath("/user/", id)
	if err != nil {
		return u, err
	}
	err = c.call(ctx, http.MethodGet, path, nil, nil, &u)
	return u, err
}

// MyInfo returns the identity of the session owner.
func (c *Client) MyInfo(ctx context.Context) (model.CurrentUser, error) {
	var u model.CurrentUser
	err := c.call(ctx, http.MethodGet, "/user/myInfo", nil, nil, &u)
	return u, err
}

func (c *Client) Create(ctx context.Context, p model.UserPayload) (model.UserRecord, error) {
	var u model.UserRecord
	err := c.call(ctx, http.MethodPost, "/user/create", nil, p, &u)
	return u, err
}

func (c *Client) Update(ctx context.Context, id string, upd model.UserUpdate) (model.UserRecord, error) {
	var u model.UserRecord
	path, err := userPath("/user/update/", id)
	if err != nil {
		return u, err
	}
	err = c.call(ctx, http.MethodPut, path, nil, upd, &u)
	return u, err
}

// SetActive locks (false) or unlocks (true) an account.
func (c *Client) SetActive(ctx context.Context, id string, active bool) (model.UserRecord, error) {
	var u model.UserRecord
	path, err := userPath("/user/update/", id)
	if err != nil {
		return u, err
	}
	err = c.call(ctx, http.MethodPut, path, nil, model.StatusPatch{Active: active}, &u)
	return u, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	path, err := userPath("/user/delete/", id)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, id string, ch model.PasswordChange) error {
	path, err := userPath("/user/update-pass/", id)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, path, nil, ch, nil)
}
