package httpserver

import (
	"context"

	"github.com/and161185/user-admin/internal/model"
)

type ctxKey string

const userKey ctxKey = "ua.user"

// WithUser stores the authenticated caller in context.
func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated caller.
func UserFromCtx(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey).(model.User)
	return u, ok
}
