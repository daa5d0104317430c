// Package convert maps stored users to the directory's wire records.
package convert

import (
	"slices"
	"time"

	"github.com/and161185/user-admin/internal/model"
)

// LastLoginLayout is the wire format of lastLogin.
const LastLoginLayout = time.RFC3339

func formatTime(t *time.Time, layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(layout)
}

// ToRecord converts a stored user into its public record.
func ToRecord(u model.User) model.UserRecord {
	return model.UserRecord{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		RoleNames: nonNil(u.Roles),
		Active:    u.Active,
		IsDelete:  u.Deleted,
		LastLogin: formatTime(u.LastLogin, LastLoginLayout),
		Avatar:    u.Avatar,
		Phone:     u.Phone,
		Dob:       formatTime(u.Dob, model.DateLayout),
	}
}

// ToRecords converts a page of users.
func ToRecords(us []model.User) []model.UserRecord {
	out := make([]model.UserRecord, 0, len(us))
	for _, u := range us {
		out = append(out, ToRecord(u))
	}
	return out
}

// ToCurrentUser converts the session owner into the myInfo snapshot.
func ToCurrentUser(u model.User) model.CurrentUser {
	return model.CurrentUser{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		RoleNames: nonNil(u.Roles),
		Avatar:    u.Avatar,
	}
}

// ToPage assembles the list response for page/limit.
func ToPage(us []model.User, total, page, limit int) model.Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return model.Page{
		Content:       ToRecords(us),
		TotalElements: total,
		TotalPages:    pages,
		Page:          page,
		Size:          limit,
	}
}

// ParseDate parses an optional YYYY-MM-DD value; empty yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return slices.Clone(roles)
}
