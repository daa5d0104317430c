package table

import (
	"strings"
	"time"

	"github.com/and161185/user-admin/internal/model"
)

// Status is the computed display status of a user.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusLocked   Status = "Locked"
)

// Derive maps (isDelete, active) to a display status. Soft-deleted users are Locked.
func Derive(isDelete, active bool) Status {
	switch {
	case isDelete:
		return StatusLocked
	case !active:
		return StatusInactive
	default:
		return StatusActive
	}
}

const (
	DefaultAvatar = "https://www.gravatar.com/avatar/?d=mp"
	unknownName   = "Unknown user"
)

// ViewRow is one rendered user. Rows are rebuilt on every successful fetch.
type ViewRow struct {
	ID          string
	Name        string
	Email       string
	Roles       []string
	Status      Status
	LastLogin   string
	LastLoginAt time.Time // zero when absent or unparseable
	Avatar      string
}

// NewRow derives the row for one directory record.
func NewRow(rec model.UserRecord) ViewRow {
	name := strings.TrimSpace(rec.FullName)
	if name == "" {
		name = rec.Email
	}
	if name == "" {
		name = unknownName
	}
	avatar := rec.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	return ViewRow{
		ID:          rec.ID,
		Name:        name,
		Email:       rec.Email,
		Roles:       append([]string(nil), rec.RoleNames...),
		Status:      Derive(rec.IsDelete, rec.Active),
		LastLogin:   rec.LastLogin,
		LastLoginAt: ParseTimestamp(rec.LastLogin),
		Avatar:      avatar,
	}
}

// Rows maps records one to one.
func Rows(recs []model.UserRecord) []ViewRow {
	rows := make([]ViewRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, NewRow(r))
	}
	return rows
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	model.DateLayout,
}

// ParseTimestamp parses a last-login value; anything unusable yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Stats are aggregate counts over one record set.
// Active+Inactive+Locked always equals Total.
type Stats struct {
	Total    int
	Active   int
	Inactive int
	Locked   int
}

// Compute classifies rows.
func Compute(rows []ViewRow) Stats {
	var s Stats
	for _, r := range rows {
		s.Total++
		switch r.Status {
		case StatusActive:
			s.Active++
		case StatusInactive:
			s.Inactive++
		case StatusLocked:
			s.Locked++
		}
	}
	return s
}

// View is one published, immutable state of the table.
type View struct {
	Epoch Epoch
	// Query is the query whose response produced Rows.
	Query Query
	// Rows holds the whole fetched page; Stats are computed over it.
	Rows []ViewRow
	// Visible is Rows after column filters and sort.
	Visible []ViewRow
	Stats   Stats
	// Total is the server-reported number of matching users.
	Total   int
	Loading bool
	// Ready is false until the first successful fetch.
	Ready     bool
	UpdatedAt time.Time
}

func (v View) clone() View {
	out := v
	out.Query = v.Query.Clone()
	out.Rows = append([]ViewRow(nil), v.Rows...)
	out.Visible = append([]ViewRow(nil), v.Visible...)
	return out
}
