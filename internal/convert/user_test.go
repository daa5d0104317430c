package convert

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/user-admin/internal/model"
)

func TestToRecord(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	login := time.Date(2025, 6, 1, 8, 30, 0, 0, time.FixedZone("ICT", 7*3600))
	dob := time.Date(1990, 2, 3, 0, 0, 0, 0, time.UTC)

	rec := ToRecord(model.User{
		ID: id, Email: "a@example.com", FullName: "A", Roles: []string{model.RoleEditor},
		Active: true, Deleted: true, LastLogin: &login, Dob: &dob, Phone: "0901234567",
	})
	require.Equal(t, model.UserRecord{
		ID: id.String(), FullName: "A", Email: "a@example.com", RoleNames: []string{model.RoleEditor},
		Active: true, IsDelete: true, LastLogin: "2025-06-01T01:30:00Z", Phone: "0901234567", Dob: "1990-02-03",
	}, rec)

	empty := ToRecord(model.User{ID: id})
	require.Empty(t, empty.LastLogin)
	require.Empty(t, empty.Dob)
	require.NotNil(t, empty.RoleNames)
}

func TestToPage(t *testing.T) {
	t.Parallel()
	p := ToPage([]model.User{{ID: uuid.Must(uuid.NewV4())}}, 23, 5, 5)
	require.Equal(t, 23, p.TotalElements)
	require.Equal(t, 5, p.TotalPages)
	require.Equal(t, 5, p.Page)
	require.Len(t, p.Content, 1)

	require.Zero(t, ToPage(nil, 0, 1, 5).TotalPages)
	require.NotNil(t, ToPage(nil, 0, 1, 5).Content)
}

func TestToCurrentUser(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	cu := ToCurrentUser(model.User{ID: id, FullName: "Admin", Roles: []string{model.RoleAdmin}})
	require.True(t, cu.IsAdmin())
	require.Equal(t, id.String(), cu.ID)
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	d, err := ParseDate("")
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = ParseDate("2000-12-31")
	require.NoError(t, err)
	require.Equal(t, 2000, d.Year())

	_, err = ParseDate("31/12/2000")
	require.Error(t, err)
}
