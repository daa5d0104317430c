package table

import (
	"fmt"

	"github.com/and161185/user-admin/internal/model"
)

// Column is a table column key. Search keys are sent to the directory as searchBy.
type Column string

const (
	ColID        Column = "id"
	ColName      Column = "name"
	ColEmail     Column = "email"
	ColRole      Column = "role"
	ColStatus    Column = "status"
	ColLastLogin Column = "lastLogin"
)

// ColumnSpec describes what a column supports.
type ColumnSpec struct {
	Key        Column
	Title      string
	Searchable bool
	Sortable   bool
	// Chronological columns sort by parsed timestamp instead of collation.
	Chronological bool
	// Filters lists the accepted filter values; empty means the column is not filterable.
	Filters []string
}

// Columns is the user table's column model, in display order.
var Columns = []ColumnSpec{
	{Key: ColID, Title: "ID", Searchable: true},
	{Key: ColName, Title: "User", Searchable: true, Sortable: true},
	{Key: ColEmail, Title: "Email", Searchable: true, Sortable: true},
	{Key: ColRole, Title: "Role", Filters: model.Roles},
	{Key: ColStatus, Title: "Status", Filters: []string{string(StatusActive), string(StatusInactive), string(StatusLocked)}},
	{Key: ColLastLogin, Title: "Last login", Sortable: true, Chronological: true},
}

// Lookup returns the spec for a column key.
func Lookup(c Column) (ColumnSpec, bool) {
	for _, spec := range Columns {
		if spec.Key == c {
			return spec, true
		}
	}
	return ColumnSpec{}, false
}

func (s ColumnSpec) accepts(v string) bool {
	for _, f := range s.Filters {
		if f == v {
			return true
		}
	}
	return false
}

func lookupWith(c Column, ok func(ColumnSpec) bool, what string) (ColumnSpec, error) {
	spec, found := Lookup(c)
	if !found {
		return ColumnSpec{}, fmt.Errorf("unknown column %q", c)
	}
	if !ok(spec) {
		return ColumnSpec{}, fmt.Errorf("column %q is not %s", c, what)
	}
	return spec, nil
}
