package table

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Project applies q's filters and sort to rows and returns a new slice.
func Project(rows []ViewRow, q Query, lang language.Tag) []ViewRow {
	out := make([]ViewRow, 0, len(rows))
	for _, r := range rows {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	if q.SortColumn == "" || q.SortDir == SortNone {
		return out
	}
	cmp := comparator(q.SortColumn, lang)
	if cmp == nil {
		return out
	}
	if q.SortDir == SortDesc {
		asc := cmp
		cmp = func(a, b ViewRow) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func comparator(col Column, lang language.Tag) func(a, b ViewRow) int {
	spec, ok := Lookup(col)
	if !ok || !spec.Sortable {
		return nil
	}
	if spec.Chronological {
		return func(a, b ViewRow) int { return a.LastLoginAt.Compare(b.LastLoginAt) }
	}
	// A Collator keeps internal buffers; one per sort keeps Project safe for concurrent use.
	coll := collate.New(lang)
	switch col {
	case ColEmail:
		return func(a, b ViewRow) int { return coll.CompareString(a.Email, b.Email) }
	default:
		return func(a, b ViewRow) int { return coll.CompareString(a.Name, b.Name) }
	}
}
