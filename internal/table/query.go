package table

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/and161185/user-admin/internal/model"
)

// SortDir is a column sort direction.
type SortDir int

const (
	SortNone SortDir = iota
	SortAsc
	SortDesc
)

func (d SortDir) String() string {
	switch d {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return "none"
	}
}

// ParseSortDir accepts asc/ascend, desc/descend and none/"".
func ParseSortDir(s string) (SortDir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascend":
		return SortAsc, nil
	case "desc", "descend":
		return SortDesc, nil
	case "", "none":
		return SortNone, nil
	}
	return SortNone, fmt.Errorf("bad sort direction %q", s)
}

// Page sizes offered by the pagination control.
var PageSizes = []int{5, 10, 20, 50}

const DefaultPageSize = 5

// ErrPageSize is returned for a page size outside PageSizes.
var ErrPageSize = errors.New("page size not allowed")

// Query is the complete description of the view the user wants. It is a value: every
// With* method returns a modified copy and never touches the receiver.
type Query struct {
	Page        int
	Size        int
	SearchTerm  string
	SearchField Column
	Filters     map[Column][]string
	SortColumn  Column
	SortDir     SortDir
}

// DefaultQuery is the state at mount: first page, default size, nothing applied.
func DefaultQuery() Query {
	return Query{Page: 1, Size: DefaultPageSize}
}

// Clone returns a deep copy.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[Column][]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = slices.Clone(v)
		}
	}
	return out
}

// ListQuery is the directory request for q. Filters and sort are applied to the returned page.
func (q Query) ListQuery() model.ListQuery {
	lq := model.ListQuery{Page: q.Page, Limit: q.Size}
	if q.SearchTerm != "" && q.SearchField != "" {
		lq.Search = q.SearchTerm
		lq.SearchBy = string(q.SearchField)
	}
	return lq
}

// WithSearch commits term as the search on col and returns to the first page.
// An empty term clears the search.
func (q Query) WithSearch(col Column, term string) (Query, error) {
	if _, err := lookupWith(col, func(s ColumnSpec) bool { return s.Searchable }, "searchable"); err != nil {
		return q, err
	}
	out := q.Clone()
	term = strings.TrimSpace(term)
	if term == "" {
		out.SearchTerm, out.SearchField = "", ""
	} else {
		out.SearchTerm, out.SearchField = term, col
	}
	out.Page = 1
	return out, nil
}

// SameResults reports whether q and o select the same records, ignoring page, size and sort.
func (q Query) SameResults(o Query) bool {
	return q.SearchTerm == o.SearchTerm && q.SearchField == o.SearchField &&
		maps.EqualFunc(q.Filters, o.Filters, func(a, b []string) bool { return slices.Equal(a, b) })
}

// WithoutSearch drops the committed search when it targets col.
func (q Query) WithoutSearch(col Column) Query {
	out := q.Clone()
	if out.SearchField == col {
		out.SearchTerm, out.SearchField = "", ""
	}
	return out
}

// WithFilter replaces the accepted values for col. An empty set removes the filter.
func (q Query) WithFilter(col Column, values []string) (Query, error) {
	spec, err := lookupWith(col, func(s ColumnSpec) bool { return len(s.Filters) > 0 }, "filterable")
	if err != nil {
		return q, err
	}
	for _, v := range values {
		if !spec.accepts(v) {
			return q, fmt.Errorf("column %q does not accept %q", col, v)
		}
	}
	out := q.Clone()
	if len(values) == 0 {
		delete(out.Filters, col)
		return out, nil
	}
	if out.Filters == nil {
		out.Filters = map[Column][]string{}
	}
	vals := slices.Clone(values)
	slices.Sort(vals)
	out.Filters[col] = slices.Compact(vals)
	return out, nil
}

// WithoutFilters clears column filters and the search, keeping sort.
func (q Query) WithoutFilters() Query {
	out := q.Clone()
	out.Filters = nil
	out.SearchTerm, out.SearchField = "", ""
	return out
}

// Cleared clears filters, search and sort.
func (q Query) Cleared() Query {
	out := q.WithoutFilters()
	out.SortColumn, out.SortDir = "", SortNone
	return out
}

// WithSort makes col the only sorted column. SortNone clears sorting.
func (q Query) WithSort(col Column, dir SortDir) (Query, error) {
	out := q.Clone()
	if dir == SortNone {
		out.SortColumn, out.SortDir = "", SortNone
		return out, nil
	}
	if _, err := lookupWith(col, func(s ColumnSpec) bool { return s.Sortable }, "sortable"); err != nil {
		return q, err
	}
	out.SortColumn, out.SortDir = col, dir
	return out, nil
}

// WithSortToggled cycles col through asc → desc → none. Another column's sort is replaced.
func (q Query) WithSortToggled(col Column) (Query, error) {
	next := SortAsc
	if q.SortColumn == col {
		switch q.SortDir {
		case SortAsc:
			next = SortDesc
		case SortDesc:
			next = SortNone
		}
	}
	return q.WithSort(col, next)
}

// WithPage moves to page/size. A size change resets to the first page; otherwise the
// page is clamped to the last page of total (total < 0 means unknown).
func (q Query) WithPage(page, size, total int) (Query, error) {
	if !slices.Contains(PageSizes, size) {
		return q, fmt.Errorf("%w: %d", ErrPageSize, size)
	}
	out := q.Clone()
	if size != q.Size {
		out.Size, out.Page = size, 1
		return out, nil
	}
	if total >= 0 {
		page = min(page, LastPage(total, size))
	}
	out.Page = max(page, 1)
	return out, nil
}

// LastPage is the number of the last page for total records; 1 for an empty set.
func LastPage(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Matches reports whether row passes every column filter of q.
func (q Query) Matches(row ViewRow) bool {
	for col, accepted := range q.Filters {
		if len(accepted) == 0 {
			continue
		}
		switch col {
		case ColRole:
			if !slices.ContainsFunc(row.Roles, func(r string) bool { return slices.Contains(accepted, r) }) {
				return false
			}
		case ColStatus:
			if !slices.Contains(accepted, string(row.Status)) {
				return false
			}
		}
	}
	return true
}
