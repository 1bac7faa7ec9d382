// Package preview holds a dataset under review before it is bound to an
// analysis tab. The user narrows it by toggling columns and filtering rows,
// then confirms, which hands the reduced dataset back to whoever opened the
// preview. Nothing is applied until that confirmation.
package preview

import (
	"iter"
	"strconv"
	"strings"
	"sync"

	"medstat/domain/dataset"
)

// ApplyFunc receives the confirmed selection. It is called at most once per Open.
type ApplyFunc func(result *dataset.Dataset)

// ColumnState is one column of the preview with its inclusion flag
type ColumnState struct {
	Name     string             `json:"name"`
	Type     dataset.ColumnType `json:"type"`
	Included bool               `json:"included"`
}

// Filter is the row filter: a case-insensitive substring and an inclusive
// 1-based row range
type Filter struct {
	Search  string `json:"search"`
	FromRow int    `json:"from_row"`
	ToRow   int    `json:"to_row"`
}

// Store is the preview/filter state for one browser session. The zero value
// is an idle store. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	ds       *dataset.Dataset
	label    string
	onApply  ApplyFunc
	included []bool
	filter   Filter

	// haystack holds each row's values joined and lower-cased, built on Open
	haystack []string
	matches  []int
}

// New returns an idle store
func New() *Store {
	return &Store{}
}

// Open starts a preview of ds, replacing any previous one. The previous
// callback is dropped without being called. A nil dataset is ignored; cells
// absent from a record are filled with the empty value.
func (s *Store) Open(ds *dataset.Dataset, label string, onApply ApplyFunc) {
	if ds == nil {
		return
	}
	ds.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ds = ds
	s.label = label
	s.onApply = onApply
	s.included = make([]bool, len(ds.Columns))
	for i := range s.included {
		s.included[i] = true
	}

	s.haystack = make([]string, len(ds.Rows))
	var b strings.Builder
	for i, rec := range ds.Rows {
		b.Reset()
		for j, col := range ds.Columns {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(rec[col.Name])
		}
		s.haystack[i] = strings.ToLower(b.String())
	}

	s.filter = Filter{FromRow: 1, ToRow: len(ds.Rows)}
	s.recompute()
}

// Active reports whether a preview is open
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds != nil
}

// Label returns the display label passed to Open
func (s *Store) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// ToggleColumn flips the inclusion flag of the named column. Unknown names are ignored.
func (s *Store) ToggleColumn(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return
	}
	for i, col := range s.ds.Columns {
		if col.Name == name {
			s.included[i] = !s.included[i]
			return
		}
	}
}

// SetAllColumns includes or excludes every column
func (s *Store) SetAllColumns(included bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.included {
		s.included[i] = included
	}
}

// SetFilter updates the row filter. fromRow and toRow come straight from form
// input: blank or non-numeric values fall back to the first and last row, and
// numbers are clamped to the row range. A from greater than to matches nothing.
func (s *Store) SetFilter(search, fromRow, toRow string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return
	}

	total := len(s.ds.Rows)
	s.filter = Filter{
		Search:  search,
		FromRow: clampRow(parseRow(fromRow, 1), total),
		ToRow:   clampRow(parseRow(toRow, total), total),
	}
	s.recompute()
}

// ClearFilter resets the search and the row range
func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return
	}
	s.filter = Filter{FromRow: 1, ToRow: len(s.ds.Rows)}
	s.recompute()
}

// Filter returns the current row filter
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// MatchCount returns the number of rows passing the filter
func (s *Store) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// Columns returns the columns with their inclusion flags in dataset order
func (s *Store) Columns() []ColumnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnsLocked()
}

// VisibleRows yields the 0-based indices of matching rows, at most limit of
// them. Each iteration reads the state current at that moment, so the same
// sequence can be ranged over again after the filter changes.
func (s *Store) VisibleRows(limit int) iter.Seq[int] {
	return func(yield func(int) bool) {
		s.mu.Lock()
		n := min(max(limit, 0), len(s.matches))
		rows := make([]int, n)
		copy(rows, s.matches[:n])
		s.mu.Unlock()

		for _, idx := range rows {
			if !yield(idx) {
				return
			}
		}
	}
}

// ConfirmSelection builds the filtered dataset (included columns of matching
// rows, original order kept), closes the store and then hands the result to
// the callback given to Open. It returns the result and false when no
// preview is open.
func (s *Store) ConfirmSelection() (*dataset.Dataset, bool) {
	s.mu.Lock()
	if s.ds == nil {
		s.mu.Unlock()
		return nil, false
	}
	result := s.buildResult()
	onApply := s.onApply
	s.resetLocked()
	s.mu.Unlock()

	// Called without the lock so the callback may reopen the store.
	if onApply != nil {
		onApply(result)
	}
	return result, true
}

// Cancel closes the store without calling the callback
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Result returns the filtered dataset without closing the store
func (s *Store) Result() (*dataset.Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, false
	}
	return s.buildResult(), true
}

func (s *Store) buildResult() *dataset.Dataset {
	var cols []dataset.Column
	for i, col := range s.ds.Columns {
		if s.included[i] {
			cols = append(cols, col)
		}
	}

	rows := make([]dataset.Record, 0, len(s.matches))
	for _, idx := range s.matches {
		src := s.ds.Rows[idx]
		rec := make(dataset.Record, len(cols))
		for _, col := range cols {
			rec[col.Name] = src[col.Name]
		}
		rows = append(rows, rec)
	}

	if cols == nil {
		cols = []dataset.Column{}
	}
	return &dataset.Dataset{
		Name:    s.ds.Name,
		Source:  s.ds.Source,
		Columns: cols,
		Rows:    rows,
	}
}

func (s *Store) recompute() {
	s.matches = s.matches[:0]
	if s.filter.FromRow < 1 || s.filter.FromRow > s.filter.ToRow {
		return
	}
	needle := strings.ToLower(s.filter.Search)
	for i := s.filter.FromRow - 1; i < s.filter.ToRow; i++ {
		if needle != "" && !strings.Contains(s.haystack[i], needle) {
			continue
		}
		s.matches = append(s.matches, i)
	}
}

func (s *Store) columnsLocked() []ColumnState {
	if s.ds == nil {
		return nil
	}
	out := make([]ColumnState, len(s.ds.Columns))
	for i, col := range s.ds.Columns {
		out[i] = ColumnState{Name: col.Name, Type: col.Type, Included: s.included[i]}
	}
	return out
}

func (s *Store) resetLocked() {
	s.ds = nil
	s.label = ""
	s.onApply = nil
	s.included = nil
	s.filter = Filter{}
	s.haystack = nil
	s.matches = nil
}

func parseRow(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func clampRow(n, total int) int {
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}
