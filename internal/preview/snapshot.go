package preview

// Row is one visible row of a snapshot. Index is 1-based so it lines up with
// the row range the user types.
type Row struct {
	Index  int      `json:"index"`
	Values []string `json:"values"`
}

// Snapshot is the view model of the preview panel
type Snapshot struct {
	Active        bool          `json:"active"`
	Label         string        `json:"label,omitempty"`
	TotalRows     int           `json:"total_rows"`
	MatchCount    int           `json:"match_count"`
	IncludedCount int           `json:"included_count"`
	Columns       []ColumnState `json:"columns"`
	Filter        Filter        `json:"filter"`
	Rows          []Row         `json:"rows"`
	Truncated     bool          `json:"truncated"`
}

// Snapshot captures the current state with at most limit visible rows. Row
// values cover every column so toggled-off columns can still be shown dimmed.
func (s *Store) Snapshot(limit int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return Snapshot{Columns: []ColumnState{}, Rows: []Row{}}
	}

	snap := Snapshot{
		Active:     true,
		Label:      s.label,
		TotalRows:  len(s.ds.Rows),
		MatchCount: len(s.matches),
		Columns:    s.columnsLocked(),
		Filter:     s.filter,
	}
	for _, inc := range s.included {
		if inc {
			snap.IncludedCount++
		}
	}

	n := min(max(limit, 0), len(s.matches))
	snap.Truncated = n < len(s.matches)
	snap.Rows = make([]Row, 0, n)
	for _, idx := range s.matches[:n] {
		rec := s.ds.Rows[idx]
		values := make([]string, len(s.ds.Columns))
		for j, col := range s.ds.Columns {
			values[j] = rec[col.Name]
		}
		snap.Rows = append(snap.Rows, Row{Index: idx + 1, Values: values})
	}
	return snap
}
