package forms

import (
	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

// TTestForm compares two groups either from a value column split by a group
// column, or from two manually entered samples
type TTestForm struct {
	ValueColumn string `json:"value_column"`
	GroupColumn string `json:"group_column" validate:"required_with=ValueColumn"`
	// Group1Label and Group2Label pick two levels when the group column has more
	Group1Label string `json:"group1_label"`
	Group2Label string `json:"group2_label" validate:"required_with=Group1Label"`

	Group1 []float64 `json:"group1"`
	Group2 []float64 `json:"group2"`

	Paired   bool `json:"paired"`
	EqualVar bool `json:"equal_var"`
}

func (f *TTestForm) Kind() analysis.Kind { return analysis.KindTTest }

// Samples returns the two groups and their labels without building a request
func (f *TTestForm) Samples(ds *dataset.Dataset) ([][]float64, []string, error) {
	if err := check(f); err != nil {
		return nil, nil, err
	}

	if f.ValueColumn == "" {
		if len(f.Group1) == 0 && len(f.Group2) == 0 {
			return nil, nil, errors.ValidationError("select a value column or enter both groups")
		}
		return [][]float64{f.Group1, f.Group2}, []string{"Group 1", "Group 2"}, nil
	}

	if err := requireDataset(ds); err != nil {
		return nil, nil, err
	}
	if err := requireColumns(ds, f.ValueColumn, f.GroupColumn); err != nil {
		return nil, nil, err
	}

	names := []string{f.Group1Label, f.Group2Label}
	if f.Group1Label == "" {
		lv := levels(ds, f.GroupColumn)
		if len(lv) != 2 {
			return nil, nil, errors.ValidationErrorf(
				"group column %q has %d levels; choose the two groups to compare", f.GroupColumn, len(lv))
		}
		names = lv
	}
	if names[0] == names[1] {
		return nil, nil, errors.ValidationError("choose two different groups")
	}

	groups := make([][]float64, 2)
	for i := range ds.Rows {
		v, ok := ds.Float(i, f.ValueColumn)
		if !ok {
			continue
		}
		switch ds.Value(i, f.GroupColumn) {
		case names[0]:
			groups[0] = append(groups[0], v)
		case names[1]:
			groups[1] = append(groups[1], v)
		}
	}
	return groups, names, nil
}

func (f *TTestForm) Build(ds *dataset.Dataset) (any, error) {
	groups, _, err := f.Samples(ds)
	if err != nil {
		return nil, err
	}
	if len(groups[0]) < 2 || len(groups[1]) < 2 {
		return nil, errors.ValidationError("each group must have at least 2 observations")
	}
	if f.Paired && len(groups[0]) != len(groups[1]) {
		return nil, errors.ValidationError("paired samples need the same number of observations in both groups")
	}
	return analysis.TTestRequest{
		Group1:   groups[0],
		Group2:   groups[1],
		Paired:   f.Paired,
		EqualVar: f.EqualVar,
	}, nil
}

// AnovaForm splits a value column by a group column with two or more levels
type AnovaForm struct {
	ValueColumn string `json:"value_column" validate:"required"`
	GroupColumn string `json:"group_column" validate:"required,nefield=ValueColumn"`
}

func (f *AnovaForm) Kind() analysis.Kind { return analysis.KindAnova }

func (f *AnovaForm) Build(ds *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if err := requireDataset(ds); err != nil {
		return nil, err
	}
	if err := requireColumns(ds, f.ValueColumn, f.GroupColumn); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var req analysis.AnovaRequest
	for i := range ds.Rows {
		v, ok := ds.Float(i, f.ValueColumn)
		if !ok {
			continue
		}
		g := ds.Value(i, f.GroupColumn)
		if g == "" {
			continue
		}
		k, ok := index[g]
		if !ok {
			k = len(req.Groups)
			index[g] = k
			req.Groups = append(req.Groups, nil)
			req.GroupNames = append(req.GroupNames, g)
		}
		req.Groups[k] = append(req.Groups[k], v)
	}

	if len(req.Groups) == 0 {
		return nil, errors.ValidationError("no valid data rows found")
	}
	if len(req.Groups) < 2 {
		return nil, errors.ValidationError("need at least 2 groups")
	}
	for _, g := range req.Groups {
		if len(g) < 2 {
			return nil, errors.ValidationError("each group must have at least 2 observations")
		}
	}
	return req, nil
}

// ChiSquareForm cross-tabulates two dataset columns or takes a manual
// contingency table
type ChiSquareForm struct {
	RowColumn string `json:"row_column"`
	ColColumn string `json:"col_column" validate:"required_with=RowColumn"`

	Observed [][]int  `json:"observed"`
	RowNames []string `json:"row_names"`
	ColNames []string `json:"col_names"`

	// YatesCorrection defaults to true when omitted
	YatesCorrection *bool `json:"yates_correction"`
}

func (f *ChiSquareForm) Kind() analysis.Kind { return analysis.KindChiSquare }

func (f *ChiSquareForm) Build(ds *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	req := analysis.ChiSquareRequest{YatesCorrection: true}
	if f.YatesCorrection != nil {
		req.YatesCorrection = *f.YatesCorrection
	}

	if f.RowColumn != "" {
		if f.RowColumn == f.ColColumn {
			return nil, errors.ValidationError("row and column variables must differ")
		}
		if err := requireDataset(ds); err != nil {
			return nil, err
		}
		if err := requireColumns(ds, f.RowColumn, f.ColColumn); err != nil {
			return nil, err
		}
		req.Observed, req.RowNames, req.ColNames = crossTab(ds, f.RowColumn, f.ColColumn)
	} else {
		if len(f.Observed) == 0 {
			return nil, errors.ValidationError("select two columns or enter a contingency table")
		}
		width := len(f.Observed[0])
		for _, row := range f.Observed {
			if len(row) != width {
				return nil, errors.ValidationError("every table row must have the same number of cells")
			}
			for _, n := range row {
				if n < 0 {
					return nil, errors.ValidationError("cell counts must be non-negative")
				}
			}
		}
		if len(f.RowNames) > 0 && len(f.RowNames) != len(f.Observed) {
			return nil, errors.ValidationError("row_names must name every table row")
		}
		if len(f.ColNames) > 0 && len(f.ColNames) != width {
			return nil, errors.ValidationError("col_names must name every table column")
		}
		req.Observed, req.RowNames, req.ColNames = f.Observed, f.RowNames, f.ColNames
	}

	if len(req.Observed) < 2 || len(req.Observed[0]) < 2 {
		return nil, errors.ValidationError("table must be at least 2x2")
	}
	return req, nil
}

// crossTab counts co-occurrences of two columns, levels in first-seen order
func crossTab(ds *dataset.Dataset, rowCol, colCol string) ([][]int, []string, []string) {
	rows := levels(ds, rowCol)
	cols := levels(ds, colCol)
	ri := make(map[string]int, len(rows))
	for i, v := range rows {
		ri[v] = i
	}
	ci := make(map[string]int, len(cols))
	for i, v := range cols {
		ci[v] = i
	}

	table := make([][]int, len(rows))
	for i := range table {
		table[i] = make([]int, len(cols))
	}
	for i := range ds.Rows {
		r, c := ds.Value(i, rowCol), ds.Value(i, colCol)
		if r == "" || c == "" {
			continue
		}
		table[ri[r]][ci[c]]++
	}
	if len(cols) == 0 {
		return nil, rows, cols
	}
	return table, rows, cols
}

// SampleSizeForm holds the power calculation inputs. Zero alpha, power and
// ratio take the usual defaults of 0.05, 0.80 and 1.
type SampleSizeForm struct {
	Test       string   `json:"test" validate:"omitempty,oneof=ttest_2samp proportion_2samp"`
	Alpha      float64  `json:"alpha" validate:"gte=0,lt=1"`
	Power      float64  `json:"power" validate:"gte=0,lt=1"`
	EffectSize *float64 `json:"effect_size" validate:"omitempty,gt=0"`
	Mean1      *float64 `json:"mean1"`
	Mean2      *float64 `json:"mean2"`
	SD         *float64 `json:"sd" validate:"omitempty,gt=0"`
	P1         *float64 `json:"p1" validate:"omitempty,gt=0,lt=1"`
	P2         *float64 `json:"p2" validate:"omitempty,gt=0,lt=1"`
	Ratio      float64  `json:"ratio" validate:"gte=0"`
}

func (f *SampleSizeForm) Kind() analysis.Kind { return analysis.KindSampleSize }

func (f *SampleSizeForm) Build(_ *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	req := analysis.SampleSizeRequest{
		Test:  orDefault(f.Test, "ttest_2samp"),
		Alpha: floatOrDefault(f.Alpha, 0.05),
		Power: floatOrDefault(f.Power, 0.80),
		Ratio: floatOrDefault(f.Ratio, 1),
	}

	switch req.Test {
	case "ttest_2samp":
		switch {
		case f.EffectSize != nil:
			req.EffectSize = f.EffectSize
		case f.Mean1 != nil && f.Mean2 != nil && f.SD != nil:
			if *f.Mean1 == *f.Mean2 {
				return nil, errors.ValidationError("mean1 and mean2 must differ")
			}
			req.Mean1, req.Mean2, req.SD = f.Mean1, f.Mean2, f.SD
		default:
			return nil, errors.ValidationError("provide effect_size or (mean1, mean2, sd)")
		}
	case "proportion_2samp":
		if f.P1 == nil || f.P2 == nil {
			return nil, errors.ValidationError("provide p1 and p2")
		}
		if *f.P1 == *f.P2 {
			return nil, errors.ValidationError("p1 and p2 must differ")
		}
		req.P1, req.P2 = f.P1, f.P2
	}
	return req, nil
}
