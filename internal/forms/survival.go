package forms

import (
	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

// SurvivalForm selects the time, event and optional grouping columns for a
// Kaplan-Meier analysis
type SurvivalForm struct {
	TimeColumn  string `json:"time_column" validate:"required"`
	EventColumn string `json:"event_column" validate:"required,nefield=TimeColumn"`
	GroupColumn string `json:"group_column"`
}

func (f *SurvivalForm) Kind() analysis.Kind { return analysis.KindSurvival }

// Build skips rows with a missing or non-numeric time or event, and rows
// without a group when grouping is requested.
func (f *SurvivalForm) Build(ds *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if err := requireDataset(ds); err != nil {
		return nil, err
	}
	if err := requireColumns(ds, f.TimeColumn, f.EventColumn, f.GroupColumn); err != nil {
		return nil, err
	}

	var req analysis.SurvivalRequest
	for i := range ds.Rows {
		t, ok := ds.Float(i, f.TimeColumn)
		if !ok {
			continue
		}
		e, ok := ds.Float(i, f.EventColumn)
		if !ok {
			continue
		}
		var group string
		if f.GroupColumn != "" {
			if group = ds.Value(i, f.GroupColumn); group == "" {
				continue
			}
		}

		event, ok := binary(e)
		if !ok {
			return nil, errors.ValidationError("event must be binary (0 = censored, 1 = event)")
		}
		if t < 0 {
			return nil, errors.ValidationError("time values must be non-negative")
		}

		req.Time = append(req.Time, t)
		req.Event = append(req.Event, event)
		if f.GroupColumn != "" {
			req.Groups = append(req.Groups, group)
		}
	}

	if len(req.Time) == 0 {
		return nil, errors.ValidationError("no valid data rows found")
	}
	return req, nil
}
