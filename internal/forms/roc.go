package forms

import (
	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

const minROCRows = 5

// ROCForm evaluates a continuous marker against a binary outcome
type ROCForm struct {
	MarkerColumn  string   `json:"marker_column" validate:"required"`
	OutcomeColumn string   `json:"outcome_column" validate:"required,nefield=MarkerColumn"`
	MarkerName    string   `json:"marker_name"`
	Threshold     *float64 `json:"threshold"`
	// Direction is "high" when larger marker values indicate a positive case
	Direction string `json:"positive_direction" validate:"omitempty,oneof=high low"`
}

func (f *ROCForm) Kind() analysis.Kind { return analysis.KindROC }

func (f *ROCForm) Build(ds *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if err := requireDataset(ds); err != nil {
		return nil, err
	}
	if err := requireColumns(ds, f.MarkerColumn, f.OutcomeColumn); err != nil {
		return nil, err
	}

	req := analysis.ROCRequest{
		MarkerName:        orDefault(f.MarkerName, f.MarkerColumn),
		Threshold:         f.Threshold,
		PositiveDirection: orDefault(f.Direction, "high"),
	}
	for i := range ds.Rows {
		m, ok := ds.Float(i, f.MarkerColumn)
		if !ok {
			continue
		}
		o, ok := ds.Float(i, f.OutcomeColumn)
		if !ok {
			continue
		}
		outcome, ok := binary(o)
		if !ok {
			return nil, errors.ValidationError("outcome must be binary (0/1)")
		}
		req.Marker = append(req.Marker, m)
		req.Outcome = append(req.Outcome, outcome)
	}

	if len(req.Marker) == 0 {
		return nil, errors.ValidationError("no valid data rows found")
	}
	if len(req.Marker) < minROCRows {
		return nil, errors.ValidationError("at least 5 observations are required")
	}
	if err := requireBothClasses(req.Outcome); err != nil {
		return nil, err
	}
	return req, nil
}
