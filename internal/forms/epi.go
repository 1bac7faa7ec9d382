package forms

import (
	"fmt"

	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

// TwoByTwoForm is an exposure by outcome table:
//
//	           outcome+  outcome-
//	exposed       a         b
//	unexposed     c         d
type TwoByTwoForm struct {
	A            int    `json:"a" validate:"gte=0"`
	B            int    `json:"b" validate:"gte=0"`
	C            int    `json:"c" validate:"gte=0"`
	D            int    `json:"d" validate:"gte=0"`
	ExposureName string `json:"exposure_name"`
	OutcomeName  string `json:"outcome_name"`
}

func (f *TwoByTwoForm) Kind() analysis.Kind { return analysis.KindTwoByTwo }

func (f *TwoByTwoForm) Build(_ *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if f.A+f.B+f.C+f.D == 0 {
		return nil, errors.ValidationError("table cannot be all zeros")
	}
	if f.A+f.B == 0 || f.C+f.D == 0 {
		return nil, errors.ValidationError("both exposure groups need at least one subject")
	}
	return analysis.TwoByTwoRequest{
		A:            f.A,
		B:            f.B,
		C:            f.C,
		D:            f.D,
		ExposureName: orDefault(f.ExposureName, "Exposure"),
		OutcomeName:  orDefault(f.OutcomeName, "Outcome"),
	}, nil
}

// IncidenceForm is an incidence rate with an optional comparison group
type IncidenceForm struct {
	Events               int      `json:"events" validate:"gte=0"`
	PersonTime           float64  `json:"person_time" validate:"gt=0"`
	ComparisonEvents     *int     `json:"comparison_events" validate:"omitempty,gte=0"`
	ComparisonPersonTime *float64 `json:"comparison_person_time" validate:"omitempty,gt=0"`
	TimeUnit             string   `json:"time_unit"`
}

func (f *IncidenceForm) Kind() analysis.Kind { return analysis.KindIncidence }

func (f *IncidenceForm) Build(_ *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if (f.ComparisonEvents == nil) != (f.ComparisonPersonTime == nil) {
		return nil, errors.ValidationError("comparison needs both events and person-time")
	}
	return analysis.IncidenceRequest{
		Events:               f.Events,
		PersonTime:           f.PersonTime,
		ComparisonEvents:     f.ComparisonEvents,
		ComparisonPersonTime: f.ComparisonPersonTime,
		TimeUnit:             orDefault(f.TimeUnit, "person-years"),
	}, nil
}

// Predictor types understood by the logistic endpoint
const (
	PredictorContinuous  = "continuous"
	PredictorCategorical = "categorical"
)

const minLogisticRows = 10

// LogisticForm models a binary outcome column on one or more predictors
type LogisticForm struct {
	OutcomeColumn string   `json:"outcome_column" validate:"required"`
	Predictors    []string `json:"predictors"`
	// PredictorTypes overrides the type guessed from the column
	PredictorTypes map[string]string `json:"predictor_types" validate:"omitempty,dive,oneof=continuous categorical"`
}

func (f *LogisticForm) Kind() analysis.Kind { return analysis.KindLogistic }

// Build keeps rows where the outcome is 0/1 and every predictor has a usable
// value. Numeric columns default to continuous, others to categorical.
func (f *LogisticForm) Build(ds *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	if len(f.Predictors) == 0 {
		return nil, errors.ValidationError("select at least one predictor")
	}
	if err := requireDataset(ds); err != nil {
		return nil, err
	}
	if err := requireColumns(ds, f.OutcomeColumn); err != nil {
		return nil, err
	}

	types := make(map[string]string, len(f.Predictors))
	seen := make(map[string]bool, len(f.Predictors))
	for _, p := range f.Predictors {
		if p == f.OutcomeColumn {
			return nil, errors.ValidationErrorf("%q cannot be both outcome and predictor", p)
		}
		if seen[p] {
			return nil, errors.ValidationErrorf("predictor %q selected twice", p)
		}
		seen[p] = true
		col, ok := ds.Column(p)
		if !ok {
			return nil, errors.ValidationErrorf("column %q not found in dataset", p)
		}
		switch {
		case f.PredictorTypes[p] != "":
			types[p] = f.PredictorTypes[p]
		case col.IsNumeric():
			types[p] = PredictorContinuous
		default:
			types[p] = PredictorCategorical
		}
	}

	req := analysis.LogisticRequest{
		Predictors:     make(map[string][]any, len(f.Predictors)),
		PredictorTypes: types,
	}
	row := make([]any, len(f.Predictors))
rows:
	for i := range ds.Rows {
		o, ok := ds.Float(i, f.OutcomeColumn)
		if !ok {
			continue
		}
		outcome, ok := binary(o)
		if !ok {
			return nil, errors.ValidationError("outcome must be binary (0/1)")
		}
		for j, p := range f.Predictors {
			if types[p] == PredictorContinuous {
				v, ok := ds.Float(i, p)
				if !ok {
					continue rows
				}
				row[j] = v
				continue
			}
			v := ds.Value(i, p)
			if v == "" {
				continue rows
			}
			row[j] = v
		}
		req.Outcome = append(req.Outcome, outcome)
		for j, p := range f.Predictors {
			req.Predictors[p] = append(req.Predictors[p], row[j])
		}
	}

	if len(req.Outcome) == 0 {
		return nil, errors.ValidationError("no valid data rows found")
	}
	if len(req.Outcome) < minLogisticRows {
		return nil, errors.ValidationError(fmt.Sprintf(
			"at least %d observations are recommended for logistic regression", minLogisticRows))
	}
	if err := requireBothClasses(req.Outcome); err != nil {
		return nil, err
	}
	return req, nil
}

func requireBothClasses(outcome []int) error {
	var pos, neg int
	for _, v := range outcome {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return errors.ValidationError("outcome must have both positive and negative cases")
	}
	return nil
}
