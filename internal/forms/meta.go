package forms

import (
	"fmt"
	"strings"

	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

// StudyInput is one manually entered study row. It is complete in one of
// three ways: yi with sei, an effect with its 95% CI, or event counts and
// totals for both arms.
type StudyInput struct {
	Name    string   `json:"name"`
	Yi      *float64 `json:"yi"`
	Sei     *float64 `json:"sei" validate:"omitempty,gt=0"`
	Effect  *float64 `json:"effect"`
	LowerCI *float64 `json:"lower_ci"`
	UpperCI *float64 `json:"upper_ci"`
	Events1 *int     `json:"events_1" validate:"omitempty,gte=0"`
	N1      *int     `json:"n_1" validate:"omitempty,gt=0"`
	Events2 *int     `json:"events_2" validate:"omitempty,gte=0"`
	N2      *int     `json:"n_2" validate:"omitempty,gt=0"`
}

// MetaForm is the study table of the meta-analysis tab
type MetaForm struct {
	Studies []StudyInput `json:"studies" validate:"dive"`
	Measure string       `json:"measure" validate:"omitempty,oneof=OR RR MD SMD"`
	Model   string       `json:"model" validate:"omitempty,oneof=fixed random"`
}

func (f *MetaForm) Kind() analysis.Kind { return analysis.KindMeta }

// Build ignores ds; studies are entered by hand. Blank rows are dropped.
func (f *MetaForm) Build(_ *dataset.Dataset) (any, error) {
	if err := check(f); err != nil {
		return nil, err
	}

	req := analysis.MetaRequest{
		Measure: orDefault(f.Measure, "OR"),
		Model:   orDefault(f.Model, "random"),
	}
	ratio := req.Measure == "OR" || req.Measure == "RR"

	for i, s := range f.Studies {
		if s.blank() {
			continue
		}
		n := i + 1
		name := orDefault(s.Name, fmt.Sprintf("Study %d", len(req.Studies)+1))
		study := analysis.Study{Name: name}

		switch {
		case s.Yi != nil && s.Sei != nil:
			study.Yi, study.Sei = s.Yi, s.Sei

		case s.Effect != nil && s.LowerCI != nil && s.UpperCI != nil:
			if *s.LowerCI >= *s.UpperCI {
				return nil, errors.ValidationErrorf("study %d: lower CI must be below upper CI", n)
			}
			if ratio && (*s.Effect <= 0 || *s.LowerCI <= 0) {
				return nil, errors.ValidationErrorf("study %d: %s and its CI must be positive", n, req.Measure)
			}
			study.Effect, study.LowerCI, study.UpperCI = s.Effect, s.LowerCI, s.UpperCI

		case s.Events1 != nil && s.N1 != nil && s.Events2 != nil && s.N2 != nil:
			if !ratio {
				return nil, errors.ValidationErrorf("study %d: event counts need measure OR or RR", n)
			}
			if *s.Events1 > *s.N1 || *s.Events2 > *s.N2 {
				return nil, errors.ValidationErrorf("study %d: events cannot exceed the arm total", n)
			}
			study.Events1, study.N1, study.Events2, study.N2 = s.Events1, s.N1, s.Events2, s.N2

		default:
			return nil, errors.ValidationErrorf(
				"study %d: enter yi and sei, an effect with lower and upper CI, or events and totals for both arms", n)
		}
		req.Studies = append(req.Studies, study)
	}

	if len(req.Studies) < 2 {
		return nil, errors.ValidationError("at least 2 studies are required")
	}
	return req, nil
}

func (s StudyInput) blank() bool {
	return strings.TrimSpace(s.Name) == "" && s.Yi == nil && s.Sei == nil &&
		s.Effect == nil && s.LowerCI == nil && s.UpperCI == nil &&
		s.Events1 == nil && s.N1 == nil && s.Events2 == nil && s.N2 == nil
}
