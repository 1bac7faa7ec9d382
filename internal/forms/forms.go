// Package forms holds the input state of every analysis tab. A form is
// validated against the bound dataset and turned into the request body of
// the matching stats API endpoint; nothing here talks to the network.
package forms

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
)

// Form is the state of one analysis tab's inputs
type Form interface {
	Kind() analysis.Kind
	// Build validates the form against ds and returns the API request body.
	// Forms that do not read a dataset accept nil.
	Build(ds *dataset.Dataset) (any, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New returns an empty form for kind
func New(kind analysis.Kind) (Form, error) {
	switch kind {
	case analysis.KindSurvival:
		return &SurvivalForm{}, nil
	case analysis.KindMeta:
		return &MetaForm{}, nil
	case analysis.KindTTest:
		return &TTestForm{}, nil
	case analysis.KindAnova:
		return &AnovaForm{}, nil
	case analysis.KindChiSquare:
		return &ChiSquareForm{}, nil
	case analysis.KindSampleSize:
		return &SampleSizeForm{}, nil
	case analysis.KindTwoByTwo:
		return &TwoByTwoForm{}, nil
	case analysis.KindIncidence:
		return &IncidenceForm{}, nil
	case analysis.KindLogistic:
		return &LogisticForm{}, nil
	case analysis.KindROC:
		return &ROCForm{}, nil
	}
	_, err := analysis.ParseKind(string(kind))
	return nil, err
}

// Decode parses raw JSON form state into the form for kind
func Decode(kind analysis.Kind, raw []byte) (Form, error) {
	f, err := New(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid %s form: %v", kind, err))
	}
	return f, nil
}

// check runs the struct tag rules and reports the first failure in words
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "form validation failed")
	}
	return errors.ValidationError(fieldMessage(verrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_with", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, snakeCase(fe.Param()))
	}
	return fmt.Sprintf("%s is invalid", field)
}

// snakeCase turns a Go field name such as TimeColumn into time_column
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func requireDataset(ds *dataset.Dataset) error {
	if ds == nil {
		return errors.ValidationError("load a dataset and confirm the preview first")
	}
	if ds.RowCount() == 0 {
		return errors.ValidationError("no valid data rows found")
	}
	return nil
}

// requireColumns checks that every non-empty name is a column of ds
func requireColumns(ds *dataset.Dataset, names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := ds.Column(name); !ok {
			return errors.ValidationErrorf("column %q not found in dataset", name)
		}
	}
	return nil
}

// levels returns the distinct non-empty values of column in first-seen order
func levels(ds *dataset.Dataset, column string) []string {
	var out []string
	seen := make(map[string]bool)
	for i := range ds.Rows {
		v := ds.Value(i, column)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// binary parses a 0/1 indicator cell
func binary(v float64) (int, bool) {
	switch v {
	case 0:
		return 0, true
	case 1:
		return 1, true
	}
	return 0, false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func floatOrDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
