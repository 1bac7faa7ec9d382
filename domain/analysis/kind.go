package analysis

import (
	"fmt"

	"medstat/domain/core"
)

// Kind identifies one analysis tab and the remote computation behind it
type Kind string

const (
	KindSurvival   Kind = "survival"
	KindMeta       Kind = "meta"
	KindTTest      Kind = "ttest"
	KindAnova      Kind = "anova"
	KindChiSquare  Kind = "chi_square"
	KindSampleSize Kind = "sample_size"
	KindTwoByTwo   Kind = "two_by_two"
	KindIncidence  Kind = "incidence_rate"
	KindLogistic   Kind = "logistic"
	KindROC        Kind = "roc"
)

// Descriptor carries the static facts about an analysis tab
type Descriptor struct {
	Kind     Kind
	Title    string
	Endpoint string
	// UsesDataset is true for tabs whose form reads columns from an uploaded dataset
	UsesDataset bool
}

var descriptors = []Descriptor{
	{KindSurvival, "Survival (Kaplan-Meier)", "/api/survival/analyze", true},
	{KindMeta, "Meta-analysis", "/api/meta/analyze", false},
	{KindTTest, "t-test", "/api/clinical/ttest", true},
	{KindAnova, "One-way ANOVA", "/api/clinical/anova", true},
	{KindChiSquare, "Chi-square", "/api/clinical/chi_square", true},
	{KindSampleSize, "Sample size & power", "/api/clinical/sample_size", false},
	{KindTwoByTwo, "2x2 table", "/api/epi/two_by_two", false},
	{KindIncidence, "Incidence rate", "/api/epi/incidence_rate", false},
	{KindLogistic, "Logistic regression", "/api/epi/logistic", true},
	{KindROC, "ROC / biomarker", "/api/biomarker/roc", true},
}

// Kinds returns every analysis in display order
func Kinds() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Describe returns the descriptor for a kind
func Describe(k Kind) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Kind == k {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ParseKind validates a kind coming from a URL or CLI argument
func ParseKind(s string) (Kind, error) {
	if d, ok := Describe(Kind(s)); ok {
		return d.Kind, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownAnalysis, s)
}
