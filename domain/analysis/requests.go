package analysis

// Request bodies accepted by the stats API. Optional numeric fields are
// pointers so that "not provided" stays distinguishable from zero.

type REDCapRequest struct {
	URL        string `json:"url"`
	Token      string `json:"token"`
	RawOrLabel string `json:"raw_or_label"`
}

type SurvivalRequest struct {
	Time   []float64 `json:"time"`
	Event  []int     `json:"event"`
	Groups []string  `json:"groups,omitempty"`
}

// Study is one meta-analysis input row. Exactly one of the three shapes is
// expected to be filled: yi/sei, effect with a confidence interval, or the
// raw 2x2 counts.
type Study struct {
	Name    string   `json:"name"`
	Yi      *float64 `json:"yi,omitempty"`
	Sei     *float64 `json:"sei,omitempty"`
	Effect  *float64 `json:"effect,omitempty"`
	LowerCI *float64 `json:"lower_ci,omitempty"`
	UpperCI *float64 `json:"upper_ci,omitempty"`
	Events1 *int     `json:"events_1,omitempty"`
	N1      *int     `json:"n_1,omitempty"`
	Events2 *int     `json:"events_2,omitempty"`
	N2      *int     `json:"n_2,omitempty"`
}

type MetaRequest struct {
	Studies []Study `json:"studies"`
	Measure string  `json:"measure"`
	Model   string  `json:"model"`
}

type TTestRequest struct {
	Group1   []float64 `json:"group1"`
	Group2   []float64 `json:"group2"`
	Paired   bool      `json:"paired"`
	EqualVar bool      `json:"equal_var"`
}

type AnovaRequest struct {
	Groups     [][]float64 `json:"groups"`
	GroupNames []string    `json:"group_names,omitempty"`
}

type ChiSquareRequest struct {
	Observed        [][]int  `json:"observed"`
	RowNames        []string `json:"row_names,omitempty"`
	ColNames        []string `json:"col_names,omitempty"`
	YatesCorrection bool     `json:"yates_correction"`
}

type SampleSizeRequest struct {
	Test       string   `json:"test"`
	Alpha      float64  `json:"alpha"`
	Power      float64  `json:"power"`
	EffectSize *float64 `json:"effect_size,omitempty"`
	Mean1      *float64 `json:"mean1,omitempty"`
	Mean2      *float64 `json:"mean2,omitempty"`
	SD         *float64 `json:"sd,omitempty"`
	P1         *float64 `json:"p1,omitempty"`
	P2         *float64 `json:"p2,omitempty"`
	Ratio      float64  `json:"ratio"`
}

type TwoByTwoRequest struct {
	A            int    `json:"a"`
	B            int    `json:"b"`
	C            int    `json:"c"`
	D            int    `json:"d"`
	ExposureName string `json:"exposure_name"`
	OutcomeName  string `json:"outcome_name"`
}

type IncidenceRequest struct {
	Events               int      `json:"events"`
	PersonTime           float64  `json:"person_time"`
	ComparisonEvents     *int     `json:"comparison_events,omitempty"`
	ComparisonPersonTime *float64 `json:"comparison_person_time,omitempty"`
	TimeUnit             string   `json:"time_unit"`
}

// LogisticRequest carries predictor columns keyed by name. Continuous
// predictors hold float64 values, categorical ones hold strings.
type LogisticRequest struct {
	Outcome        []int             `json:"outcome"`
	Predictors     map[string][]any  `json:"predictors"`
	PredictorTypes map[string]string `json:"predictor_types,omitempty"`
}

type ROCRequest struct {
	Marker            []float64 `json:"marker"`
	Outcome           []int     `json:"outcome"`
	MarkerName        string    `json:"marker_name"`
	Threshold         *float64  `json:"threshold,omitempty"`
	PositiveDirection string    `json:"positive_direction"`
}
