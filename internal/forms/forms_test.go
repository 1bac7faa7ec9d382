package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medstat/domain/analysis"
	"medstat/domain/core"
	"medstat/domain/dataset"
	"medstat/internal/errors"
	"medstat/internal/testkit"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func trial(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("trial.csv", dataset.SourceUpload,
		[]string{"time", "event", "arm", "score", "sex", "marker", "outcome"},
		[][]string{
			{"5", "1", "A", "10", "F", "0.2", "0"},
			{"8", "0", "B", "12", "M", "0.9", "1"},
			{"", "1", "A", "11", "F", "0.4", "0"},
			{"12", "1", "B", "14", "M", "1.3", "1"},
			{"3", "0", "A", "9", "F", "0.1", "0"},
			{"7", "1", "", "x", "M", "0.7", "1"},
			{"9", "0", "B", "13", "F", "1.1", "1"},
		})
	require.NoError(t, err)
	return ds
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err), err.Error())
	assert.Equal(t, msg, errors.Message(err))
}

func TestNewAndDecode(t *testing.T) {
	for _, d := range analysis.Kinds() {
		f, err := New(d.Kind)
		require.NoError(t, err, d.Kind)
		assert.Equal(t, d.Kind, f.Kind())
	}

	_, err := New("histogram")
	assert.ErrorIs(t, err, core.ErrUnknownAnalysis)

	f, err := Decode(analysis.KindROC, []byte(`{"marker_column":"marker","outcome_column":"outcome","positive_direction":"low"}`))
	require.NoError(t, err)
	roc := f.(*ROCForm)
	assert.Equal(t, "marker", roc.MarkerColumn)
	assert.Equal(t, "low", roc.Direction)

	_, err = Decode(analysis.KindROC, []byte(`{"marker_column":`))
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestSurvivalForm(t *testing.T) {
	f := &SurvivalForm{TimeColumn: "time", EventColumn: "event", GroupColumn: "arm"}
	body, err := f.Build(trial(t))
	require.NoError(t, err)

	req := body.(analysis.SurvivalRequest)
	assert.Equal(t, []float64{5, 8, 12, 3, 9}, req.Time)
	assert.Equal(t, []int{1, 0, 1, 0, 0}, req.Event)
	assert.Equal(t, []string{"A", "B", "B", "A", "B"}, req.Groups)

	f.GroupColumn = ""
	body, err = f.Build(trial(t))
	require.NoError(t, err)
	assert.Nil(t, body.(analysis.SurvivalRequest).Groups)
	assert.Len(t, body.(analysis.SurvivalRequest).Time, 6)
}

func TestSurvivalFormErrors(t *testing.T) {
	_, err := (&SurvivalForm{EventColumn: "event"}).Build(trial(t))
	requireValidation(t, err, "time_column is required")

	_, err = (&SurvivalForm{TimeColumn: "time", EventColumn: "time"}).Build(trial(t))
	requireValidation(t, err, "event_column must differ from time_column")

	_, err = (&SurvivalForm{TimeColumn: "time", EventColumn: "event"}).Build(nil)
	requireValidation(t, err, "load a dataset and confirm the preview first")

	_, err = (&SurvivalForm{TimeColumn: "time", EventColumn: "missing"}).Build(trial(t))
	requireValidation(t, err, `column "missing" not found in dataset`)

	_, err = (&SurvivalForm{TimeColumn: "event", EventColumn: "time"}).Build(trial(t))
	requireValidation(t, err, "event must be binary (0 = censored, 1 = event)")

	_, err = (&SurvivalForm{TimeColumn: "arm", EventColumn: "event"}).Build(trial(t))
	requireValidation(t, err, "no valid data rows found")
}

func TestMetaForm(t *testing.T) {
	f := &MetaForm{Studies: []StudyInput{
		{Name: "Smith 2019", Yi: fptr(-0.2), Sei: fptr(0.1)},
		{},
		{Effect: fptr(0.8), LowerCI: fptr(0.6), UpperCI: fptr(1.1)},
		{Name: "Lee", Events1: iptr(4), N1: iptr(50), Events2: iptr(9), N2: iptr(48)},
	}}
	body, err := f.Build(nil)
	require.NoError(t, err)

	req := body.(analysis.MetaRequest)
	assert.Equal(t, "OR", req.Measure)
	assert.Equal(t, "random", req.Model)
	require.Len(t, req.Studies, 3)
	assert.Equal(t, "Smith 2019", req.Studies[0].Name)
	assert.Equal(t, "Study 2", req.Studies[1].Name)
	assert.Nil(t, req.Studies[1].Yi)
	assert.Equal(t, 0.8, *req.Studies[1].Effect)
	assert.Equal(t, 9, *req.Studies[2].Events2)
}

func TestMetaFormErrors(t *testing.T) {
	one := &MetaForm{Studies: []StudyInput{{Yi: fptr(1), Sei: fptr(0.2)}}}
	_, err := one.Build(nil)
	requireValidation(t, err, "at least 2 studies are required")

	badMeasure := &MetaForm{Measure: "HR"}
	_, err = badMeasure.Build(nil)
	requireValidation(t, err, "measure must be one of: OR, RR, MD, SMD")

	partial := &MetaForm{Studies: []StudyInput{{Name: "A", Yi: fptr(1)}, {Yi: fptr(1), Sei: fptr(1)}}}
	_, err = partial.Build(nil)
	requireValidation(t, err,
		"study 1: enter yi and sei, an effect with lower and upper CI, or events and totals for both arms")

	negSE := &MetaForm{Studies: []StudyInput{{Yi: fptr(1), Sei: fptr(-1)}, {Yi: fptr(1), Sei: fptr(1)}}}
	_, err = negSE.Build(nil)
	requireValidation(t, err, "studies[0].sei must be greater than 0")

	counts := &MetaForm{Measure: "MD", Studies: []StudyInput{
		{Events1: iptr(1), N1: iptr(10), Events2: iptr(2), N2: iptr(10)},
		{Yi: fptr(1), Sei: fptr(1)},
	}}
	_, err = counts.Build(nil)
	requireValidation(t, err, "study 1: event counts need measure OR or RR")

	ci := &MetaForm{Studies: []StudyInput{
		{Effect: fptr(1.2), LowerCI: fptr(1.5), UpperCI: fptr(1.1)},
		{Yi: fptr(1), Sei: fptr(1)},
	}}
	_, err = ci.Build(nil)
	requireValidation(t, err, "study 1: lower CI must be below upper CI")
}

func TestTTestFormFromDataset(t *testing.T) {
	f := &TTestForm{ValueColumn: "score", GroupColumn: "arm", EqualVar: true}
	body, err := f.Build(trial(t))
	require.NoError(t, err)

	req := body.(analysis.TTestRequest)
	assert.Equal(t, []float64{10, 11, 9}, req.Group1)
	assert.Equal(t, []float64{12, 14, 13}, req.Group2)
	assert.True(t, req.EqualVar)

	_, names, err := f.Samples(trial(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestTTestFormManualAndErrors(t *testing.T) {
	body, err := (&TTestForm{Group1: []float64{1, 2, 3}, Group2: []float64{4, 5}}).Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, body.(analysis.TTestRequest).Group2)

	_, err = (&TTestForm{Group1: []float64{1}, Group2: []float64{4, 5}}).Build(nil)
	requireValidation(t, err, "each group must have at least 2 observations")

	_, err = (&TTestForm{Group1: []float64{1, 2, 3}, Group2: []float64{4, 5}, Paired: true}).Build(nil)
	requireValidation(t, err, "paired samples need the same number of observations in both groups")

	_, err = (&TTestForm{ValueColumn: "score"}).Build(trial(t))
	requireValidation(t, err, "group_column is required")

	_, err = (&TTestForm{ValueColumn: "score", GroupColumn: "time"}).Build(trial(t))
	requireValidation(t, err, `group column "time" has 6 levels; choose the two groups to compare`)

	_, err = (&TTestForm{}).Build(nil)
	requireValidation(t, err, "select a value column or enter both groups")
}

func TestAnovaForm(t *testing.T) {
	ds, err := dataset.New("a", dataset.SourceManual, []string{"y", "g"}, [][]string{
		{"1", "lo"}, {"2", "mid"}, {"3", "hi"}, {"2", "lo"}, {"4", "mid"}, {"5", "hi"}, {"", "hi"},
	})
	require.NoError(t, err)

	body, err := (&AnovaForm{ValueColumn: "y", GroupColumn: "g"}).Build(ds)
	require.NoError(t, err)
	req := body.(analysis.AnovaRequest)
	assert.Equal(t, []string{"lo", "mid", "hi"}, req.GroupNames)
	assert.Equal(t, [][]float64{{1, 2}, {2, 4}, {3, 5}}, req.Groups)

	single, err := dataset.New("s", dataset.SourceManual, []string{"y", "g"}, [][]string{{"1", "a"}, {"2", "a"}})
	require.NoError(t, err)
	_, err = (&AnovaForm{ValueColumn: "y", GroupColumn: "g"}).Build(single)
	requireValidation(t, err, "need at least 2 groups")

	_, err = (&AnovaForm{ValueColumn: "score", GroupColumn: "arm"}).Build(trial(t))
	require.NoError(t, err)

	thin, err := dataset.New("t", dataset.SourceManual, []string{"y", "g"}, [][]string{{"1", "a"}, {"2", "a"}, {"3", "b"}})
	require.NoError(t, err)
	_, err = (&AnovaForm{ValueColumn: "y", GroupColumn: "g"}).Build(thin)
	requireValidation(t, err, "each group must have at least 2 observations")
}

func TestChiSquareForm(t *testing.T) {
	body, err := (&ChiSquareForm{RowColumn: "arm", ColColumn: "sex"}).Build(trial(t))
	require.NoError(t, err)
	req := body.(analysis.ChiSquareRequest)
	assert.Equal(t, []string{"A", "B"}, req.RowNames)
	assert.Equal(t, []string{"F", "M"}, req.ColNames)
	assert.Equal(t, [][]int{{3, 0}, {1, 2}}, req.Observed)
	assert.True(t, req.YatesCorrection)

	off := false
	body, err = (&ChiSquareForm{Observed: [][]int{{10, 5}, {3, 12}}, YatesCorrection: &off}).Build(nil)
	require.NoError(t, err)
	assert.False(t, body.(analysis.ChiSquareRequest).YatesCorrection)

	_, err = (&ChiSquareForm{Observed: [][]int{{10, 5, 1}}}).Build(nil)
	requireValidation(t, err, "table must be at least 2x2")

	_, err = (&ChiSquareForm{Observed: [][]int{{10, 5}, {1}}}).Build(nil)
	requireValidation(t, err, "every table row must have the same number of cells")

	_, err = (&ChiSquareForm{Observed: [][]int{{10, -5}, {1, 2}}}).Build(nil)
	requireValidation(t, err, "cell counts must be non-negative")

	_, err = (&ChiSquareForm{RowColumn: "sex", ColColumn: "sex"}).Build(trial(t))
	requireValidation(t, err, "row and column variables must differ")
}

func TestSampleSizeForm(t *testing.T) {
	body, err := (&SampleSizeForm{EffectSize: fptr(0.5)}).Build(nil)
	require.NoError(t, err)
	req := body.(analysis.SampleSizeRequest)
	assert.Equal(t, "ttest_2samp", req.Test)
	assert.Equal(t, 0.05, req.Alpha)
	assert.Equal(t, 0.8, req.Power)
	assert.Equal(t, 1.0, req.Ratio)

	body, err = (&SampleSizeForm{Test: "proportion_2samp", P1: fptr(0.3), P2: fptr(0.45), Power: 0.9}).Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, body.(analysis.SampleSizeRequest).Power)

	_, err = (&SampleSizeForm{}).Build(nil)
	requireValidation(t, err, "provide effect_size or (mean1, mean2, sd)")

	_, err = (&SampleSizeForm{Test: "proportion_2samp", P1: fptr(0.3)}).Build(nil)
	requireValidation(t, err, "provide p1 and p2")

	_, err = (&SampleSizeForm{Alpha: 1.5, EffectSize: fptr(0.5)}).Build(nil)
	requireValidation(t, err, "alpha must be less than 1")

	_, err = (&SampleSizeForm{Test: "anova"}).Build(nil)
	requireValidation(t, err, "test must be one of: ttest_2samp, proportion_2samp")
}

func TestTwoByTwoAndIncidenceForms(t *testing.T) {
	body, err := (&TwoByTwoForm{A: 20, B: 80, C: 10, D: 90}).Build(nil)
	require.NoError(t, err)
	req := body.(analysis.TwoByTwoRequest)
	assert.Equal(t, "Exposure", req.ExposureName)
	assert.Equal(t, "Outcome", req.OutcomeName)

	_, err = (&TwoByTwoForm{}).Build(nil)
	requireValidation(t, err, "table cannot be all zeros")

	_, err = (&TwoByTwoForm{A: -1, B: 2, C: 3, D: 4}).Build(nil)
	requireValidation(t, err, "a must be at least 0")

	_, err = (&TwoByTwoForm{C: 3, D: 4}).Build(nil)
	requireValidation(t, err, "both exposure groups need at least one subject")

	body, err = (&IncidenceForm{Events: 12, PersonTime: 2400}).Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "person-years", body.(analysis.IncidenceRequest).TimeUnit)

	_, err = (&IncidenceForm{Events: 12}).Build(nil)
	requireValidation(t, err, "person_time must be greater than 0")

	_, err = (&IncidenceForm{Events: 12, PersonTime: 10, ComparisonEvents: iptr(3)}).Build(nil)
	requireValidation(t, err, "comparison needs both events and person-time")
}

func logisticDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		sex := "F"
		if i%3 == 0 {
			sex = "M"
		}
		rows = append(rows, []string{
			[]string{"0", "1"}[i%2],
			[]string{"41", "55", "63", "38"}[i%4],
			sex,
		})
	}
	ds, err := dataset.New("cohort", dataset.SourceManual, []string{"died", "age", "sex"}, rows)
	require.NoError(t, err)
	return ds
}

func TestLogisticForm(t *testing.T) {
	f := &LogisticForm{OutcomeColumn: "died", Predictors: []string{"age", "sex"}}
	body, err := f.Build(logisticDataset(t, 12))
	require.NoError(t, err)

	req := body.(analysis.LogisticRequest)
	assert.Len(t, req.Outcome, 12)
	assert.Equal(t, map[string]string{"age": "continuous", "sex": "categorical"}, req.PredictorTypes)
	assert.Equal(t, 41.0, req.Predictors["age"][0])
	assert.Equal(t, "M", req.Predictors["sex"][0])

	f.PredictorTypes = map[string]string{"age": "categorical"}
	body, err = f.Build(logisticDataset(t, 12))
	require.NoError(t, err)
	assert.Equal(t, "41", body.(analysis.LogisticRequest).Predictors["age"][0])
}

func TestLogisticFormErrors(t *testing.T) {
	_, err := (&LogisticForm{OutcomeColumn: "died"}).Build(logisticDataset(t, 12))
	requireValidation(t, err, "select at least one predictor")

	_, err = (&LogisticForm{OutcomeColumn: "died", Predictors: []string{"age"}}).Build(logisticDataset(t, 6))
	requireValidation(t, err, "at least 10 observations are recommended for logistic regression")

	_, err = (&LogisticForm{OutcomeColumn: "died", Predictors: []string{"died"}}).Build(logisticDataset(t, 12))
	requireValidation(t, err, `"died" cannot be both outcome and predictor`)

	_, err = (&LogisticForm{OutcomeColumn: "age", Predictors: []string{"sex"}}).Build(logisticDataset(t, 12))
	requireValidation(t, err, "outcome must be binary (0/1)")

	_, err = (&LogisticForm{OutcomeColumn: "died", Predictors: []string{"age"},
		PredictorTypes: map[string]string{"age": "ordinal"}}).Build(logisticDataset(t, 12))
	requireValidation(t, err, "predictor_types[age] must be one of: continuous, categorical")
}

func TestROCForm(t *testing.T) {
	body, err := (&ROCForm{MarkerColumn: "marker", OutcomeColumn: "outcome", Threshold: fptr(0.5)}).Build(trial(t))
	require.NoError(t, err)
	req := body.(analysis.ROCRequest)
	assert.Equal(t, "marker", req.MarkerName)
	assert.Equal(t, "high", req.PositiveDirection)
	assert.Len(t, req.Marker, 7)
	assert.Equal(t, 0.5, *req.Threshold)

	short, err := dataset.New("s", dataset.SourceManual, []string{"m", "o"},
		[][]string{{"1", "0"}, {"2", "1"}, {"3", "0"}})
	require.NoError(t, err)
	_, err = (&ROCForm{MarkerColumn: "m", OutcomeColumn: "o"}).Build(short)
	requireValidation(t, err, "at least 5 observations are required")

	allNeg, err := dataset.New("n", dataset.SourceManual, []string{"m", "o"},
		[][]string{{"1", "0"}, {"2", "0"}, {"3", "0"}, {"4", "0"}, {"5", "0"}})
	require.NoError(t, err)
	_, err = (&ROCForm{MarkerColumn: "m", OutcomeColumn: "o"}).Build(allNeg)
	requireValidation(t, err, "outcome must have both positive and negative cases")

	_, err = (&ROCForm{MarkerColumn: "marker", OutcomeColumn: "outcome", Direction: "up"}).Build(trial(t))
	requireValidation(t, err, "positive_direction must be one of: high, low")
}

func TestSubmitCallsEndpointAfterValidation(t *testing.T) {
	api := &testkit.MockStatsAPI{}
	api.On("TTest", mock.Anything, analysis.TTestRequest{
		Group1: []float64{10, 11, 9},
		Group2: []float64{12, 14, 13},
	}).Return(&analysis.TTestResult{N1: 3, N2: 3, PValue: 0.04}, nil)

	res, err := Submit(context.Background(), api, &TTestForm{ValueColumn: "score", GroupColumn: "arm"}, trial(t))
	require.NoError(t, err)

	tt := res.(*analysis.TTestResult)
	assert.Equal(t, 0.04, tt.PValue)
	assert.Equal(t, []string{"A", "B"}, tt.GroupNames)
	assert.Equal(t, [][]float64{{10, 11, 9}, {12, 14, 13}}, tt.Groups)
	api.AssertExpectations(t)
}

func TestSubmitInvalidFormSkipsNetwork(t *testing.T) {
	api := &testkit.MockStatsAPI{}
	_, err := Submit(context.Background(), api, &AnovaForm{ValueColumn: "score"}, trial(t))
	requireValidation(t, err, "group_column is required")
	api.AssertNotCalled(t, "Anova", mock.Anything, mock.Anything)
}

func TestSubmitRemoteErrorYieldsNilResult(t *testing.T) {
	api := &testkit.MockStatsAPI{}
	api.On("TwoByTwo", mock.Anything, mock.Anything).
		Return(nil, errors.RemoteError(400, "Table cannot be all zeros."))

	res, err := Submit(context.Background(), api, &TwoByTwoForm{A: 1, B: 1, C: 1, D: 1}, nil)
	assert.Nil(t, res)
	assert.Equal(t, "Table cannot be all zeros.", errors.Message(err))
}
