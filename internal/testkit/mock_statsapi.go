package testkit

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"medstat/domain/analysis"
	"medstat/ports"
)

var _ ports.StatsAPI = (*MockStatsAPI)(nil)

// MockStatsAPI is a testify mock of the stats API
type MockStatsAPI struct {
	mock.Mock
}

func ret[T any](args mock.Arguments) (*T, error) {
	v, _ := args.Get(0).(*T)
	return v, args.Error(1)
}

func (m *MockStatsAPI) Upload(ctx context.Context, filename string, r io.Reader) (*analysis.UploadResult, error) {
	return ret[analysis.UploadResult](m.Called(ctx, filename, r))
}

func (m *MockStatsAPI) FetchREDCap(ctx context.Context, req analysis.REDCapRequest) (*analysis.UploadResult, error) {
	return ret[analysis.UploadResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) Survival(ctx context.Context, req analysis.SurvivalRequest) (*analysis.SurvivalResult, error) {
	return ret[analysis.SurvivalResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) Meta(ctx context.Context, req analysis.MetaRequest) (*analysis.MetaResult, error) {
	return ret[analysis.MetaResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) TTest(ctx context.Context, req analysis.TTestRequest) (*analysis.TTestResult, error) {
	return ret[analysis.TTestResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) Anova(ctx context.Context, req analysis.AnovaRequest) (*analysis.AnovaResult, error) {
	return ret[analysis.AnovaResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) ChiSquare(ctx context.Context, req analysis.ChiSquareRequest) (*analysis.ChiSquareResult, error) {
	return ret[analysis.ChiSquareResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) SampleSize(ctx context.Context, req analysis.SampleSizeRequest) (*analysis.SampleSizeResult, error) {
	return ret[analysis.SampleSizeResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) TwoByTwo(ctx context.Context, req analysis.TwoByTwoRequest) (*analysis.TwoByTwoResult, error) {
	return ret[analysis.TwoByTwoResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) IncidenceRate(ctx context.Context, req analysis.IncidenceRequest) (*analysis.IncidenceResult, error) {
	return ret[analysis.IncidenceResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) Logistic(ctx context.Context, req analysis.LogisticRequest) (*analysis.LogisticResult, error) {
	return ret[analysis.LogisticResult](m.Called(ctx, req))
}

func (m *MockStatsAPI) ROC(ctx context.Context, req analysis.ROCRequest) (*analysis.ROCResult, error) {
	return ret[analysis.ROCResult](m.Called(ctx, req))
}
