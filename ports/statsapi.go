package ports

import (
	"context"
	"io"

	"medstat/domain/analysis"
)

// StatsAPI is the remote statistics service. Every computation the dashboard
// shows is delegated to it; implementations must not retry.
type StatsAPI interface {
	// Data ingestion
	Upload(ctx context.Context, filename string, r io.Reader) (*analysis.UploadResult, error)
	FetchREDCap(ctx context.Context, req analysis.REDCapRequest) (*analysis.UploadResult, error)

	// Survival and meta-analysis
	Survival(ctx context.Context, req analysis.SurvivalRequest) (*analysis.SurvivalResult, error)
	Meta(ctx context.Context, req analysis.MetaRequest) (*analysis.MetaResult, error)

	// Clinical tests
	TTest(ctx context.Context, req analysis.TTestRequest) (*analysis.TTestResult, error)
	Anova(ctx context.Context, req analysis.AnovaRequest) (*analysis.AnovaResult, error)
	ChiSquare(ctx context.Context, req analysis.ChiSquareRequest) (*analysis.ChiSquareResult, error)
	SampleSize(ctx context.Context, req analysis.SampleSizeRequest) (*analysis.SampleSizeResult, error)

	// Epidemiology
	TwoByTwo(ctx context.Context, req analysis.TwoByTwoRequest) (*analysis.TwoByTwoResult, error)
	IncidenceRate(ctx context.Context, req analysis.IncidenceRequest) (*analysis.IncidenceResult, error)
	Logistic(ctx context.Context, req analysis.LogisticRequest) (*analysis.LogisticResult, error)

	// Biomarkers
	ROC(ctx context.Context, req analysis.ROCRequest) (*analysis.ROCResult, error)
}
