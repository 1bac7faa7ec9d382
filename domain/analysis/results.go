package analysis

import "medstat/domain/dataset"

// Result is any decoded stats API response that a tab can keep and render.
type Result interface {
	AnalysisKind() Kind
}

// UploadResult is the response of the upload and REDCap endpoints.
type UploadResult struct {
	NRows   int                 `json:"n_rows"`
	NCols   int                 `json:"n_cols"`
	Columns []dataset.Column    `json:"columns"`
	Preview []map[string]string `json:"preview"`
	Data    []map[string]string `json:"data"`
}

// Dataset converts the response into a Dataset using the column order
// reported in the metadata.
func (u *UploadResult) Dataset(name string, source dataset.Source) (*dataset.Dataset, error) {
	headers := make([]string, len(u.Columns))
	for i, c := range u.Columns {
		headers[i] = c.Name
	}
	rows := make([][]string, len(u.Data))
	for i, rec := range u.Data {
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = rec[h]
		}
		rows[i] = row
	}
	ds, err := dataset.New(name, source, headers, rows)
	if err != nil {
		return nil, err
	}
	// Keep the server's typing when it sent one.
	for i := range ds.Columns {
		if i < len(u.Columns) && u.Columns[i].Type != "" {
			ds.Columns[i].Type = u.Columns[i].Type
			ds.Columns[i].DType = u.Columns[i].DType
		}
	}
	return ds, nil
}

// Survival

type SurvivalCurve struct {
	Label          string    `json:"label"`
	N              int       `json:"n"`
	Times          []float64 `json:"times"`
	Survival       []float64 `json:"survival"`
	LowerCI        []float64 `json:"lower_ci"`
	UpperCI        []float64 `json:"upper_ci"`
	NAtRisk        []int     `json:"n_at_risk"`
	NEvents        []int     `json:"n_events"`
	MedianSurvival *float64  `json:"median_survival"`
	NTotalEvents   int       `json:"n_total_events"`
}

type LogRank struct {
	Chi2           float64 `json:"chi2"`
	PValue         float64 `json:"p_value"`
	Group1         string  `json:"group1"`
	Group2         string  `json:"group2"`
	Significant    bool    `json:"significant"`
	Interpretation string  `json:"interpretation,omitempty"`
}

type SurvivalResult struct {
	Curves  []SurvivalCurve `json:"curves"`
	LogRank *LogRank        `json:"logrank"`
}

func (*SurvivalResult) AnalysisKind() Kind { return KindSurvival }

// Meta-analysis

type Heterogeneity struct {
	Q              float64 `json:"Q"`
	DF             float64 `json:"df"`
	QP             float64 `json:"Q_p"`
	I2             float64 `json:"I2"`
	Tau2           float64 `json:"tau2"`
	Interpretation string  `json:"interpretation"`
}

type PooledEstimate struct {
	Estimate    float64   `json:"estimate"`
	SE          float64   `json:"se"`
	Z           float64   `json:"z"`
	P           float64   `json:"p"`
	CI          []float64 `json:"ci"`
	Display     float64   `json:"display"`
	CIDisplay   []float64 `json:"ci_display"`
	Significant bool      `json:"significant,omitempty"`
}

type ForestStudy struct {
	Name          string  `json:"name"`
	Yi            float64 `json:"yi"`
	Sei           float64 `json:"sei"`
	CILo          float64 `json:"ci_lo"`
	CIHi          float64 `json:"ci_hi"`
	Weight        float64 `json:"weight"`
	EffectDisplay float64 `json:"effect_display"`
	CILoDisplay   float64 `json:"ci_lo_display"`
	CIHiDisplay   float64 `json:"ci_hi_display"`
}

type FunnelData struct {
	Yi        []float64 `json:"yi"`
	Sei       []float64 `json:"sei"`
	Names     []string  `json:"names"`
	PooledEst float64   `json:"pooled_est"`
}

type MetaResult struct {
	Measure       string         `json:"measure"`
	Model         string         `json:"model"`
	NStudies      int            `json:"n_studies"`
	Heterogeneity Heterogeneity  `json:"heterogeneity"`
	FixedEffects  PooledEstimate `json:"fixed_effects"`
	RandomEffects PooledEstimate `json:"random_effects"`
	Pooled        PooledEstimate `json:"pooled"`
	ForestStudies []ForestStudy  `json:"forest_studies"`
	FunnelData    FunnelData     `json:"funnel_data"`
	Label         string         `json:"label"`
	NullValue     float64        `json:"null_value"`
	NullDisplay   float64        `json:"null_display"`
}

func (*MetaResult) AnalysisKind() Kind { return KindMeta }

// Clinical

type TTestResult struct {
	Paired          bool      `json:"paired"`
	N1              int       `json:"n1"`
	N2              int       `json:"n2"`
	Mean1           float64   `json:"mean1"`
	Mean2           float64   `json:"mean2"`
	SD1             float64   `json:"sd1"`
	SD2             float64   `json:"sd2"`
	MeanDiff        float64   `json:"mean_diff"`
	CI95            []float64 `json:"ci_95"`
	TStat           float64   `json:"t_stat"`
	DF              float64   `json:"df"`
	PValue          float64   `json:"p_value"`
	CohensD         float64   `json:"cohens_d"`
	EffectSizeLabel string    `json:"effect_size_label"`
	Significant     bool      `json:"significant"`

	// Groups and GroupNames hold the submitted samples so box plots can
	// be drawn without another round trip. Not part of the API response.
	Groups     [][]float64 `json:"-"`
	GroupNames []string    `json:"-"`
}

func (*TTestResult) AnalysisKind() Kind { return KindTTest }

type GroupStat struct {
	Name string    `json:"name"`
	N    int       `json:"n"`
	Mean float64   `json:"mean"`
	SD   float64   `json:"sd"`
	SE   float64   `json:"se"`
	CI95 []float64 `json:"ci_95"`
}

type AnovaTable struct {
	SSBetween float64 `json:"ss_between"`
	SSWithin  float64 `json:"ss_within"`
	DFBetween float64 `json:"df_between"`
	DFWithin  float64 `json:"df_within"`
	MSBetween float64 `json:"ms_between"`
	MSWithin  float64 `json:"ms_within"`
	FStat     float64 `json:"f_stat"`
	PValue    float64 `json:"p_value"`
}

type PosthocComparison struct {
	Group1      string  `json:"group1"`
	Group2      string  `json:"group2"`
	MeanDiff    float64 `json:"mean_diff"`
	PAdjusted   float64 `json:"p_adjusted"`
	Significant bool    `json:"significant"`
}

type AnovaResult struct {
	K            int                 `json:"k"`
	NTotal       int                 `json:"n_total"`
	GroupStats   []GroupStat         `json:"group_stats"`
	AnovaTable   AnovaTable          `json:"anova_table"`
	EtaSquared   float64             `json:"eta_squared"`
	Significant  bool                `json:"significant"`
	PosthocTukey []PosthocComparison `json:"posthoc_tukey"`

	Groups [][]float64 `json:"-"`
}

func (*AnovaResult) AnalysisKind() Kind { return KindAnova }

type FisherExact struct {
	OddsRatio float64 `json:"odds_ratio"`
	PValue    float64 `json:"p_value"`
}

type ChiSquareResult struct {
	Observed    [][]float64  `json:"observed"`
	Expected    [][]float64  `json:"expected"`
	RowNames    []string     `json:"row_names"`
	ColNames    []string     `json:"col_names"`
	Chi2        float64      `json:"chi2"`
	DF          int          `json:"df"`
	PValue      float64      `json:"p_value"`
	CramersV    float64      `json:"cramers_v"`
	FisherExact *FisherExact `json:"fisher_exact"`
	Significant bool         `json:"significant"`
}

func (*ChiSquareResult) AnalysisKind() Kind { return KindChiSquare }

type SampleSizeResult struct {
	Test       string   `json:"test"`
	Alpha      float64  `json:"alpha"`
	Power      float64  `json:"power"`
	EffectSize *float64 `json:"effect_size"`
	N1         int      `json:"n1"`
	N2         int      `json:"n2"`
	NTotal     int      `json:"n_total"`
	Ratio      float64  `json:"ratio"`
}

func (*SampleSizeResult) AnalysisKind() Kind { return KindSampleSize }

// Epidemiology

type Table2x2 struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
	N int `json:"n"`
}

type Risks struct {
	RiskExposed    float64   `json:"risk_exposed"`
	RiskUnexposed  float64   `json:"risk_unexposed"`
	RiskDifference float64   `json:"risk_difference"`
	RDCI95         []float64 `json:"rd_ci_95"`
}

// RatioEstimate is undefined (nil) when a cell count makes it infinite.
type RatioEstimate struct {
	Value *float64   `json:"value"`
	CI95  []*float64 `json:"ci_95"`
}

type ChiSquareSummary struct {
	Value  float64 `json:"value"`
	DF     int     `json:"df"`
	PValue float64 `json:"p_value"`
}

type NNT struct {
	Value *float64 `json:"value"`
	Type  string   `json:"type"`
}

type TwoByTwoResult struct {
	Table                   Table2x2         `json:"table"`
	ExposureName            string           `json:"exposure_name"`
	OutcomeName             string           `json:"outcome_name"`
	Risks                   Risks            `json:"risks"`
	OddsRatio               RatioEstimate    `json:"odds_ratio"`
	RelativeRisk            RatioEstimate    `json:"relative_risk"`
	ChiSquare               ChiSquareSummary `json:"chi_square"`
	FisherExactP            float64          `json:"fisher_exact_p"`
	NNT                     NNT              `json:"nnt"`
	AttributableRiskExposed *float64         `json:"attributable_risk_exposed"`
	Significant             bool             `json:"significant"`
}

func (*TwoByTwoResult) AnalysisKind() Kind { return KindTwoByTwo }

type IncidenceComparison struct {
	Events        int        `json:"events"`
	PersonTime    float64    `json:"person_time"`
	IncidenceRate float64    `json:"incidence_rate"`
	IRPer1000     float64    `json:"ir_per_1000"`
	IRR           *float64   `json:"irr"`
	IRRCI95       []*float64 `json:"irr_ci_95"`
	PValue        *float64   `json:"p_value"`
	Significant   *bool      `json:"significant"`
}

type IncidenceResult struct {
	Events        int                  `json:"events"`
	PersonTime    float64              `json:"person_time"`
	TimeUnit      string               `json:"time_unit"`
	IncidenceRate float64              `json:"incidence_rate"`
	IRPer1000     float64              `json:"ir_per_1000"`
	CI95          []float64            `json:"ci_95"`
	CI95Per1000   []float64            `json:"ci_95_per_1000"`
	Comparison    *IncidenceComparison `json:"comparison,omitempty"`
}

func (*IncidenceResult) AnalysisKind() Kind { return KindIncidence }

type Coefficient struct {
	Variable    string    `json:"variable"`
	Coef        float64   `json:"coef"`
	SE          float64   `json:"se"`
	Z           float64   `json:"z"`
	PValue      float64   `json:"p_value"`
	CI95        []float64 `json:"ci_95"`
	OddsRatio   *float64  `json:"odds_ratio"`
	ORCI95      []float64 `json:"or_ci_95"`
	Significant bool      `json:"significant"`
}

// LogisticResult carries Error when the server could not fit the model;
// that case arrives with a 200 status.
type LogisticResult struct {
	N             int           `json:"n"`
	NEvents       int           `json:"n_events"`
	LogLikelihood float64       `json:"log_likelihood"`
	AIC           float64       `json:"aic"`
	BIC           float64       `json:"bic"`
	McFaddenR2    float64       `json:"mcfadden_r2"`
	Coefficients  []Coefficient `json:"coefficients"`
	Error         string        `json:"error,omitempty"`
}

func (*LogisticResult) AnalysisKind() Kind { return KindLogistic }

// Biomarker

type ThresholdPerformance struct {
	Threshold   float64  `json:"threshold"`
	TP          int      `json:"tp"`
	FP          int      `json:"fp"`
	TN          int      `json:"tn"`
	FN          int      `json:"fn"`
	Sensitivity float64  `json:"sensitivity"`
	Specificity float64  `json:"specificity"`
	PPV         float64  `json:"ppv"`
	NPV         float64  `json:"npv"`
	Accuracy    float64  `json:"accuracy"`
	PositiveLR  *float64 `json:"positive_lr"`
	NegativeLR  *float64 `json:"negative_lr"`
}

type OptimalThreshold struct {
	ThresholdPerformance
	Value       float64 `json:"value"`
	YoudenIndex float64 `json:"youden_index"`
}

type ROCCurve struct {
	FPR []float64 `json:"fpr"`
	TPR []float64 `json:"tpr"`
}

type ROCResult struct {
	MarkerName        string                 `json:"marker_name"`
	N                 int                    `json:"n"`
	NPositive         int                    `json:"n_positive"`
	NNegative         int                    `json:"n_negative"`
	Prevalence        float64                `json:"prevalence"`
	AUC               float64                `json:"auc"`
	AUCSE             float64                `json:"auc_se"`
	AUCCI95           []float64              `json:"auc_ci_95"`
	AUCZ              float64                `json:"auc_z"`
	AUCP              float64                `json:"auc_p"`
	AUCInterpretation string                 `json:"auc_interpretation"`
	ROCCurve          ROCCurve               `json:"roc_curve"`
	OptimalThreshold  OptimalThreshold       `json:"optimal_threshold"`
	SelectedThreshold *ThresholdPerformance  `json:"selected_threshold"`
	SensSpecTable     []ThresholdPerformance `json:"sens_spec_table"`
}

func (*ROCResult) AnalysisKind() Kind { return KindROC }
