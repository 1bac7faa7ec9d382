package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"medstat/domain/dataset"
)

// TrialGeneratorConfig configures the synthetic clinical trial generator
type TrialGeneratorConfig struct {
	PatientCount   int       `json:"patient_count"`
	Arms           []string  `json:"arms"`
	BaseHazard     float64   `json:"base_hazard"`    // events per day in the reference arm
	HazardRatio    float64   `json:"hazard_ratio"`   // applied to every arm after the first
	FollowUpDays   int       `json:"follow_up_days"` // administrative censoring
	MissingRate    float64   `json:"missing_rate"`   // share of missing biomarker values
	EnrollmentFrom time.Time `json:"enrollment_from"`
	Seed           int64     `json:"seed"`
}

// DefaultTrialConfig returns sensible defaults for trial data generation
func DefaultTrialConfig() TrialGeneratorConfig {
	return TrialGeneratorConfig{
		PatientCount:   200,
		Arms:           []string{"placebo", "treatment"},
		BaseHazard:     1.0 / 365,
		HazardRatio:    0.6,
		FollowUpDays:   730,
		MissingRate:    0.05,
		EnrollmentFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:           42,
	}
}

// TrialColumns is the column order of generated datasets
var TrialColumns = []string{
	"patient_id", "arm", "sex", "age", "enrolled", "biomarker", "time_days", "event", "responder",
}

// TrialDataGenerator produces reproducible two-arm trial datasets with
// survival, biomarker and response columns.
type TrialDataGenerator struct {
	config TrialGeneratorConfig
	rng    *rand.Rand
}

// NewTrialDataGenerator creates a new trial data generator
func NewTrialDataGenerator(config TrialGeneratorConfig) *TrialDataGenerator {
	if len(config.Arms) == 0 {
		config.Arms = DefaultTrialConfig().Arms
	}
	return &TrialDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the dataset; the same seed always yields the same rows
func (g *TrialDataGenerator) Generate(name string) (*dataset.Dataset, error) {
	rows := make([][]string, 0, g.config.PatientCount)
	for i := 0; i < g.config.PatientCount; i++ {
		rows = append(rows, g.patientRow(i))
	}
	return dataset.New(name, dataset.SourceManual, TrialColumns, rows)
}

func (g *TrialDataGenerator) patientRow(i int) []string {
	armIdx := i % len(g.config.Arms)
	hazard := g.config.BaseHazard
	if armIdx > 0 {
		hazard *= g.config.HazardRatio
	}

	age := clamp(math.Round(62+g.rng.NormFloat64()*11), 18, 95)
	// Older patients fare a little worse.
	hazard *= math.Exp((age - 62) * 0.02)

	eventDay := g.rng.ExpFloat64() / hazard
	timeDays, event := eventDay, 1
	if eventDay > float64(g.config.FollowUpDays) {
		timeDays, event = float64(g.config.FollowUpDays), 0
	}
	// Some patients drop out early and are censored.
	if g.rng.Float64() < 0.1 {
		dropout := g.rng.Float64() * timeDays
		if dropout < timeDays {
			timeDays, event = dropout, 0
		}
	}

	// The biomarker is shifted upwards in patients who go on to have an event.
	marker := 2.0 + g.rng.NormFloat64()*0.8
	if event == 1 {
		marker += 0.9
	}
	markerCell := strconv.FormatFloat(math.Round(marker*100)/100, 'f', -1, 64)
	if g.rng.Float64() < g.config.MissingRate {
		markerCell = ""
	}

	responder := 0
	if g.rng.Float64() < responseProbability(armIdx, marker) {
		responder = 1
	}

	enrolled := g.randomTimeInRange(g.config.EnrollmentFrom, g.config.EnrollmentFrom.AddDate(0, 6, 0))

	return []string{
		fmt.Sprintf("P%04d", i+1),
		g.config.Arms[armIdx],
		g.randomSex(),
		strconv.Itoa(int(age)),
		enrolled.Format("2006-01-02"),
		markerCell,
		strconv.Itoa(int(math.Max(1, math.Ceil(timeDays)))),
		strconv.Itoa(event),
		strconv.Itoa(responder),
	}
}

func responseProbability(armIdx int, marker float64) float64 {
	logit := -0.5 - 0.4*(marker-2)
	if armIdx > 0 {
		logit += 0.8
	}
	return 1 / (1 + math.Exp(-logit))
}

// Helper methods for random value generation

func (g *TrialDataGenerator) randomTimeInRange(start, end time.Time) time.Time {
	if start.After(end) {
		start, end = end, start
	}
	duration := end.Sub(start)
	if duration <= 0 {
		return start
	}
	return start.Add(time.Duration(g.rng.Int63n(int64(duration))))
}

func (g *TrialDataGenerator) randomSex() string {
	if g.rng.Float64() < 0.52 {
		return "F"
	}
	return "M"
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
