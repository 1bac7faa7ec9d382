package preview

import (
	"github.com/montanaflynn/stats"

	"medstat/domain/dataset"
)

// NumericSummary holds the descriptive figures shown for a numeric column
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// ColumnSummary describes one column of the previewed rows
type ColumnSummary struct {
	Name    string             `json:"name"`
	Type    dataset.ColumnType `json:"type"`
	Count   int                `json:"count"`
	Missing int                `json:"missing"`
	Unique  int                `json:"unique"`
	Numeric *NumericSummary    `json:"numeric,omitempty"`
}

// Summarize describes every column of ds. Numeric figures are only filled for
// numeric columns with at least one parseable value.
func Summarize(ds *dataset.Dataset) []ColumnSummary {
	if ds == nil {
		return nil
	}
	out := make([]ColumnSummary, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		sum := ColumnSummary{Name: col.Name, Type: col.Type}
		unique := make(map[string]struct{})
		var values stats.Float64Data
		for _, rec := range ds.Rows {
			v := rec[col.Name]
			if v == "" {
				sum.Missing++
				continue
			}
			sum.Count++
			unique[v] = struct{}{}
			if col.IsNumeric() {
				if f, ok := dataset.ParseNumber(v); ok {
					values = append(values, f)
				}
			}
		}
		sum.Unique = len(unique)
		if len(values) > 0 {
			sum.Numeric = describeNumbers(values)
		}
		out = append(out, sum)
	}
	return out
}

func describeNumbers(data stats.Float64Data) *NumericSummary {
	min, err := stats.Min(data)
	if err != nil {
		return nil
	}
	max, err := stats.Max(data)
	if err != nil {
		return nil
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return nil
	}
	median, err := stats.Median(data)
	if err != nil {
		return nil
	}
	// Sample standard deviation is undefined for a single value
	var sd float64
	if len(data) > 1 {
		if sd, err = stats.StandardDeviationSample(data); err != nil {
			return nil
		}
	}
	return &NumericSummary{Min: min, Max: max, Mean: mean, Median: median, StdDev: sd}
}
