package charts

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"medstat/domain/analysis"
	"medstat/internal/errors"
)

// StepSeries expands a survival curve into the points of a right-continuous
// step function: each drop is drawn as a horizontal then a vertical segment.
func StepSeries(times, values []float64) (xs, ys []float64) {
	n := min(len(times), len(values))
	if n == 0 {
		return nil, nil
	}
	xs = make([]float64, 0, 2*n)
	ys = make([]float64, 0, 2*n)
	xs = append(xs, times[0])
	ys = append(ys, values[0])
	for i := 1; i < n; i++ {
		xs = append(xs, times[i], times[i])
		ys = append(ys, values[i-1], values[i])
	}
	return xs, ys
}

// ForestRow is one line of a forest plot on the display scale
type ForestRow struct {
	Label    string
	Estimate float64
	Lower    float64
	Upper    float64
	Weight   float64
	Pooled   bool
}

// ForestRows lists the studies in input order followed by the pooled
// estimate of the selected model.
func ForestRows(res *analysis.MetaResult) []ForestRow {
	rows := make([]ForestRow, 0, len(res.ForestStudies)+1)
	for _, s := range res.ForestStudies {
		rows = append(rows, ForestRow{
			Label:    s.Name,
			Estimate: s.EffectDisplay,
			Lower:    s.CILoDisplay,
			Upper:    s.CIHiDisplay,
			Weight:   s.Weight,
		})
	}
	pooled := ForestRow{Label: pooledLabel(res.Model), Estimate: res.Pooled.Display, Pooled: true}
	if len(res.Pooled.CIDisplay) == 2 {
		pooled.Lower, pooled.Upper = res.Pooled.CIDisplay[0], res.Pooled.CIDisplay[1]
	} else {
		pooled.Lower, pooled.Upper = pooled.Estimate, pooled.Estimate
	}
	return append(rows, pooled)
}

func pooledLabel(model string) string {
	if model == "fixed" {
		return "Pooled (fixed)"
	}
	return "Pooled (random)"
}

// FunnelLimits returns the pseudo 95% confidence limits around pooled for
// standard errors from 0 to maxSE.
func FunnelLimits(pooled, maxSE float64, steps int) (se, lower, upper []float64) {
	if steps < 2 {
		steps = 2
	}
	se = make([]float64, steps)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for i := range se {
		s := maxSE * float64(i) / float64(steps-1)
		se[i] = s
		lower[i] = pooled - 1.96*s
		upper[i] = pooled + 1.96*s
	}
	return se, lower, upper
}

// BoxSummary holds the Tukey box plot statistics of one group
type BoxSummary struct {
	Name         string
	N            int
	Min          float64
	Q1           float64
	Median       float64
	Q3           float64
	Max          float64
	LowerWhisker float64
	UpperWhisker float64
	Outliers     []float64
}

// BoxStats computes quartiles and 1.5 IQR whiskers. Groups with fewer than
// four values fall back to min and max for the quartiles.
func BoxStats(name string, values []float64) (BoxSummary, error) {
	if len(values) == 0 {
		return BoxSummary{}, errors.ValidationErrorf("group %s has no values", name)
	}
	data := stats.Float64Data(values)
	box := BoxSummary{Name: name, N: len(values)}
	box.Min, _ = data.Min()
	box.Max, _ = data.Max()
	box.Median, _ = data.Median()

	if q, err := stats.Quartile(data); err == nil {
		box.Q1, box.Q3 = q.Q1, q.Q3
	} else {
		box.Q1, box.Q3 = box.Min, box.Max
	}

	iqr := box.Q3 - box.Q1
	lo, hi := box.Q1-1.5*iqr, box.Q3+1.5*iqr
	box.LowerWhisker, box.UpperWhisker = box.Max, box.Min
	for _, v := range values {
		if v < lo || v > hi {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		box.LowerWhisker = math.Min(box.LowerWhisker, v)
		box.UpperWhisker = math.Max(box.UpperWhisker, v)
	}
	sort.Float64s(box.Outliers)
	return box, nil
}

// PowerPoint is the approximate power reached with N1 and N2 subjects
type PowerPoint struct {
	N1    int
	N2    int
	Power float64
}

// Power approximates the power of a two-sided two-sample test for a
// standardized effect size d with the normal approximation
// Φ(|d|·sqrt(n1·n2/(n1+n2)) − z(1−α/2)).
func Power(d, alpha float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 0
	}
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	ncp := math.Abs(d) * math.Sqrt(float64(n1)*float64(n2)/float64(n1+n2))
	return distuv.UnitNormal.CDF(ncp - z)
}

// PowerCurve evaluates Power for group-1 sizes from 2 up to twice the
// required n1 (at least 20), keeping the allocation ratio of the result.
func PowerCurve(res *analysis.SampleSizeResult, points int) ([]PowerPoint, error) {
	if res.EffectSize == nil || *res.EffectSize == 0 {
		return nil, errors.ValidationError("the result has no effect size to plot")
	}
	if res.Alpha <= 0 || res.Alpha >= 1 {
		return nil, errors.ValidationErrorf("alpha %g is outside (0, 1)", res.Alpha)
	}
	ratio := res.Ratio
	if ratio <= 0 {
		ratio = 1
	}
	maxN := max(2*res.N1, 20)
	if points < 2 {
		points = 2
	}

	curve := make([]PowerPoint, 0, points)
	last := 0
	for i := 0; i < points; i++ {
		n1 := 2 + int(math.Round(float64(maxN-2)*float64(i)/float64(points-1)))
		if n1 == last {
			continue
		}
		last = n1
		n2 := int(math.Ceil(float64(n1) * ratio))
		curve = append(curve, PowerPoint{N1: n1, N2: n2, Power: Power(*res.EffectSize, res.Alpha, n1, n2)})
	}
	return curve, nil
}

// ROCOptimalPoint returns the (FPR, TPR) coordinates of the optimal threshold
func ROCOptimalPoint(res *analysis.ROCResult) (fpr, tpr float64) {
	return 1 - res.OptimalThreshold.Specificity, res.OptimalThreshold.Sensitivity
}
