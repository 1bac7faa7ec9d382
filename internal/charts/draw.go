package charts

import (
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"medstat/domain/analysis"
	"medstat/internal/errors"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
}

var (
	colorGrey  = drawing.ColorFromHex("7f7f7f")
	colorBlack = drawing.ColorFromHex("222222")
)

func seriesColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: width}
}

func dashedStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col.WithAlpha(160), StrokeWidth: 1, StrokeDashArray: []float64{5, 4}}
}

// pointStyle renders points only, no connecting line
func pointStyle(col drawing.Color, size float64) chart.Style {
	return chart.Style{StrokeWidth: 0, StrokeColor: drawing.ColorTransparent, DotWidth: size, DotColor: col}
}

func baseChart(title string) *chart.Chart {
	return &chart.Chart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
	}
}

func segment(name string, x0, y0, x1, y1 float64, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{Name: name, XValues: []float64{x0, x1}, YValues: []float64{y0, y1}, Style: style}
}

// padded returns a range around [lo, hi] that is never empty
func padded(lo, hi, frac float64) *chart.ContinuousRange {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(lo), 1)
	}
	return &chart.ContinuousRange{Min: lo - span*frac, Max: hi + span*frac}
}

func kaplanMeierChart(res *analysis.SurvivalResult) (*chart.Chart, error) {
	if len(res.Curves) == 0 {
		return nil, errors.ValidationError("no survival curves to plot")
	}
	ch := baseChart("Kaplan-Meier survival")
	maxT := 0.0
	for i, c := range res.Curves {
		col := seriesColor(i)
		xs, ys := StepSeries(c.Times, c.Survival)
		if len(xs) == 0 {
			continue
		}
		maxT = math.Max(maxT, xs[len(xs)-1])
		ch.Series = append(ch.Series, chart.ContinuousSeries{
			Name: fmt.Sprintf("%s (n=%d)", c.Label, c.N), XValues: xs, YValues: ys, Style: lineStyle(col, 2),
		})
		if lx, ly := StepSeries(c.Times, c.LowerCI); len(lx) > 0 {
			ch.Series = append(ch.Series, chart.ContinuousSeries{Name: c.Label + " 95% CI", XValues: lx, YValues: ly, Style: dashedStyle(col)})
		}
		if ux, uy := StepSeries(c.Times, c.UpperCI); len(ux) > 0 {
			ch.Series = append(ch.Series, chart.ContinuousSeries{Name: c.Label + " 95% CI", XValues: ux, YValues: uy, Style: dashedStyle(col)})
		}
	}
	if len(ch.Series) == 0 {
		return nil, errors.ValidationError("no survival curves to plot")
	}
	if maxT <= 0 {
		maxT = 1
	}
	ch.XAxis = chart.XAxis{Name: "Time", Range: &chart.ContinuousRange{Min: 0, Max: maxT}}
	ch.YAxis = chart.YAxis{Name: "Survival probability", Range: &chart.ContinuousRange{Min: 0, Max: 1.05}}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch, nil
}

func rocChart(res *analysis.ROCResult) (*chart.Chart, error) {
	if len(res.ROCCurve.FPR) == 0 || len(res.ROCCurve.FPR) != len(res.ROCCurve.TPR) {
		return nil, errors.ValidationError("no ROC curve to plot")
	}
	ch := baseChart(fmt.Sprintf("ROC curve: %s", res.MarkerName))
	fx, fy := ROCOptimalPoint(res)
	ch.Series = []chart.Series{
		chart.ContinuousSeries{
			Name:    fmt.Sprintf("AUC = %.3f", res.AUC),
			XValues: res.ROCCurve.FPR,
			YValues: res.ROCCurve.TPR,
			Style:   lineStyle(seriesColor(0), 2),
		},
		segment("Chance", 0, 0, 1, 1, dashedStyle(colorGrey)),
		chart.ContinuousSeries{
			Name:    fmt.Sprintf("Optimal threshold %.3g", res.OptimalThreshold.Value),
			XValues: []float64{fx},
			YValues: []float64{fy},
			Style:   pointStyle(seriesColor(1), 6),
		},
	}
	ch.XAxis = chart.XAxis{Name: "1 - Specificity", Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	ch.YAxis = chart.YAxis{Name: "Sensitivity", Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch, nil
}

// forestChart lays studies out top to bottom with the pooled estimate last
func forestChart(res *analysis.MetaResult) (*chart.Chart, error) {
	rows := ForestRows(res)
	if len(rows) < 2 {
		return nil, errors.ValidationError("no studies to plot")
	}
	ch := baseChart(fmt.Sprintf("Forest plot (%s)", res.Label))

	lo, hi := res.NullDisplay, res.NullDisplay
	ticks := make([]chart.Tick, 0, len(rows))
	for i, row := range rows {
		y := float64(len(rows) - i)
		lo, hi = math.Min(lo, row.Lower), math.Max(hi, row.Upper)
		ticks = append(ticks, chart.Tick{Value: y, Label: row.Label})

		if row.Pooled {
			// Diamond spanning the confidence interval.
			ch.Series = append(ch.Series, chart.ContinuousSeries{
				Name:    row.Label,
				XValues: []float64{row.Lower, row.Estimate, row.Upper, row.Estimate, row.Lower},
				YValues: []float64{y, y + 0.3, y, y - 0.3, y},
				Style:   lineStyle(colorBlack, 1.5),
			})
			continue
		}
		ch.Series = append(ch.Series,
			segment(row.Label, row.Lower, y, row.Upper, y, lineStyle(colorBlack, 1.5)),
			chart.ContinuousSeries{
				Name:    row.Label,
				XValues: []float64{row.Estimate},
				YValues: []float64{y},
				Style:   pointStyle(seriesColor(0), 3+row.Weight/10),
			},
		)
	}
	ch.Series = append(ch.Series, segment("No effect", res.NullDisplay, 0.3, res.NullDisplay, float64(len(rows))+0.7, dashedStyle(colorGrey)))

	ch.XAxis = chart.XAxis{Name: res.Label, Range: padded(lo, hi, 0.08)}
	ch.YAxis = chart.YAxis{Range: &chart.ContinuousRange{Min: 0.3, Max: float64(len(rows)) + 0.7}, Ticks: ticks}
	return ch, nil
}

// funnelChart puts the standard error on a downward axis so the most
// precise studies sit at the top.
func funnelChart(res *analysis.MetaResult) (*chart.Chart, error) {
	fd := res.FunnelData
	if len(fd.Yi) == 0 || len(fd.Yi) != len(fd.Sei) {
		return nil, errors.ValidationError("no funnel data to plot")
	}
	maxSE := 0.0
	for _, s := range fd.Sei {
		maxSE = math.Max(maxSE, s)
	}
	if maxSE <= 0 {
		maxSE = 1
	}
	maxSE *= 1.1

	negSE := make([]float64, len(fd.Sei))
	for i, s := range fd.Sei {
		negSE[i] = -s
	}
	se, lower, upper := FunnelLimits(fd.PooledEst, maxSE, 20)
	negLimit := make([]float64, len(se))
	for i, s := range se {
		negLimit[i] = -s
	}

	ch := baseChart("Funnel plot")
	ch.Series = []chart.Series{
		chart.ContinuousSeries{Name: "Studies", XValues: fd.Yi, YValues: negSE, Style: pointStyle(seriesColor(0), 5)},
		chart.ContinuousSeries{Name: "Pseudo 95% CI", XValues: lower, YValues: negLimit, Style: dashedStyle(colorGrey)},
		chart.ContinuousSeries{Name: "Pseudo 95% CI", XValues: upper, YValues: negLimit, Style: dashedStyle(colorGrey)},
		segment("Pooled", fd.PooledEst, 0, fd.PooledEst, -maxSE, lineStyle(seriesColor(1), 1)),
	}

	ticks := make([]chart.Tick, 0, 5)
	for i := 4; i >= 0; i-- {
		v := maxSE * float64(i) / 4
		ticks = append(ticks, chart.Tick{Value: -v, Label: fmt.Sprintf("%.2f", v)})
	}
	lo, hi := lower[len(lower)-1], upper[len(upper)-1]
	for _, y := range fd.Yi {
		lo, hi = math.Min(lo, y), math.Max(hi, y)
	}
	ch.XAxis = chart.XAxis{Name: "Effect (yi)", Range: padded(lo, hi, 0.05)}
	ch.YAxis = chart.YAxis{Name: "Standard error", Range: &chart.ContinuousRange{Min: -maxSE, Max: 0}, Ticks: ticks}
	return ch, nil
}

func boxChart(title string, names []string, groups [][]float64) (*chart.Chart, error) {
	if len(groups) == 0 {
		return nil, errors.ValidationError("no groups to plot")
	}
	ch := baseChart(title)
	ticks := make([]chart.Tick, 0, len(groups))
	lo, hi := math.Inf(1), math.Inf(-1)

	for i, values := range groups {
		name := fmt.Sprintf("Group %d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		box, err := BoxStats(name, values)
		if err != nil {
			return nil, err
		}
		x := float64(i + 1)
		col := seriesColor(i)
		ticks = append(ticks, chart.Tick{Value: x, Label: name})
		lo, hi = math.Min(lo, box.Min), math.Max(hi, box.Max)

		const half = 0.25
		ch.Series = append(ch.Series,
			chart.ContinuousSeries{
				Name:    name,
				XValues: []float64{x - half, x + half, x + half, x - half, x - half},
				YValues: []float64{box.Q1, box.Q1, box.Q3, box.Q3, box.Q1},
				Style:   lineStyle(col, 1.5),
			},
			segment(name+" median", x-half, box.Median, x+half, box.Median, lineStyle(col, 2.5)),
			segment(name+" whisker", x, box.Q3, x, box.UpperWhisker, lineStyle(col, 1)),
			segment(name+" whisker", x, box.Q1, x, box.LowerWhisker, lineStyle(col, 1)),
			segment(name+" cap", x-half/2, box.UpperWhisker, x+half/2, box.UpperWhisker, lineStyle(col, 1)),
			segment(name+" cap", x-half/2, box.LowerWhisker, x+half/2, box.LowerWhisker, lineStyle(col, 1)),
		)
		if len(box.Outliers) > 0 {
			xs := make([]float64, len(box.Outliers))
			for j := range xs {
				xs[j] = x
			}
			ch.Series = append(ch.Series, chart.ContinuousSeries{Name: name + " outliers", XValues: xs, YValues: box.Outliers, Style: pointStyle(col, 4)})
		}
	}

	ch.XAxis = chart.XAxis{Range: &chart.ContinuousRange{Min: 0.4, Max: float64(len(groups)) + 0.6}, Ticks: ticks}
	ch.YAxis = chart.YAxis{Name: "Value", Range: padded(lo, hi, 0.08)}
	return ch, nil
}

func powerChart(res *analysis.SampleSizeResult) (*chart.Chart, error) {
	curve, err := PowerCurve(res, 60)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	for i, p := range curve {
		xs[i], ys[i] = float64(p.N1), p.Power
	}

	ch := baseChart(fmt.Sprintf("Power curve (d = %.2f, alpha = %g)", *res.EffectSize, res.Alpha))
	ch.Series = []chart.Series{
		chart.ContinuousSeries{Name: "Power", XValues: xs, YValues: ys, Style: lineStyle(seriesColor(0), 2)},
		segment(fmt.Sprintf("Target %.0f%%", res.Power*100), xs[0], res.Power, xs[len(xs)-1], res.Power, dashedStyle(colorGrey)),
		chart.ContinuousSeries{
			Name:    fmt.Sprintf("Required n1 = %d", res.N1),
			XValues: []float64{float64(res.N1)},
			YValues: []float64{Power(*res.EffectSize, res.Alpha, res.N1, res.N2)},
			Style:   pointStyle(seriesColor(1), 6),
		},
	}
	ch.XAxis = chart.XAxis{Name: "Sample size per group (n1)", Range: &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]}}
	ch.YAxis = chart.YAxis{Name: "Power", Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch, nil
}
