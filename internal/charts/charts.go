// Package charts renders analysis results as PNG or SVG images.
package charts

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"

	"medstat/domain/analysis"
	"medstat/internal"
	"medstat/internal/errors"
)

// ErrNoChart is returned for results that have no chart
var ErrNoChart = stderrors.New("no chart for this result")

// Format is an output image format
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" and "svg", defaulting to PNG
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unsupported chart format %q", s))
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Chart names
const (
	KaplanMeier = "km"
	Forest      = "forest"
	Funnel      = "funnel"
	Box         = "box"
	PowerChart  = "power"
	ROC         = "roc"
)

// Options sizes the rendered images
type Options struct {
	Width  int
	Height int
	Format Format
}

// DefaultOptions returns the standard chart size
func DefaultOptions() Options {
	return Options{Width: 800, Height: 480, Format: FormatPNG}
}

// Renderer draws the charts of analysis results
type Renderer struct {
	opts   Options
	logger *internal.Logger
}

func NewRenderer(opts Options, logger *internal.Logger) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Renderer{opts: opts, logger: logger.Component("charts")}
}

// Options returns the renderer's image options
func (r *Renderer) Options() Options {
	return r.opts
}

// WithFormat returns a renderer drawing the same size in another format
func (r *Renderer) WithFormat(f Format) *Renderer {
	cp := *r
	cp.opts.Format = f
	return &cp
}

// Available lists the charts that can be drawn for res, default first
func Available(res analysis.Result) []string {
	switch res.(type) {
	case *analysis.SurvivalResult:
		return []string{KaplanMeier}
	case *analysis.MetaResult:
		return []string{Forest, Funnel}
	case *analysis.TTestResult, *analysis.AnovaResult:
		return []string{Box}
	case *analysis.SampleSizeResult:
		return []string{PowerChart}
	case *analysis.ROCResult:
		return []string{ROC}
	}
	return nil
}

// Render draws the default chart of res
func (r *Renderer) Render(w io.Writer, res analysis.Result) error {
	names := Available(res)
	if len(names) == 0 {
		return ErrNoChart
	}
	return r.RenderNamed(w, res, names[0])
}

// RenderNamed draws one chart of res by name
func (r *Renderer) RenderNamed(w io.Writer, res analysis.Result, name string) error {
	ch, err := r.build(res, name)
	if err != nil {
		return err
	}
	ch.Width, ch.Height = r.opts.Width, r.opts.Height

	provider := chart.PNG
	if r.opts.Format == FormatSVG {
		provider = chart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		r.logger.Warn("render %s chart: %v", name, err)
		return errors.Wrapf(err, "render %s chart", name)
	}
	return nil
}

// RenderAll draws every available chart of res concurrently
func (r *Renderer) RenderAll(ctx context.Context, res analysis.Result) (map[string][]byte, error) {
	names := Available(res)
	if len(names) == 0 {
		return nil, ErrNoChart
	}

	images := make([][]byte, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := r.RenderNamed(&buf, res, name); err != nil {
				return err
			}
			images[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(names))
	for i, name := range names {
		out[name] = images[i]
	}
	return out, nil
}

func (r *Renderer) build(res analysis.Result, name string) (*chart.Chart, error) {
	switch v := res.(type) {
	case *analysis.SurvivalResult:
		if name == KaplanMeier {
			return kaplanMeierChart(v)
		}
	case *analysis.MetaResult:
		switch name {
		case Forest:
			return forestChart(v)
		case Funnel:
			return funnelChart(v)
		}
	case *analysis.TTestResult:
		if name == Box {
			return boxChart("Group distributions", v.GroupNames, v.Groups)
		}
	case *analysis.AnovaResult:
		if name == Box {
			names := make([]string, len(v.GroupStats))
			for i, g := range v.GroupStats {
				names[i] = g.Name
			}
			return boxChart("Group distributions", names, v.Groups)
		}
	case *analysis.SampleSizeResult:
		if name == PowerChart {
			return powerChart(v)
		}
	case *analysis.ROCResult:
		if name == ROC {
			return rocChart(v)
		}
	}
	return nil, ErrNoChart
}
