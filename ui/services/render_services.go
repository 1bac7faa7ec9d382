package services

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"medstat/domain/analysis"
	"medstat/internal"
	"medstat/internal/preview"
)

const missing = "n/a"

// RenderService turns view models into HTML fragments for HTMX swaps
type RenderService struct {
	templates *template.Template
	logger    *internal.Logger
}

func NewRenderService(templates *template.Template) *RenderService {
	return &RenderService{
		templates: templates,
		logger:    internal.DefaultLogger.Component("render"),
	}
}

// ResultView is the data handed to the result templates
type ResultView struct {
	Kind      analysis.Kind
	Title     string
	Result    analysis.Result
	Charts    []string
	ElapsedMS int64
}

// DatasetView is the data handed to the bound dataset summary
type DatasetView struct {
	Kind      analysis.Kind
	Name      string
	Rows      int
	Summaries []preview.ColumnSummary
}

func (s *RenderService) RenderPreview(snap preview.Snapshot) string {
	return s.execute("fragments/preview.html", snap,
		`<div class="alert alert-error">Error rendering preview</div>`)
}

// RenderResult renders the result panel of a tab, falling back to a raw JSON
// view for kinds without a dedicated template.
func (s *RenderService) RenderResult(view ResultView) string {
	if view.Title == "" {
		view.Title = Title(view.Kind)
	}
	name := "fragments/result_" + string(view.Kind) + ".html"
	if s.templates.Lookup(name) == nil {
		name = "fragments/result_generic.html"
	}
	return s.execute(name, view,
		`<div class="alert alert-error">Error rendering result</div>`)
}

func (s *RenderService) RenderDataset(view DatasetView) string {
	return s.execute("fragments/dataset_summary.html", view,
		`<div class="alert alert-error">Error rendering dataset summary</div>`)
}

func (s *RenderService) RenderError(msg string) string {
	return s.execute("fragments/error.html", msg,
		`<div class="alert alert-error">`+template.HTMLEscapeString(msg)+`</div>`)
}

// RenderMarkdown converts trusted help text to HTML
func (s *RenderService) RenderMarkdown(md []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML(md, p, renderer))
}

func (s *RenderService) execute(name string, data any, fallback string) string {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("failed to render %s: %v", name, err)
		return fallback
	}
	return buf.String()
}

// FuncMap holds the helpers available to every template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"add":    func(a, b int) int { return a + b },
		"num":    FormatNumber,
		"pvalue": FormatP,
		"pct":    FormatPercent,
		"ci":     FormatCI,
		"title":  Title,
		"join":   strings.Join,
		"path":   url.PathEscape,
		"toJSON": func(v any) string {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err.Error()
			}
			return string(b)
		},
	}
}

// FormatNumber prints a number with three decimals. Nil pointers and
// non-finite values print as n/a.
func FormatNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return formatFloat(n)
	case *float64:
		if n == nil {
			return missing
		}
		return formatFloat(*n)
	case int:
		return fmt.Sprintf("%d", n)
	case nil:
		return missing
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return missing
	}
	return fmt.Sprintf("%.3f", f)
}

// FormatP prints p-values the way journals do
func FormatP(v any) string {
	var p float64
	switch n := v.(type) {
	case float64:
		p = n
	case *float64:
		if n == nil {
			return missing
		}
		p = *n
	default:
		return missing
	}
	if p < 0.001 {
		return "< 0.001"
	}
	return fmt.Sprintf("%.3f", p)
}

func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatCI prints a two-element interval as [lo, hi]
func FormatCI(v any) string {
	switch ci := v.(type) {
	case []float64:
		if len(ci) == 2 {
			return "[" + formatFloat(ci[0]) + ", " + formatFloat(ci[1]) + "]"
		}
	case []*float64:
		if len(ci) == 2 {
			return "[" + FormatNumber(ci[0]) + ", " + FormatNumber(ci[1]) + "]"
		}
	}
	return missing
}

// Title returns the display title of an analysis kind
func Title(kind analysis.Kind) string {
	if d, ok := analysis.Describe(kind); ok {
		return d.Title
	}
	return string(kind)
}
