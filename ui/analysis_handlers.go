package ui

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstat/domain/analysis"
	"medstat/internal/charts"
	"medstat/internal/errors"
	"medstat/internal/forms"
	"medstat/ui/services"
)

// handleRun validates the posted form against the tab's dataset and calls
// the stats API. A second run while one is in flight gets 409.
func (s *Server) handleRun(c *gin.Context) {
	sess, tab, err := s.tab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		s.respondError(c, errors.InvalidInput("could not read the form"))
		return
	}
	form, err := forms.Decode(tab.Kind, raw)
	if err != nil {
		s.respondError(c, err)
		return
	}
	tab.SetForm(raw)

	out := tab.Task().Run(c.Request.Context(), func(ctx context.Context) (analysis.Result, error) {
		return forms.Submit(ctx, s.api, form, tab.Dataset())
	})
	if out.Err != nil {
		s.respondError(c, out.Err)
		return
	}

	sess.Activate(tab.Kind)
	tab.SetResult(out.Value)
	s.logger.Debug("session %s: %s finished in %s", sess.ID, tab.Kind, out.Elapsed)
	s.respondResult(c, tab.Kind, out.Value, out.Elapsed)
}

func (s *Server) handleResult(c *gin.Context) {
	kind, tab, err := s.peekTab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tab == nil || tab.Result() == nil {
		s.respondError(c, errors.NotFound(string(kind)+" result"))
		return
	}
	s.respondResult(c, kind, tab.Result(), 0)
}

func (s *Server) respondResult(c *gin.Context, kind analysis.Kind, res analysis.Result, elapsed time.Duration) {
	names := charts.Available(res)
	if isHTMX(c) {
		s.fragment(c, http.StatusOK, s.render.RenderResult(services.ResultView{
			Kind:      kind,
			Result:    res,
			Charts:    names,
			ElapsedMS: elapsed.Milliseconds(),
		}))
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       kind,
		"result":     res,
		"charts":     names,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// handleChart draws one chart of the tab's last result. ?chart picks the
// chart, the first available one otherwise; ?format is png or svg.
func (s *Server) handleChart(c *gin.Context) {
	kind, tab, err := s.peekTab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tab == nil || tab.Result() == nil {
		s.respondError(c, errors.NotFound(string(kind)+" result"))
		return
	}
	format, err := charts.ParseFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	res := tab.Result()
	name := c.Query("chart")
	if name == "" {
		available := charts.Available(res)
		if len(available) == 0 {
			s.respondError(c, charts.ErrNoChart)
			return
		}
		name = available[0]
	}

	var buf bytes.Buffer
	if err := s.charts.WithFormat(format).RenderNamed(&buf, res, name); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleHelp(c *gin.Context) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	md, err := fs.ReadFile(embeddedFiles, "help/"+string(kind)+".md")
	if err != nil {
		s.respondError(c, errors.NotFound(string(kind)+" help"))
		return
	}

	html := s.render.RenderMarkdown(md)
	if isHTMX(c) {
		s.fragment(c, http.StatusOK, string(html))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":  kind,
		"title": services.Title(kind),
		"html":  html,
	})
}
