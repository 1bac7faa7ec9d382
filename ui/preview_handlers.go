package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"medstat/adapters/excel"
	"medstat/domain/core"
	"medstat/internal/errors"
	"medstat/internal/preview"
	"medstat/ui/middleware"
	"medstat/ui/services"
)

type columnsBody struct {
	Included *bool `json:"included" form:"included" binding:"required"`
}

// filterBody keeps the row bounds as text; the store falls back to the full
// range for anything that is not a number.
type filterBody struct {
	Search  string `json:"search" form:"search"`
	FromRow string `json:"from_row" form:"from_row"`
	ToRow   string `json:"to_row" form:"to_row"`
}

// respondPreview answers with the current snapshot, or the preview panel for HTMX
func (s *Server) respondPreview(c *gin.Context, store *preview.Store) {
	snap := store.Snapshot(s.cfg.Preview.RowLimit)
	if isHTMX(c) {
		s.fragment(c, http.StatusOK, s.render.RenderPreview(snap))
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handlePreview(c *gin.Context) {
	s.respondPreview(c, middleware.Session(c).Preview)
}

func (s *Server) handleToggleColumn(c *gin.Context) {
	store := middleware.Session(c).Preview
	store.ToggleColumn(c.Param("name"))
	s.respondPreview(c, store)
}

func (s *Server) handleSetAllColumns(c *gin.Context) {
	var body columnsBody
	if err := c.ShouldBind(&body); err != nil {
		s.respondError(c, errors.ValidationError("included must be true or false"))
		return
	}
	store := middleware.Session(c).Preview
	store.SetAllColumns(*body.Included)
	s.respondPreview(c, store)
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var body filterBody
	if err := c.ShouldBind(&body); err != nil {
		s.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid filter: %v", err)))
		return
	}
	store := middleware.Session(c).Preview
	store.SetFilter(body.Search, body.FromRow, body.ToRow)
	s.respondPreview(c, store)
}

func (s *Server) handleClearFilter(c *gin.Context) {
	store := middleware.Session(c).Preview
	store.ClearFilter()
	s.respondPreview(c, store)
}

// handleConfirm applies the selection, which binds it to the tab that
// opened the preview.
func (s *Server) handleConfirm(c *gin.Context) {
	sess := middleware.Session(c)
	kind, ds, ok := sess.ConfirmPreview()
	if !ok {
		s.respondError(c, core.ErrPreviewInactive)
		return
	}
	s.logger.Info("session %s: bound %d rows x %d columns to %s",
		sess.ID, ds.RowCount(), ds.ColumnCount(), kind)

	if isHTMX(c) {
		s.fragment(c, http.StatusOK, s.render.RenderDataset(services.DatasetView{
			Kind:      kind,
			Name:      ds.Name,
			Rows:      ds.RowCount(),
			Summaries: preview.Summarize(ds),
		}))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"name":    ds.Name,
		"rows":    ds.RowCount(),
		"columns": ds.ColumnNames(),
	})
}

func (s *Server) handleCancel(c *gin.Context) {
	store := middleware.Session(c).Preview
	store.Cancel()
	s.respondPreview(c, store)
}

// handleExport downloads the current selection without confirming it
func (s *Server) handleExport(c *gin.Context) {
	ft, ok := excel.ParseFileType(c.Query("format"))
	if !ok {
		s.respondError(c, errors.ValidationErrorf("unsupported export format %q, use csv or xlsx", c.Query("format")))
		return
	}
	ds, ok := middleware.Session(c).Preview.Result()
	if !ok {
		s.respondError(c, core.ErrPreviewInactive)
		return
	}

	var buf bytes.Buffer
	if err := excel.NewWriter(ft).Write(&buf, ds); err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(ds.Name, ft)))
	c.Data(http.StatusOK, ft.ContentType(), buf.Bytes())
}

func exportName(name string, ft excel.FileType) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "dataset"
	}
	return base + "_selection" + ft.Extension()
}
