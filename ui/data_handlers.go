package ui

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medstat/domain/analysis"
	"medstat/domain/core"
	"medstat/domain/dataset"
	"medstat/internal/errors"
	"medstat/internal/preview"
	"medstat/ui/services"
)

// multipartSlack covers the multipart framing around the uploaded file
const multipartSlack = 1 << 20

type redcapBody struct {
	URL        string `json:"url" binding:"required,url"`
	Token      string `json:"token" binding:"required"`
	RawOrLabel string `json:"raw_or_label" binding:"omitempty,oneof=raw label"`
}

// handleUpload sends the file to the stats API and opens the preview on the
// parsed rows. The dataset is bound to the tab only on confirm.
func (s *Server) handleUpload(c *gin.Context) {
	sess, tab, err := s.tab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	limit := s.cfg.StatsAPI.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)
	fh, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, errors.ValidationError("choose a CSV or Excel file to upload"))
		return
	}
	if fh.Size > limit {
		s.respondError(c, errors.ValidationErrorf("%s is larger than the %d MB upload limit", fh.Filename, limit>>20))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to read the uploaded file"))
		return
	}
	defer f.Close()

	out := tab.LoadTask().Run(c.Request.Context(), func(ctx context.Context) (*dataset.Dataset, error) {
		res, err := s.api.Upload(ctx, fh.Filename, f)
		if err != nil {
			return nil, err
		}
		return decodeUpload(res, fh.Filename, dataset.SourceUpload)
	})
	if out.Err != nil {
		s.respondError(c, out.Err)
		return
	}

	s.logger.Info("session %s: uploaded %s (%d rows) for %s in %s",
		sess.ID, fh.Filename, out.Value.RowCount(), tab.Kind, out.Elapsed)
	sess.OpenPreview(tab.Kind, out.Value, fh.Filename)
	s.respondPreview(c, sess.Preview)
}

func (s *Server) handleREDCap(c *gin.Context) {
	sess, tab, err := s.tab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var body redcapBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, errors.ValidationError("a REDCap API URL and token are required"))
		return
	}

	out := tab.LoadTask().Run(c.Request.Context(), func(ctx context.Context) (*dataset.Dataset, error) {
		res, err := s.api.FetchREDCap(ctx, analysis.REDCapRequest{
			URL:        body.URL,
			Token:      body.Token,
			RawOrLabel: body.RawOrLabel,
		})
		if err != nil {
			return nil, err
		}
		return decodeUpload(res, "REDCap export", dataset.SourceREDCap)
	})
	if out.Err != nil {
		s.respondError(c, out.Err)
		return
	}

	s.logger.Info("session %s: fetched %d REDCap records for %s in %s",
		sess.ID, out.Value.RowCount(), tab.Kind, out.Elapsed)
	sess.OpenPreview(tab.Kind, out.Value, "REDCap export")
	s.respondPreview(c, sess.Preview)
}

// handleTabDataset describes the dataset bound to a tab
func (s *Server) handleTabDataset(c *gin.Context) {
	kind, tab, err := s.peekTab(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tab == nil || tab.Dataset() == nil {
		s.respondError(c, fmt.Errorf("%w: %s", core.ErrNoDataset, kind))
		return
	}

	ds := tab.Dataset()
	view := services.DatasetView{
		Kind:      kind,
		Name:      ds.Name,
		Rows:      ds.RowCount(),
		Summaries: preview.Summarize(ds),
	}
	if isHTMX(c) {
		s.fragment(c, http.StatusOK, s.render.RenderDataset(view))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":     kind,
		"name":     ds.Name,
		"source":   ds.Source,
		"rows":     view.Rows,
		"columns":  view.Summaries,
		"bound_at": tab.BoundAt(),
		"form":     tab.Form(),
	})
}

func decodeUpload(res *analysis.UploadResult, name string, source dataset.Source) (*dataset.Dataset, error) {
	ds, err := res.Dataset(name, source)
	if err != nil {
		return nil, errors.ExternalServiceError("stats API", err)
	}
	if ds.RowCount() == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("%s: %v", name, core.ErrEmptyDataset))
	}
	return ds, nil
}
