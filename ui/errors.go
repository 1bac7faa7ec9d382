package ui

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medstat/domain/core"
	"medstat/internal/charts"
	"medstat/internal/errors"
	"medstat/internal/task"
)

// appError maps domain sentinels onto coded application errors
func appError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, task.ErrInFlight):
		return errors.Conflict(err.Error())
	case stderrors.Is(err, core.ErrPreviewInactive):
		return errors.Conflict(err.Error())
	case core.IsNotFoundError(err), stderrors.Is(err, core.ErrUnknownAnalysis), stderrors.Is(err, charts.ErrNoChart):
		return errors.New(errors.CodeNotFound, err.Error())
	case stderrors.Is(err, core.ErrNoDataset), stderrors.Is(err, core.ErrEmptyDataset), stderrors.Is(err, core.ErrDuplicateColumn):
		return errors.ValidationError(err.Error())
	}
	return errors.InternalError(err.Error())
}

// respondError answers with {error, code}; HTMX requests get an alert
// fragment instead. Server errors are logged with their cause chain.
func (s *Server) respondError(c *gin.Context, err error) {
	appErr := appError(err)
	status := errors.HTTPStatus(appErr)

	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		s.logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	if isHTMX(c) {
		s.fragment(c, status, s.render.RenderError(appErr.Message))
		return
	}
	c.JSON(status, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
