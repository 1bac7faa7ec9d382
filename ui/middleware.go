package ui

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures gin middleware and static files
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		s.router.Use(gin.Logger())
	} else {
		s.router.Use(s.requestLogger())
	}

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		s.logger.Error("static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// requestLogger logs slow or failed requests outside debug mode
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, status, elapsed)
		case status >= http.StatusBadRequest:
			s.logger.Debug("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, status, elapsed)
		case elapsed > 5*time.Second:
			s.logger.Warn("slow request %s %s took %s", c.Request.Method, c.Request.URL.Path, elapsed)
		}
	}
}
