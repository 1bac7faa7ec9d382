package ui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"medstat/internal/errors"
	"medstat/ui/services"
)

func parseTemplates() (*template.Template, error) {
	templates, err := template.New("").Funcs(services.FuncMap()).
		ParseFS(embeddedFiles, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}
	return templates, nil
}

// renderTemplate executes a page template into a buffer first so template
// errors never leave a half written response.
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("template error for %s (data %T): %v", templateName, data, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "template rendering failed",
			"code":  errors.CodeInternalError,
		})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// isHTMX reports whether the request wants an HTML fragment
func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

func (s *Server) fragment(c *gin.Context, status int, html string) {
	c.Data(status, "text/html; charset=utf-8", []byte(html))
}
