package ui

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"medstat/domain/analysis"
	"medstat/domain/core"
	"medstat/internal/session"
	"medstat/ui/middleware"
)

type tabView struct {
	analysis.Descriptor
	Active bool
}

// handleIndex renders the dashboard, reusing the browser's session when its
// cookie is still valid.
func (s *Server) handleIndex(c *gin.Context) {
	sess := s.sessionFromCookie(c)
	if sess == nil {
		sess = s.state.Create()
		middleware.SetSessionCookie(c, sess.ID, s.cookieMaxAge())
	}

	active := sess.ActiveKind()
	if active == "" {
		active = analysis.Kinds()[0].Kind
	}
	tabs := make([]tabView, 0, len(analysis.Kinds()))
	for _, d := range analysis.Kinds() {
		tabs = append(tabs, tabView{Descriptor: d, Active: d.Kind == active})
	}

	s.renderTemplate(c, "index.html", gin.H{
		"SessionID": sess.ID,
		"Tabs":      tabs,
		"Active":    active,
		"Preview":   template.HTML(s.render.RenderPreview(sess.Preview.Snapshot(s.cfg.Preview.RowLimit))),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.state.Create()
	middleware.SetSessionCookie(c, sess.ID, s.cookieMaxAge())
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (s *Server) handleDropSession(c *gin.Context) {
	s.state.Drop(middleware.Session(c).ID)
	middleware.SetSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleActivate(c *gin.Context) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	sess := middleware.Session(c)
	tab := sess.Activate(kind)
	c.JSON(http.StatusOK, gin.H{
		"active":      kind,
		"has_dataset": tab.Dataset() != nil,
		"preview":     sess.Preview.Active(),
	})
}

// tab resolves the :kind parameter to the tab session without switching to
// it. Handlers switch only once the request has succeeded.
func (s *Server) tab(c *gin.Context) (*session.BrowserSession, *session.TabSession, error) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		return nil, nil, err
	}
	sess := middleware.Session(c)
	return sess, sess.Ensure(kind), nil
}

// peekTab resolves :kind without activating it. The tab is nil when it was
// never used.
func (s *Server) peekTab(c *gin.Context) (analysis.Kind, *session.TabSession, error) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		return "", nil, err
	}
	tab, _ := middleware.Session(c).Tab(kind)
	return kind, tab, nil
}

func (s *Server) sessionFromCookie(c *gin.Context) *session.BrowserSession {
	raw, err := c.Cookie(middleware.SessionCookie)
	if err != nil {
		return nil
	}
	id, err := core.ParseID(raw)
	if err != nil {
		return nil
	}
	sess, err := s.state.Get(id)
	if err != nil {
		return nil
	}
	return sess
}

func (s *Server) cookieMaxAge() int {
	return int(s.cfg.Session.TTL.Seconds())
}
