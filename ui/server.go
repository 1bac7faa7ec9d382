// Package ui is the dashboard server: it owns the browser sessions, proxies
// analyses to the stats API and returns JSON, HTML fragments and charts.
package ui

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstat/internal"
	"medstat/internal/charts"
	"medstat/internal/config"
	"medstat/internal/errors"
	"medstat/internal/session"
	"medstat/ports"
	"medstat/ui/middleware"
	"medstat/ui/services"
)

//go:embed templates static help
var embeddedFiles embed.FS

// Deps are the collaborators of the server
type Deps struct {
	Config *config.Config
	State  *session.AppState
	API    ports.StatsAPI
	Charts *charts.Renderer
	Logger *internal.Logger
}

// Server represents the web server of the dashboard
type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	state     *session.AppState
	api       ports.StatsAPI
	charts    *charts.Renderer
	templates *template.Template
	render    *services.RenderService
	logger    *internal.Logger
}

// NewServer creates the server with every route registered
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.State == nil || deps.API == nil {
		return nil, errors.ConfigInvalid("ui server needs config, session state and a stats API")
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	renderer := deps.Charts
	if renderer == nil {
		renderer = charts.NewRenderer(charts.Options{
			Width:  deps.Config.Charts.Width,
			Height: deps.Config.Charts.Height,
		}, logger)
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		cfg:       deps.Config,
		state:     deps.State,
		api:       deps.API,
		charts:    renderer,
		templates: templates,
		render:    services.NewRenderService(templates),
		logger:    logger.Component("ui"),
	}

	// Column names may contain slashes
	s.router.UseRawPath = true

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler of the dashboard
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening on %s (stats API %s)", srv.Addr, s.cfg.StatsAPI.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "dashboard server failed")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/api/session", s.handleCreateSession)

	api := s.router.Group("/api", middleware.RequireSession(s.state, s.respondError))
	{
		api.DELETE("/session", s.handleDropSession)

		tabs := api.Group("/tabs/:kind")
		tabs.POST("/activate", s.handleActivate)
		tabs.POST("/upload", s.handleUpload)
		tabs.POST("/redcap", s.handleREDCap)
		tabs.GET("/dataset", s.handleTabDataset)
		tabs.POST("/run", s.handleRun)
		tabs.GET("/result", s.handleResult)
		tabs.GET("/chart.png", s.handleChart)
		tabs.GET("/help", s.handleHelp)

		pv := api.Group("/preview")
		pv.GET("", s.handlePreview)
		pv.POST("/columns/:name/toggle", s.handleToggleColumn)
		pv.POST("/columns", s.handleSetAllColumns)
		pv.POST("/filter", s.handleSetFilter)
		pv.POST("/filter/clear", s.handleClearFilter)
		pv.POST("/confirm", s.handleConfirm)
		pv.POST("/cancel", s.handleCancel)
		pv.GET("/export", s.handleExport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"sessions":  s.state.Len(),
		"stats_api": s.cfg.StatsAPI.BaseURL,
	})
}
