// Package httpd exposes the simulation service over HTTP. Runs are
// created and queried as JSON; truth tables download as CSV and stored
// reports render as HTML.
package httpd

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scsim/app"
	"scsim/internal"
)

// Server wraps the gin router and the simulation service.
type Server struct {
	router *gin.Engine
	sims   *app.SimulationService
	log    *internal.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(sims *app.SimulationService) *Server {
	s := &Server{
		router: gin.Default(),
		sims:   sims,
		log:    internal.DefaultLogger.WithPrefix("httpd: "),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.POST("/runs", s.handleCreateRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/truth.csv", s.handleTruthCSV)
	api.GET("/runs/:id/report", s.handleReport)
	api.DELETE("/runs/:id", s.handleDeleteRun)
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	s.log.Info("listening on http://%s", addr)
	return s.router.Run(addr)
}
