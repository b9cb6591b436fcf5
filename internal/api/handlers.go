// Package api contains the HTTP handlers for the agent-facing REST API.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fieldbridge/internal/engine"
	"fieldbridge/internal/registry"
	"fieldbridge/pkg/models"
)

// Version of the service reported by health and root endpoints.
const Version = "1.0.0"

// Reloader rebuilds the active registry snapshot from the definition files.
type Reloader func() error

// Logger is the logging interface the handlers write through.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server holds the dependencies for the API server.
type Server struct {
	Engine    *engine.Engine
	Reload    Reloader
	Logger    Logger
	startedAt time.Time
}

// NewServer creates a new Server.
func NewServer(eng *engine.Engine, reload Reloader, logger Logger) *Server {
	return &Server{
		Engine:    eng,
		Reload:    reload,
		Logger:    logger,
		startedAt: time.Now(),
	}
}

// Register mounts the API routes. The group is expected to carry the auth
// middleware; health and root stay unauthenticated for probes.
func (s *Server) Register(e *echo.Echo, g *echo.Group) {
	e.GET("/", s.HandleRoot)
	e.GET("/health", s.HandleHealth)
	g.POST("/trigger", s.HandleTrigger)
	g.GET("/workflows", s.HandleListWorkflows)
	g.POST("/reload", s.HandleReload)
}

// HandleRoot returns the service descriptor.
func (s *Server) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "fieldbridge",
		"version": Version,
		"endpoints": map[string]string{
			"health":    "/health",
			"trigger":   "/api/v1/trigger (POST)",
			"workflows": "/api/v1/workflows",
			"reload":    "/api/v1/reload (POST)",
		},
	})
}

// HandleHealth returns service health and registry statistics.
func (s *Server) HandleHealth(c echo.Context) error {
	reg := s.Engine.Registry()
	enabled := 0
	for _, wf := range reg.Workflows() {
		if wf.Enabled {
			enabled++
		}
	}
	return c.JSON(http.StatusOK, models.HealthStatus{
		Status:        "healthy",
		Service:       "fieldbridge",
		Version:       Version,
		Workflows:     enabled,
		Connectors:    len(reg.Connectors()),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Timestamp:     time.Now(),
	})
}

// HandleTrigger executes the workflow owning the posted trigger. This is the
// main endpoint the agent calls when a hotkey fires. Execution failures are
// part of the response contract, not HTTP errors: the agent always receives
// a well-formed result.
func (s *Server) HandleTrigger(c echo.Context) error {
	var req models.TriggerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Trigger == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trigger is required")
	}

	result := s.Engine.Execute(c.Request().Context(), req.Trigger, req.Context)
	return c.JSON(http.StatusOK, result)
}

// HandleListWorkflows lists configured workflows by identity only.
func (s *Server) HandleListWorkflows(c echo.Context) error {
	reg := s.Engine.Registry()
	workflows := reg.Workflows()
	summaries := make([]models.WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		summaries = append(summaries, models.WorkflowSummary{
			ID:        wf.ID,
			Name:      wf.Name,
			Trigger:   registry.NormalizeTrigger(wf.Trigger),
			Connector: wf.ConnectorID,
			Enabled:   wf.Enabled,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"workflows": summaries,
		"total":     len(summaries),
	})
}

// HandleReload rebuilds the registry from the definition files and swaps it
// in atomically. On failure the previous snapshot stays active.
func (s *Server) HandleReload(c echo.Context) error {
	if s.Reload == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "reload is not configured")
	}
	if err := s.Reload(); err != nil {
		s.Logger.Error("config reload rejected", "error", err)
		return c.JSON(http.StatusUnprocessableEntity, models.ProblemDetails{
			Type:   "about:blank",
			Title:  "Configuration rejected",
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
		})
	}
	reg := s.Engine.Registry()
	s.Logger.Info("configuration reloaded", "workflows", len(reg.Workflows()), "connectors", len(reg.Connectors()))
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "reloaded",
		"workflows":  len(reg.Workflows()),
		"connectors": len(reg.Connectors()),
	})
}
