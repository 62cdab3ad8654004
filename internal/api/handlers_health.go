// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sat-practice/backend/internal/parser"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	registry *parser.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, registry *parser.Registry) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		registry: registry,
	}
}

// HandleHealth returns server health status and the dialects in chain order
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	dialects := make([]string, 0, 2)
	for _, p := range h.registry.Parsers() {
		dialects = append(dialects, string(p.Dialect()))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"dialects": dialects,
	})
}
