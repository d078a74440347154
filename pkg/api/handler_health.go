package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/version"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Services: map[string]string{
			"research_sessions": "ready",
			"extraction":        "ready",
			"events":            "ready",
		},
	})
}
