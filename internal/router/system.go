package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/adoption-agency/internal/handler"
)

// registerSystemRoutes registers endpoints that are not part of the
// species API: health and the API docs.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/docs/openapi.json", h.OpenAPI.ServeOpenAPISpec)
}
