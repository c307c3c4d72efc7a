package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"SigForge/pkg/cache"
	"SigForge/pkg/clickhouse"
)

// HealthHandler exposes liveness and dependency checks.
type HealthHandler struct {
	clickhouse *clickhouse.Client
	redis      *cache.RedisCache
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(ch *clickhouse.Client, redis *cache.RedisCache) *HealthHandler {
	return &HealthHandler{clickhouse: ch, redis: redis}
}

// RegisterRoutes registers the health endpoint.
func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

// Health reports service and storage health.
func (h *HealthHandler) Health(c echo.Context) error {
	status := map[string]string{"service": "ok", "clickhouse": "ok", "redis": "ok"}
	code := http.StatusOK

	if h.clickhouse != nil {
		if err := h.clickhouse.Health(c.Request().Context()); err != nil {
			status["clickhouse"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(c.Request().Context()); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
