package api

import "github.com/labstack/echo/v4"

// Router bundles all API handlers behind one pkg/http.Handler.
type Router struct {
	signals   *SignalHandler
	backtests *BacktestHandler
	health    *HealthHandler
}

// NewRouter creates the combined route registrar.
func NewRouter(signals *SignalHandler, backtests *BacktestHandler, health *HealthHandler) *Router {
	return &Router{signals: signals, backtests: backtests, health: health}
}

// RegisterRoutes registers every handler's routes on the Echo instance.
func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.signals.RegisterRoutes(e)
	r.backtests.RegisterRoutes(e)
	r.health.RegisterRoutes(e)
}
