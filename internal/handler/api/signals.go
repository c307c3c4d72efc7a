package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	pkghttp "SigForge/pkg/http"
	"SigForge/pkg/logger"
	"SigForge/pkg/util"
)

// SignalHandler serves ranked selections and signal detail.
type SignalHandler struct {
	signals repository.SignalStore
	logger  *logger.Logger
}

// NewSignalHandler creates the signal API handler.
func NewSignalHandler(signals repository.SignalStore, lgr *logger.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, logger: lgr}
}

// RegisterRoutes registers the signal endpoints.
func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/selections", h.ListSelections)
	e.GET("/api/signals/:id", h.GetSignal)
}

// ListSelections returns the ranked selection records for one period.
func (h *SignalHandler) ListSelections(c echo.Context) error {
	var req models.ListSelectionsRequest
	if errs := pkghttp.ReadAndValidateRequest(c, &req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	if _, ok := util.ParsePeriodKey(req.Period); !ok {
		return pkghttp.AppErrorResponse(c,
			pkghttp.BadRequestErrorf("period must look like 2026-03-10T14, got %q", req.Period))
	}

	records, err := h.signals.SelectionsByPeriod(c.Request().Context(), req.Period)
	if err != nil {
		h.logger.Error("failed to load selections", logger.String("period", req.Period), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.ListResponse(c, records, int64(len(records)))
}

// GetSignal returns one candidate signal by id.
func (h *SignalHandler) GetSignal(c echo.Context) error {
	id := c.Param("id")

	sig, err := h.signals.SignalByID(c.Request().Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundErrorf("signal %s not found", id))
	}
	if err != nil {
		h.logger.Error("failed to load signal", logger.String("id", id), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.SuccessResponse(c, sig)
}
