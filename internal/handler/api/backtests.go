package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/usecase"
	pkghttp "SigForge/pkg/http"
	"SigForge/pkg/logger"
	"SigForge/pkg/queue"
	"SigForge/pkg/util"
)

// BacktestHandler submits backtest runs to the job queue and serves their
// results.
type BacktestHandler struct {
	store  repository.BacktestStore
	queue  queue.Service
	logger *logger.Logger
}

// NewBacktestHandler creates the backtest API handler.
func NewBacktestHandler(store repository.BacktestStore, q queue.Service, lgr *logger.Logger) *BacktestHandler {
	return &BacktestHandler{store: store, queue: q, logger: lgr}
}

// RegisterRoutes registers the backtest endpoints.
func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/backtests", h.CreateBacktest)
	e.GET("/api/backtests/:id", h.GetBacktest)
}

// backtestResponse bundles a run with its ordered trades.
type backtestResponse struct {
	Run    models.BacktestRun     `json:"run"`
	Trades []models.BacktestTrade `json:"trades"`
}

// CreateBacktest persists a PENDING run and queues it for execution.
func (h *BacktestHandler) CreateBacktest(c echo.Context) error {
	var req models.CreateBacktestRequest
	if errs := pkghttp.ReadAndValidateRequest(c, &req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}

	from, ok := util.ParseTime(req.From)
	if !ok {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestErrorf("invalid from timestamp %q", req.From))
	}
	to, ok := util.ParseTime(req.To)
	if !ok {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestErrorf("invalid to timestamp %q", req.To))
	}
	if !from.Before(to) {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("from must be before to"))
	}

	now := time.Now().UTC()
	run := models.BacktestRun{
		ID:             fmt.Sprintf("bt-%s-%d", req.Symbol, now.UnixNano()),
		Strategy:       "trend-breakout",
		Symbol:         req.Symbol,
		From:           from,
		To:             to,
		InitialCapital: req.InitialCapital,
		Config: models.BacktestConfig{
			Timeframe:     req.Timeframe,
			TakeProfitPct: req.TakeProfitPct,
			StopLossPct:   req.StopLossPct,
			MaxHoldBars:   req.MaxHoldBars,
			GapTolerance:  req.GapTolerance,
			FillPolicy:    models.FillPolicy(req.FillPolicy),
		},
		Status:    models.BacktestPending,
		CreatedAt: now,
	}

	ctx := c.Request().Context()
	if err := h.store.CreateRun(ctx, run); err != nil {
		h.logger.Error("failed to create run", logger.String("symbol", req.Symbol), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	if err := h.queue.PublishMessage(ctx, usecase.BacktestMessageType,
		usecase.BacktestJobPayload{RunID: run.ID}); err != nil {
		h.logger.Error("failed to queue run", logger.String("run", run.ID), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}

	return pkghttp.CreatedResponse(c, run)
}

// GetBacktest returns a run with its trade list.
func (h *BacktestHandler) GetBacktest(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	run, err := h.store.RunByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundErrorf("backtest %s not found", id))
	}
	if err != nil {
		h.logger.Error("failed to load run", logger.String("id", id), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}

	trades, err := h.store.TradesByRun(ctx, id)
	if err != nil {
		h.logger.Error("failed to load trades", logger.String("id", id), logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.SuccessResponse(c, backtestResponse{Run: run, Trades: trades})
}
