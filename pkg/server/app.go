package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
	"SigForge/internal/service/marketfeed"
	"SigForge/internal/usecase"
	"SigForge/pkg/cache"
	pkgch "SigForge/pkg/clickhouse"
	"SigForge/pkg/config"
	xhttp "SigForge/pkg/http"
	pkgkafka "SigForge/pkg/kafka"
	"SigForge/pkg/logger"
	"SigForge/pkg/queue"
)

// App encapsulates the application lifecycle: the HTTP API, the evaluation
// scheduler, the backtest job queue, the Kafka ingest consumer and the
// optional exchange feed.
type App struct {
	cfg      *config.Config
	logger   *logger.Logger
	pipeline *usecase.Pipeline
	queue    *queue.RedisQueue
	consumer *pkgkafka.Consumer
	handlers []pkgkafka.MessageHandler
	feed     *marketfeed.Client
	chClient *pkgch.Client
	redis    *cache.RedisCache
	metrics  repository.Metrics

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates an App. consumer and feed may be nil when the corresponding
// ingest path is not configured.
func New(
	cfg *config.Config,
	lgr *logger.Logger,
	pipeline *usecase.Pipeline,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	feed *marketfeed.Client,
	chClient *pkgch.Client,
	redisCache *cache.RedisCache,
	m repository.Metrics,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      lgr,
		pipeline:    pipeline,
		queue:       q,
		consumer:    consumer,
		handlers:    handlers,
		feed:        feed,
		chClient:    chClient,
		redis:       redisCache,
		metrics:     m,
		httpHandler: httpHandler,
	}
}

// Run starts every component and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.logger.Info("http server started", logger.Int("port", a.cfg.Server.Port))

	if err := a.queue.Start(); err != nil {
		return err
	}
	a.logger.Info("backtest queue started", logger.Int("workers", a.cfg.Backtest.Workers))

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.logger.Info("kafka consumer started", logger.Int("topics", len(a.handlers)))
	}

	if a.feed != nil {
		go a.feed.Run(ctx)
		a.logger.Info("market feed started", logger.Strings("symbols", a.cfg.Feed.Symbols))
	}

	go a.sampleQueueDepth(ctx)

	go a.schedule(ctx)
	a.logger.Info("pipeline scheduler started",
		logger.Duration("interval", a.cfg.Pipeline.Interval),
		logger.Int("symbols", len(a.cfg.Pipeline.Symbols)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// schedule runs one evaluation cycle per period, aligned to period
// boundaries. A conflict means another worker closed the period first,
// which is expected in multi-instance deployments.
func (a *App) schedule(ctx context.Context) {
	interval := a.cfg.Pipeline.Interval

	for {
		next := time.Now().UTC().Truncate(interval).Add(interval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		result, err := a.pipeline.RunCycle(ctx, next)
		switch {
		case err == nil:
			if !result.Complete {
				a.logger.Warn("cycle finished with skipped symbols",
					logger.String("period", result.PeriodKey),
					logger.Int("skipped", len(result.Skipped)),
				)
			}
		case errors.Is(err, models.ErrSelectionConflict):
			a.logger.Info("selection already closed elsewhere", logger.Error(err))
		case ctx.Err() != nil:
			return
		default:
			a.logger.Error("pipeline cycle failed", logger.Error(err))
		}
	}
}

// depthReader reports how many jobs are waiting in a queue.
type depthReader interface {
	Depth(ctx context.Context) (int64, error)
}

// sampleQueueDepth reports outstanding backtest jobs to the metrics gauge.
func (a *App) sampleQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		reportQueueDepth(ctx, a.queue, a.metrics, a.logger)
	}
}

func reportQueueDepth(ctx context.Context, q depthReader, m repository.Metrics, lgr *logger.Logger) {
	depth, err := q.Depth(ctx)
	if err != nil {
		if ctx.Err() == nil {
			lgr.Warn("queue depth sample failed", logger.Error(err))
		}
		return
	}
	m.SetBacktestQueueDepth(int(depth))
}

// shutdown stops components in reverse start order.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.logger.Warn("queue stop error", logger.Error(err))
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Warn("http shutdown error", logger.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close error", logger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", logger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
