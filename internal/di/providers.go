package di

import (
	"context"
	"fmt"
	"time"

	"SigForge/internal/domain/repository"
	"SigForge/internal/domain/service"
	"SigForge/internal/handler/api"
	internalrepo "SigForge/internal/repository"
	"SigForge/internal/service/marketfeed"
	"SigForge/internal/services/entry"
	"SigForge/internal/services/features"
	"SigForge/internal/services/ml"
	"SigForge/internal/services/strategy"
	"SigForge/internal/usecase"
	"SigForge/pkg/cache"
	pkgch "SigForge/pkg/clickhouse"
	"SigForge/pkg/config"
	xhttp "SigForge/pkg/http"
	pkgkafka "SigForge/pkg/kafka"
	"SigForge/pkg/logger"
	"SigForge/pkg/metrics"
	"SigForge/pkg/queue"
	"SigForge/pkg/server"
)

// TimeframeSet is the parsed confluence configuration shared by the
// feature builder, the strategy engine and the pipeline.
type TimeframeSet struct {
	Working repository.Timeframe
	All     []repository.Timeframe
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := internalrepo.InitSchema(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache creates the Redis cache used for the selection lease
// and the backtest job queue.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideMarketStore creates the candle store.
func ProvideMarketStore(client *pkgch.Client) repository.MarketStore {
	return internalrepo.NewMarketStore(client)
}

// ProvideSentimentStore creates the sentiment snapshot store.
func ProvideSentimentStore(client *pkgch.Client) repository.SentimentStore {
	return internalrepo.NewSentimentStore(client)
}

// ProvideSignalStore creates the signal and selection store.
func ProvideSignalStore(client *pkgch.Client) repository.SignalStore {
	return internalrepo.NewSignalStore(client)
}

// ProvideBacktestStore creates the backtest run store.
func ProvideBacktestStore(client *pkgch.Client) repository.BacktestStore {
	return internalrepo.NewBacktestStore(client)
}

// ProvideTimeframeSet parses the configured confluence timeframes.
func ProvideTimeframeSet(cfg *config.Config) (TimeframeSet, error) {
	working, err := repository.ParseTimeframe(cfg.Pipeline.WorkingTimeframe)
	if err != nil {
		return TimeframeSet{}, fmt.Errorf("pipeline.working_timeframe: %w", err)
	}

	all := make([]repository.Timeframe, 0, len(cfg.Pipeline.Timeframes))
	for _, s := range cfg.Pipeline.Timeframes {
		tf, err := repository.ParseTimeframe(s)
		if err != nil {
			return TimeframeSet{}, fmt.Errorf("pipeline.timeframes: %w", err)
		}
		all = append(all, tf)
	}
	return TimeframeSet{Working: working, All: all}, nil
}

// ProvideFeatureBuilder creates the feature builder.
func ProvideFeatureBuilder(
	market repository.MarketStore,
	sentiment repository.SentimentStore,
	tfs TimeframeSet,
	cfg *config.Config,
	lgr *logger.Logger,
) *features.Builder {
	return features.NewBuilder(market, sentiment, features.Config{
		WorkingTimeframe: tfs.Working,
		Timeframes:       tfs.All,
		HistoryBars:      cfg.Pipeline.HistoryBars,
	}, lgr)
}

// ProvideStrategyEngine creates the technical strategy engine.
func ProvideStrategyEngine(tfs TimeframeSet, cfg *config.Config, lgr *logger.Logger) *strategy.Engine {
	return strategy.NewEngine(strategy.Config{
		Timeframes:    tfs.All,
		TakeProfitPct: cfg.Pipeline.TakeProfitPct,
		StopLossPct:   cfg.Pipeline.StopLossPct,
		MinRewardRisk: cfg.Pipeline.MinRewardRisk,
	}, lgr)
}

// ProvideEntryDetector creates the entry-point detector.
func ProvideEntryDetector(cfg *config.Config) *entry.Detector {
	return entry.NewDetector(cfg.Pipeline.EntryTolerance)
}

// ProvidePredictor creates the configured ML predictor family.
func ProvidePredictor(cfg *config.Config, lgr *logger.Logger) (service.Predictor, error) {
	return ml.NewPredictor(cfg.ML, lgr)
}

// ProvideSelectionEngine creates the dedup and selection engine. The Redis
// cache backs the per-period lease so mutual exclusion holds across
// processes.
func ProvideSelectionEngine(
	signals repository.SignalStore,
	redisCache *cache.RedisCache,
	m repository.Metrics,
	cfg *config.Config,
	lgr *logger.Logger,
) *usecase.SelectionEngine {
	return usecase.NewSelectionEngine(signals, redisCache, m, usecase.SelectionConfig{
		Quota:           cfg.Pipeline.Quota,
		DuplicateWindow: cfg.Pipeline.DuplicateWindow,
		LeaseTTL:        cfg.Pipeline.LeaseTTL,
	}, lgr)
}

// ProvidePipeline creates the evaluation pipeline.
func ProvidePipeline(
	builder *features.Builder,
	strategyEngine *strategy.Engine,
	detector *entry.Detector,
	predictor service.Predictor,
	selection *usecase.SelectionEngine,
	market repository.MarketStore,
	signals repository.SignalStore,
	m repository.Metrics,
	tfs TimeframeSet,
	cfg *config.Config,
	lgr *logger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(builder, strategyEngine, detector, predictor, selection, market, signals, m,
		usecase.PipelineConfig{
			Symbols:          cfg.Pipeline.Symbols,
			WorkingTimeframe: tfs.Working,
			HistoryBars:      cfg.Pipeline.HistoryBars,
			Workers:          cfg.Pipeline.Workers,
			StrategyWeight:   cfg.Pipeline.Weights.Strategy,
			SentimentWeight:  cfg.Pipeline.Weights.Sentiment,
			MLWeight:         cfg.Pipeline.Weights.ML,
		}, lgr)
}

// ProvideEntryDecider creates the backtester's entry decider from the live
// feature builder and strategy engine.
func ProvideEntryDecider(builder *features.Builder, strategyEngine *strategy.Engine) usecase.EntryDecider {
	return usecase.NewStrategyDecider(builder, strategyEngine)
}

// ProvideBacktestEngine creates the backtest engine.
func ProvideBacktestEngine(
	market repository.MarketStore,
	store repository.BacktestStore,
	decider usecase.EntryDecider,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.BacktestEngine {
	return usecase.NewBacktestEngine(market, store, decider, m, lgr)
}

// ProvideBacktestJob creates the queue job executing backtest runs.
func ProvideBacktestJob(engine *usecase.BacktestEngine, cfg *config.Config, lgr *logger.Logger) *usecase.BacktestJob {
	return usecase.NewBacktestJob(engine, cfg.Backtest.JobTimeout, lgr)
}

// ProvideQueue creates the Redis job queue with the backtest job
// registered. Queue workers bound the number of concurrent runs.
func ProvideQueue(lgr *logger.Logger, redisCache *cache.RedisCache, job *usecase.BacktestJob, cfg *config.Config) *queue.RedisQueue {
	q := queue.NewRedisQueue(lgr, &queue.Config{
		Workers:    cfg.Backtest.Workers,
		RetryLimit: 1,
		RetryDelay: 30 * time.Second,
	}, redisCache.Client())
	q.RegisterJob(job)
	return q
}

// ProvideKafkaConsumer creates the ingest consumer, or nil when Kafka is
// not configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideIngestHandlers registers the candle and sentiment topic handlers.
func ProvideIngestHandlers(
	market repository.MarketStore,
	sentiment repository.SentimentStore,
	cfg *config.Config,
	lgr *logger.Logger,
) []pkgkafka.MessageHandler {
	var handlers []pkgkafka.MessageHandler
	if cfg.Kafka.CandleTopic != "" {
		handlers = append(handlers, usecase.NewCandleIngestHandler(cfg.Kafka.CandleTopic, market, lgr))
	}
	if cfg.Kafka.SentimentTopic != "" {
		handlers = append(handlers, usecase.NewSentimentIngestHandler(cfg.Kafka.SentimentTopic, sentiment, lgr))
	}
	return handlers
}

// ProvideFeedClient creates the exchange market stream, or nil when the
// feed is disabled. The sink is Kafka or the store depending on the
// configured backend.
func ProvideFeedClient(cfg *config.Config, market repository.MarketStore, lgr *logger.Logger) (*marketfeed.Client, error) {
	if !cfg.Feed.Enabled {
		return nil, nil
	}

	var sink marketfeed.Sink
	switch cfg.Feed.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		)
		if err != nil {
			return nil, fmt.Errorf("feed producer: %w", err)
		}
		sink = marketfeed.NewKafkaSink(producer, cfg.Kafka.CandleTopic)
	default:
		sink = marketfeed.NewStoreSink(market)
	}

	return marketfeed.NewClient(marketfeed.Config{
		URL:            cfg.Feed.WebSocketURL,
		APIKey:         cfg.Feed.APIKey,
		Symbols:        cfg.Feed.Symbols,
		Timeframe:      cfg.Pipeline.WorkingTimeframe,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
	}, sink, lgr), nil
}

// ProvideRouter bundles the API handlers.
func ProvideRouter(
	signals repository.SignalStore,
	backtests repository.BacktestStore,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	redisCache *cache.RedisCache,
	lgr *logger.Logger,
) xhttp.Handler {
	return api.NewRouter(
		api.NewSignalHandler(signals, lgr),
		api.NewBacktestHandler(backtests, q, lgr),
		api.NewHealthHandler(chClient, redisCache),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
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
) *server.App {
	return server.New(cfg, lgr, pipeline, q, consumer, handlers, feed, chClient, redisCache, m, httpHandler)
}
