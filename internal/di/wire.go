//go:build wireinject
// +build wireinject

package di

import (
	"SigForge/pkg/config"
	"SigForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,

		// Stores
		ProvideMarketStore,
		ProvideSentimentStore,
		ProvideSignalStore,
		ProvideBacktestStore,

		// Pipeline services
		ProvideTimeframeSet,
		ProvideFeatureBuilder,
		ProvideStrategyEngine,
		ProvideEntryDetector,
		ProvidePredictor,
		ProvideSelectionEngine,
		ProvidePipeline,

		// Backtesting
		ProvideEntryDecider,
		ProvideBacktestEngine,
		ProvideBacktestJob,
		ProvideQueue,

		// Ingest
		ProvideKafkaConsumer,
		ProvideIngestHandlers,
		ProvideFeedClient,

		// API and application server
		ProvideRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
