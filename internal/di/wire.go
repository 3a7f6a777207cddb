//go:build wireinject
// +build wireinject

package di

import (
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,

		// Infrastructure clients
		ProvidePostgres,
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePriceHistory,
		ProvidePredictionSink,
		ProvideProductStore,
		ProvideAlertStore,
		ProvideEventPublisher,
		ProvideArtifactStore,

		// Domain services
		ProvideModelStore,
		ProvideAnalyzer,
		ProvideSearchClient,
		ProvideNotifyQueue,
		ProvideNotifier,
		ProvideHub,
		ProvidePipeline,

		// Use cases
		ProvideEngine,
		ProvideIngestHandler,
		ProvideMonitor,
		ProvideProducts,
		ProvideReports,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
