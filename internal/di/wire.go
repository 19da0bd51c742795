//go:build wireinject
// +build wireinject

package di

import (
	"MarketLens/internal/domain/repository"
	"MarketLens/internal/domain/service"
	"MarketLens/internal/services/gateway"
	"MarketLens/internal/services/predictor"
	"MarketLens/pkg/config"
	"MarketLens/pkg/metrics"
	"MarketLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideInstanceID,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedis,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSeriesStore,
		ProvideEventPublisher,
		ProvideResponseCache,

		// Services
		ProvideSeriesSource,
		ProvideGateway,
		wire.Bind(new(service.SeriesFetcher), new(*gateway.Gateway)),
		ProvidePredictor,
		wire.Bind(new(service.PriceForecaster), new(*predictor.Service)),
		ProvideRateLimiter,

		// Use cases
		ProvideCollectUseCase,
		ProvideAnalyticsUseCase,
		ProvideRefreshHandler,
		ProvideCollectQueue,
		ProvideScheduler,

		// Transport
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeCollector wires the collection path only.
func InitializeCollector(cfg *config.Config) (*Collector, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideInstanceID,
		ProvideClickHouseClient,
		ProvideRedis,
		ProvideKafkaProducer,
		ProvideSeriesStore,
		ProvideEventPublisher,
		ProvideResponseCache,
		ProvideSeriesSource,
		ProvideGateway,
		wire.Bind(new(service.SeriesFetcher), new(*gateway.Gateway)),
		ProvideCollectUseCase,
		ProvideCollector,
	)
	return &Collector{}, nil
}
