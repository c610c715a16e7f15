//go:build wireinject
// +build wireinject

package di

import (
	"StockPull/pkg/config"
	"StockPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// Repositories and upstream
		ProvideKISClient,
		ProvideUniverse,
		ProvideQuoteCache,
		ProvideFundamentalsCache,
		ProvideResultPublisher,

		// Use cases
		ProvideQuoteFetcher,
		ProvideVerifier,
		ProvideEnricher,
		ProvideKafkaCandidatesHandler,
		ProvideKafkaConsumer,

		// HTTP
		ProvideHealth,
		ProvideEnrichHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
