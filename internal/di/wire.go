//go:build wireinject
// +build wireinject

package di

import (
	"AlertRelay/pkg/config"
	"AlertRelay/pkg/server"

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
		ProvideDatabase,
		ProvideLocker,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and adapters
		ProvideSubscriberStore,
		ProvideLedgerStore,
		ProvideEventPublisher,
		ProvideRelay,
		ProvideMarketClock,
		ProvideDayLocation,

		// Use cases
		ProvideDeliveryLedger,
		ProvideEligibilityFilter,
		ProvideDispatcher,
		ProvidePipeline,
		ProvideKafkaTriggerHandler,
		ProvideDigest,

		// Transport and jobs
		ProvideRateLimiter,
		ProvideAlertsHandler,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
