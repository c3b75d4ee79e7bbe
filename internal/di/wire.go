//go:build wireinject
// +build wireinject

package di

import (
	"SellingView/pkg/config"
	"SellingView/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Metrics and logging
        ProvideMetrics,
        ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideOrderStorage,
		ProvideOrderPublisher,
		ProvideReportPublisher,
		ProvideOrderStream,
		ProvideOrderSource,

        // Use cases
        ProvideOrderProcessor,
        ProvideOrderCollector,
        ProvideReportGenerator,
        ProvideKafkaOrdersHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
