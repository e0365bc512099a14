//go:build wireinject
// +build wireinject

package di

import (
	"Warboard/pkg/config"
	"Warboard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideStatusRegistry,

		// Infrastructure clients
		ProvideSnapshotCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideSnapshotPublisher,
		ProvideQuoteArchive,

		// Adapters and use cases
		ProvideSources,
		ProvideCollector,

		// HTTP surface
		ProvideHub,
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
