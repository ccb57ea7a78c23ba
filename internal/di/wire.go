//go:build wireinject
// +build wireinject

package di

import (
	"SignalEngine/pkg/config"
	"SignalEngine/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application and
// a cleanup that releases connections once the app has stopped.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideSnapshotStore,
		ProvideResultStore,
		ProvideResultPublisher,
		ProvideQueue,

		// Engine and use cases
		ProvideEngine,
		ProvideSignalEvaluator,
		ProvideSnapshotsHandler,
		ProvideKafkaConsumer,

		// Transport
		ProvideRateLimiter,
		ProvideSignalsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
