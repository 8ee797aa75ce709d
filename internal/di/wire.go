//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideHTTPClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Market data
		ProvideLayeredCache,
		ProvideCandleCache,
		ProvideCandleSource,
		ProvideKlineStream,

		// Persistence and fan-out
		ProvideSignalStore,
		ProvideDecisionPublisher,
		ProvideNotifier,

		// Evaluation pipeline
		ProvideIndicatorComputer,
		ProvideTrendClassifier,
		ProvideDivergenceDetector,
		ProvideSnapshotBuilder,
		ProvideScorer,
		ProvideEntryValidator,
		ProvideEngineConfig,
		ProvideEngine,

		// Use cases
		ProvideDecisionRecorder,
		ProvideEvaluateUseCase,
		ProvideSignalsUseCase,
		ProvideKafkaSignalsHandler,
		ProvideKlineCollector,
		ProvideReactivationJob,
		ProvideJobQueue,
		ProvideReactivationSweeper,
		ProvidePositionMonitor,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
