package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/handler/api"
	mid "TradePulse/internal/middleware"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/bybit"
	icache "TradePulse/internal/service/cache"
	"TradePulse/internal/service/notify"
	"TradePulse/internal/services/divergence"
	"TradePulse/internal/services/indicators"
	"TradePulse/internal/services/trend"
	"TradePulse/internal/usecase"
	pkgcache "TradePulse/pkg/cache"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	pkgqueue "TradePulse/pkg/queue"
	"TradePulse/pkg/server"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// streamTimeframes are the kline topics kept warm in the candle cache: the
// preferred evaluation timeframes plus the micro tail.
var streamTimeframes = []models.Timeframe{
	models.TF1m, models.TF5m, models.TF15m, models.TF30m, models.TF1h, models.TF4h,
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the ClickHouse signal store and ensures schema.
func ProvideSignalStore(chClient *pkgch.Client, l *applogger.Logger) (*internalrepo.CHSignalStore, error) {
	store := internalrepo.NewCHSignalStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideRedisClient creates the shared Redis connection.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideLayeredCache creates the two-level candle cache backend: in-memory
// LRU in front of Redis, so a Redis outage degrades to warm process-local
// reads instead of hammering the exchange.
func ProvideLayeredCache(cfg *config.Config) (*pkgcache.LayeredCache, error) {
	host, port := splitHostPort(cfg.Redis.Addr, 6379)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("tradepulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideCandleCache creates the candle tail cache over the layered backend.
func ProvideCandleCache(layered *pkgcache.LayeredCache, cfg *config.Config) *icache.CandleCache {
	return icache.NewCandleCache(icache.NewServiceBytes(layered), cfg.Bybit.CandleCacheTTL)
}

func splitHostPort(addr string, defPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defPort
	}
	return host, port
}

// ProvideHTTPClient creates the outbound HTTP client shared by REST adapters.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	timeout := cfg.Bybit.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return xhttp.NewClient(xhttp.WithTimeout(timeout))
}

// ProvideCandleSource creates the Bybit REST market-data adapter.
func ProvideCandleSource(httpClient *xhttp.Client, candles *icache.CandleCache, cfg *config.Config, l *applogger.Logger) repository.CandleSource {
	return bybit.NewClient(httpClient, cfg.Bybit.RestURL, cfg.Bybit.Category, l,
		bybit.WithCache(candles),
		bybit.WithRateLimit(cfg.Bybit.RatePerSecond, cfg.Bybit.RateBurst),
	)
}

// ProvideKlineStream creates the Bybit WebSocket kline stream.
func ProvideKlineStream(cfg *config.Config, l *applogger.Logger) repository.KlineStream {
	return bybit.NewStream(
		cfg.Bybit.WebSocketURL,
		cfg.Bybit.Symbols,
		streamTimeframes,
		cfg.Bybit.ReconnectDelay,
		cfg.Bybit.PingInterval,
		l,
	)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.DecisionPublisher {
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionTopic)
}

// ProvideNotifier creates the Telegram notifier, or a no-op when disabled.
func ProvideNotifier(httpClient *xhttp.Client, cfg *config.Config, l *applogger.Logger) repository.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.NopNotifier{}
	}
	return notify.NewTelegram(httpClient, cfg.Telegram.APIURL, cfg.Telegram.Token, cfg.Telegram.ChatID, l)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideIndicatorComputer creates the indicator pipeline from engine config.
func ProvideIndicatorComputer(cfg *config.Config) domsvc.IndicatorComputer {
	e := cfg.Engine
	return indicators.NewComputer(indicators.Config{
		EMAShortPeriod:   e.EMAShortPeriod,
		EMALongPeriod:    e.EMALongPeriod,
		OscillatorPeriod: e.OscillatorPeriod,
		MACDFastPeriod:   e.MACDFastPeriod,
		MACDSlowPeriod:   e.MACDSlowPeriod,
		MACDSignalPeriod: e.MACDSignalPeriod,
		ATRPeriod:        e.ATRPeriod,
		MFIPeriod:        e.MFIPeriod,
		MinCandles:       e.MinCandles,
	})
}

// ProvideTrendClassifier creates the trend classifier.
func ProvideTrendClassifier() domsvc.TrendClassifier {
	return trend.NewClassifier(trend.DefaultConfig())
}

// ProvideDivergenceDetector creates the divergence detector from engine config.
func ProvideDivergenceDetector(cfg *config.Config) domsvc.DivergenceDetector {
	dc := divergence.DefaultConfig()
	dc.Lookback = cfg.Engine.DivergenceLookback
	dc.PivotWindow = cfg.Engine.PivotWindow
	return divergence.NewDetector(dc)
}

// ProvideSnapshotBuilder creates the multi-timeframe snapshot builder.
func ProvideSnapshotBuilder(source repository.CandleSource, computer domsvc.IndicatorComputer, classifier domsvc.TrendClassifier, cfg *config.Config, l *applogger.Logger) *usecase.SnapshotBuilder {
	return usecase.NewSnapshotBuilder(source, computer, classifier, cfg.Engine.CandleLimit, l)
}

// ProvideScorer creates the weighted scorer.
func ProvideScorer(cfg *config.Config) *usecase.Scorer {
	w := cfg.Engine.Weights
	return usecase.NewScorer(usecase.Weights{
		Trend:      w.Trend,
		Momentum:   w.Momentum,
		Divergence: w.Divergence,
		Structure:  w.Structure,
		Volatility: w.Volatility,
		Micro:      w.Micro,
	})
}

// ProvideEntryValidator creates the smart entry validator.
func ProvideEntryValidator() *usecase.EntryValidator {
	return usecase.NewEntryValidator()
}

// ProvideEngineConfig maps YAML tunables onto the engine's policy knobs.
func ProvideEngineConfig(cfg *config.Config) usecase.EngineConfig {
	e := cfg.Engine
	return usecase.EngineConfig{
		ReactivationMinMatch: e.Reactivation.MinMatchRatio,
		ReactivationMinScore: e.Reactivation.MinTechnicalScore,
		ROIReversion:         e.ROI.ReversionThreshold,
		ROIDynamicStop:       e.ROI.DynamicStopThreshold,
		ROITakeProfit:        e.ROI.TakeProfitThreshold,
		PartialClosePercent:  e.ROI.PartialClosePercent,
		Leverage:             e.Leverage,
	}
}

// ProvideEngine creates the evaluation engine.
func ProvideEngine(
	builder *usecase.SnapshotBuilder,
	detector domsvc.DivergenceDetector,
	scorer *usecase.Scorer,
	validator *usecase.EntryValidator,
	source repository.CandleSource,
	computer domsvc.IndicatorComputer,
	trends domsvc.TrendClassifier,
	engineCfg usecase.EngineConfig,
	m repository.Metrics,
	l *applogger.Logger,
) domsvc.Evaluator {
	return usecase.NewEngine(builder, detector, scorer, validator, source, computer, trends, engineCfg, m, l)
}

// ProvideDecisionRecorder creates the decision fan-out.
func ProvideDecisionRecorder(store *internalrepo.CHSignalStore, pub repository.DecisionPublisher, notifier repository.Notifier, m repository.Metrics, l *applogger.Logger) *usecase.DecisionRecorder {
	return usecase.NewDecisionRecorder(store, pub, notifier, m, l)
}

// ProvideEvaluateUseCase creates the HTTP evaluation use case.
func ProvideEvaluateUseCase(evaluator domsvc.Evaluator, recorder *usecase.DecisionRecorder, source repository.CandleSource) *usecase.EvaluateUseCase {
	return usecase.NewEvaluateUseCase(evaluator, recorder, source)
}

// ProvideSignalsUseCase creates the signal/decision read use case.
func ProvideSignalsUseCase(store *internalrepo.CHSignalStore) *usecase.SignalsUseCase {
	return usecase.NewSignalsUseCase(store)
}

// ProvideKafkaSignalsHandler registers the handler for the signals topic.
func ProvideKafkaSignalsHandler(cfg *config.Config, evaluator domsvc.Evaluator, store *internalrepo.CHSignalStore, recorder *usecase.DecisionRecorder, m repository.Metrics) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.SignalsTopic, evaluator, store, recorder, m)
}

// ProvideKlineCollector wires the WebSocket stream into the candle cache.
func ProvideKlineCollector(stream repository.KlineStream, candles *icache.CandleCache, m repository.Metrics) *usecase.KlineCollector {
	pipe := mid.NewKlinePipeline(bybit.NewCacheWriter(candles), m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewKlineCollector(stream, m, pipe)
}

// ProvideJobQueue creates the Redis job queue with the reactivation job
// registered.
func ProvideJobQueue(rdb *redis.Client, job *usecase.ReactivationJob, l *applogger.Logger) *pkgqueue.RedisQueue {
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    2,
		QueueSize:  1000,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rdb)
	q.RegisterJob(job)
	return q
}

// ProvideReactivationJob creates the queue worker for reactivation reviews.
func ProvideReactivationJob(store *internalrepo.CHSignalStore, evaluator domsvc.Evaluator, recorder *usecase.DecisionRecorder, l *applogger.Logger) *usecase.ReactivationJob {
	return usecase.NewReactivationJob(store, evaluator, recorder, l)
}

// ProvideReactivationSweeper creates the pending-signal sweeper.
func ProvideReactivationSweeper(store *internalrepo.CHSignalStore, q *pkgqueue.RedisQueue, cfg *config.Config, l *applogger.Logger) *usecase.ReactivationSweeper {
	return usecase.NewReactivationSweeper(store, q, cfg.Schedule.ReactivationInterval, l)
}

// ProvidePositionMonitor creates the open-position review loop.
func ProvidePositionMonitor(store *internalrepo.CHSignalStore, source repository.CandleSource, evaluator domsvc.Evaluator, recorder *usecase.DecisionRecorder, cfg *config.Config, l *applogger.Logger) *usecase.PositionMonitor {
	positions := internalrepo.NewActivePositionProvider(store, 200)
	return usecase.NewPositionMonitor(positions, source, evaluator, recorder, cfg.Schedule.PositionInterval, cfg.Engine.Leverage, l)
}

// ProvideHTTPHandler creates the Echo evaluation handler. The response cache
// falls back to an in-process TTL map when Redis is disabled.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, evaluate *usecase.EvaluateUseCase, signals *usecase.SignalsUseCase, store *internalrepo.CHSignalStore, rdb *redis.Client) xhttp.Handler {
	h := api.NewEvaluationHandler(l, evaluate, signals, store)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCacheFromClient(rdb))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.KlineCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	chClient *pkgch.Client,
	jobQueue *pkgqueue.RedisQueue,
	sweeper *usecase.ReactivationSweeper,
	monitor *usecase.PositionMonitor,
	publisher repository.DecisionPublisher,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, _ kafka.Message, _ []byte, err error) {
				l.Warn("kafka handle error",
					applogger.String("topic", topic),
					applogger.Error(err))
			},
		})
	}
	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	app := server.New(cfg, l, collector, consumer, kh, chClient, jobQueue, sweeper, monitor, publisher)
	app.SetHTTPHandler(handler)
	return app
}
