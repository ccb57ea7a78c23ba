package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/handler/api"
	internalrepo "SignalEngine/internal/repository"
	"SignalEngine/internal/service/ratelimit"
	"SignalEngine/internal/services/signals"
	"SignalEngine/internal/usecase"
	"SignalEngine/pkg/cache"
	pkgch "SignalEngine/pkg/clickhouse"
	"SignalEngine/pkg/config"
	xhttp "SignalEngine/pkg/http"
	pkgkafka "SignalEngine/pkg/kafka"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/metrics"
	"SignalEngine/pkg/queue"
	"SignalEngine/pkg/server"
)

func noop() {}

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the registry every collector of the process
// registers with, including Go runtime and process metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideEngine loads the family catalog and checks the default family
// exists in it.
func ProvideEngine(cfg *config.Config) (domsvc.SignalEngine, error) {
	cat, err := signals.LoadCatalog(cfg.Engine.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("signal catalog: %w", err)
	}
	engine := signals.NewEngine(cat)
	if !engine.HasFamily(cfg.Engine.DefaultFamily) {
		return nil, fmt.Errorf("default family %q is not in the catalog", cfg.Engine.DefaultFamily)
	}
	return engine, nil
}

// ProvideCache builds the snapshot cache for the configured mode. Closing
// it also closes the Redis connection it owns.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	mem := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		)
	}
	if cfg.Cache.Mode == "memory" {
		c := mem()
		return c, func() { _ = c.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}

	var c cache.Service = rc
	if cfg.Cache.Mode == "layered" {
		c = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Engine.SnapshotTTL),
		)
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideRedisClient exposes the Redis connection behind the cache, or nil
// in memory mode.
func ProvideRedisClient(c cache.Service) *redis.Client {
	if lc, ok := c.(*cache.LayeredCache); ok {
		c = lc.Remote()
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		return rc.Client()
	}
	return nil
}

func ProvideSnapshotStore(c cache.Service, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c, cfg.Engine.SnapshotTTL)
}

// ProvideClickHouseClient connects to ClickHouse when history is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noop, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideResultStore creates the history table and returns the store, or
// nil without ClickHouse.
func ProvideResultStore(ch *pkgch.Client, l *applogger.Logger) (repository.ResultStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHResultStore(ch, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the results producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideQueue builds the Redis persistence queue in queue mode. Jobs are
// registered for whichever sinks exist.
func ProvideQueue(
	cfg *config.Config,
	l *applogger.Logger,
	client *redis.Client,
	store repository.ResultStore,
	pub repository.ResultPublisher,
) *queue.RedisQueue {
	if cfg.Engine.PersistMode != usecase.PersistQueue || client == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, client, queue.Config{
		Workers:      cfg.Queue.Workers,
		RetryLimit:   cfg.Queue.RetryLimit,
		RetryBase:    cfg.Queue.RetryBase,
		RetryMax:     cfg.Queue.RetryMax,
		PollInterval: cfg.Queue.PollInterval,
		KeyPrefix:    cfg.Queue.KeyPrefix,
	})
	if store != nil {
		q.RegisterJob(usecase.NewStoreResultsJob(store))
	}
	if pub != nil {
		q.RegisterJob(usecase.NewPublishResultsJob(pub))
	}
	return q
}

func ProvideSignalEvaluator(
	cfg *config.Config,
	l *applogger.Logger,
	engine domsvc.SignalEngine,
	snapshots repository.SnapshotStore,
	store repository.ResultStore,
	pub repository.ResultPublisher,
	q *queue.RedisQueue,
	m repository.Metrics,
) *usecase.SignalEvaluator {
	var enq queue.Enqueuer
	if q != nil {
		enq = q
	}
	return usecase.NewSignalEvaluator(engine, snapshots, store, pub, enq, m, l, usecase.EvaluatorConfig{
		DefaultFamily:  cfg.Engine.DefaultFamily,
		BatchWorkers:   cfg.Engine.BatchWorkers,
		PersistMode:    cfg.Engine.PersistMode,
		PersistTimeout: cfg.Engine.PersistTimeout,
		HistoryWindow:  cfg.Engine.HistoryWindow,
	})
}

func ProvideSnapshotsHandler(cfg *config.Config, uc *usecase.SignalEvaluator) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.SnapshotsTopic, uc)
}

// ProvideKafkaConsumer subscribes the snapshot handler when Kafka is enabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	h *usecase.KafkaSnapshotsHandler,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.LoggingHook(l, time.Second),
	))
	consumer.RegisterHandler(h)
	return consumer, nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

func ProvideSignalsHandler(l *applogger.Logger, uc *usecase.SignalEvaluator, rl *ratelimit.Limiter) *api.SignalsEchoHandler {
	if rl == nil {
		return api.NewSignalsEchoHandler(l, uc, nil)
	}
	return api.NewSignalsEchoHandler(l, uc, rl)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry, h *api.SignalsEchoHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithAddr("0.0.0.0", cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideApp assembles the lifecycle: queue workers, Kafka consumer, then
// HTTP. Async persistence is drained after everything has stopped.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	rl *ratelimit.Limiter,
	uc *usecase.SignalEvaluator,
) *server.App {
	app := server.New(l, cfg.Server.ShutdownTimeout)
	if q != nil {
		app.Add("queue", q)
	}
	if consumer != nil {
		app.Add("kafka_consumer", consumer)
	}
	app.Add("http", srv)
	if rl != nil {
		app.Background(func(stop <-chan struct{}) { rl.Run(time.Minute, stop) })
	}
	app.OnShutdown("persistence", uc.Wait)
	return app
}
