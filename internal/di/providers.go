package di

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/repository"
	"MarketLens/internal/domain/service"
	"MarketLens/internal/handler/api"
	internalrepo "MarketLens/internal/repository"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/service/cache"
	"MarketLens/internal/service/ratelimit"
	"MarketLens/internal/services/gateway"
	"MarketLens/internal/services/predictor"
	"MarketLens/internal/services/sources"
	"MarketLens/internal/services/synthetic"
	"MarketLens/internal/usecase"
	pkgcache "MarketLens/pkg/cache"
	pkgch "MarketLens/pkg/clickhouse"
	"MarketLens/pkg/config"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/metrics"
	"MarketLens/pkg/queue"
	"MarketLens/pkg/server"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// InstanceID names this process in refresh events.
type InstanceID string

func ProvideInstanceID() InstanceID { return InstanceID(uuid.NewString()) }

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	pkgkafka.SetConsumerMetricsRegisterer(prometheus.DefaultRegisterer)
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects ClickHouse when it backs the store.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Store.Type != "clickhouse" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx, pkgch.ClientConfig{
		Host:         cfg.ClickHouse.Host,
		Port:         cfg.ClickHouse.Port,
		Database:     cfg.ClickHouse.Database,
		User:         cfg.ClickHouse.User,
		Password:     cfg.ClickHouse.Password,
		UseHTTP:      cfg.ClickHouse.UseHTTP,
		AsyncInsert:  cfg.ClickHouse.AsyncInsert,
		WaitForAsync: cfg.ClickHouse.WaitForAsync,
		DialTimeout:  cfg.ClickHouse.DialTimeout,
		ReadTimeout:  cfg.ClickHouse.ReadTimeout,
		MaxExecTime:  cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSeriesStore opens the configured backend and ensures its schema.
func ProvideSeriesStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.SeriesStore, error) {
	var (
		store repository.SeriesStore
		err   error
	)
	switch cfg.Store.Type {
	case "clickhouse":
		store = internalrepo.NewCHSeriesStore(ch, cfg.ClickHouse.Database, l)
	default:
		store, err = internalrepo.NewSQLiteSeriesStore(cfg.Store.SQLitePath, l)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Store.Type, err)
	}
	return store, nil
}

// ProvideRedis connects Redis when the mirror or the queue needs it.
func ProvideRedis(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisMirror(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

func ProvideResponseCache(cfg *config.Config, redis *pkgcache.RedisCache, m repository.Metrics, l *applogger.Logger) *cache.ResponseCache {
	opts := []cache.Option{cache.WithMetrics(m), cache.WithLogger(l.With("cache"))}
	if cfg.Cache.Mirror && redis != nil {
		opts = append(opts, cache.WithMirror(redis))
	}
	return cache.NewResponseCache(opts...)
}

func ProvideSeriesSource(cfg *config.Config, l *applogger.Logger) repository.SeriesSource {
	if cfg.Source.Type == sources.NameChart {
		return sources.NewChartSource(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.Timeout, l)
	}
	return sources.NewYFinanceSource(l)
}

func ProvideGateway(cfg *config.Config, src repository.SeriesSource, m repository.Metrics, l *applogger.Logger) *gateway.Gateway {
	return gateway.New(src, l,
		gateway.WithAttempts(cfg.Source.Attempts),
		gateway.WithRetryDelay(cfg.Source.RetryDelay),
		gateway.WithBudget(cfg.Source.Budget),
		gateway.WithGenerator(synthetic.New(nil)),
		gateway.WithMetrics(m),
	)
}

func ProvidePredictor(l *applogger.Logger) *predictor.Service {
	return predictor.New(l)
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled. It
// also becomes the sink of the log collector.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:        cfg.Kafka.Brokers,
		RequiredAcks:   cfg.Kafka.RequiredAcks,
		Compression:    cfg.Kafka.Compression,
		MaxAttempts:    cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout:   cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:    cfg.Kafka.Producer.ReadTimeout,
		BatchSize:      cfg.Kafka.Producer.BatchSize,
		BatchBytes:     cfg.Kafka.Producer.BatchBytes,
		Linger:         cfg.Kafka.Producer.Linger,
		Async:          cfg.Kafka.Producer.Async,
		KeyedBalancing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.Collect.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collect.Interval,
			CountThreshold: cfg.Logging.Collect.Threshold,
			Topic:          cfg.Logging.Collect.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideEventPublisher returns nil when Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, id InstanceID) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, string(id))
}

func ProvideCollectUseCase(
	cfg *config.Config,
	store repository.SeriesStore,
	fetcher service.SeriesFetcher,
	rc *cache.ResponseCache,
	pub repository.EventPublisher,
	redis *pkgcache.RedisCache,
	src repository.SeriesSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CollectUseCase {
	opts := []usecase.CollectOption{
		usecase.WithPause(cfg.Collector.Pause),
		usecase.WithCollectMetrics(m),
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	if redis != nil {
		opts = append(opts, usecase.WithLocker(redis, 30*time.Minute))
	}
	if lookup, ok := src.(usecase.CompanyLookup); ok {
		opts = append(opts, usecase.WithCompanyLookup(lookup))
	}
	return usecase.NewCollectUseCase(store, fetcher, rc, l, opts...)
}

func ProvideAnalyticsUseCase(cfg *config.Config, store repository.SeriesStore, rc *cache.ResponseCache, p service.PriceForecaster, m repository.Metrics) *usecase.AnalyticsUseCase {
	return usecase.NewAnalyticsUseCase(store, rc, p, m, cfg.Predictor.HistoryDays)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideCollectQueue builds the Redis collect queue when it is enabled.
// App starts it.
func ProvideCollectQueue(cfg *config.Config, redis *pkgcache.RedisCache, collect *usecase.CollectUseCase, l *applogger.Logger) *queue.Queue {
	if !cfg.Collector.Queue.Enabled || redis == nil {
		return nil
	}
	q := queue.New(redis.Client(), &queue.Config{
		Workers:    cfg.Collector.Queue.Workers,
		RetryLimit: cfg.Collector.Queue.RetryLimit,
		RetryDelay: cfg.Collector.Queue.RetryDelay,
	}, l.With("queue"), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.Register(usecase.NewCollectJob(collect))
	return q
}

func ProvideHandler(l *applogger.Logger, analytics *usecase.AnalyticsUseCase, collect *usecase.CollectUseCase, rc *cache.ResponseCache, store repository.SeriesStore, rl *ratelimit.Limiter) *api.AnalyticsHandler {
	h := api.NewAnalyticsHandler(l.With("api"), analytics, collect, rc, store)
	if rl != nil {
		h.SetLimiter(rl)
	}
	return h
}

// ProvideKafkaConsumer creates the refresh consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     cfg.Kafka.Consumer.GroupID,
		StartLatest: true,
		Workers:     cfg.Kafka.Consumer.Workers,
		BufferSize:  cfg.Kafka.Consumer.BufferSize,
		RetryMax:    cfg.Kafka.Consumer.RetryMax,
		BackoffMin:  cfg.Kafka.Consumer.BackoffMin,
		BackoffMax:  cfg.Kafka.Consumer.BackoffMax,
		DLQTopic:    cfg.Kafka.Consumer.DLQTopic,
		MinBytes:    cfg.Kafka.Consumer.MinBytes,
		MaxBytes:    cfg.Kafka.Consumer.MaxBytes,
		Logger:      l,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.LoggingHook{Log: l.With("kafka_hook")}))
	return consumer, nil
}

func ProvideRefreshHandler(cfg *config.Config, rc *cache.ResponseCache, m repository.Metrics, id InstanceID, l *applogger.Logger) *usecase.RefreshHandler {
	return usecase.NewRefreshHandler(cfg.Kafka.Topic, string(id), rc, m, l.With("refresh"))
}

// ProvideScheduler registers the cron collection and the limiter pruning.
func ProvideScheduler(cfg *config.Config, collect *usecase.CollectUseCase, rl *ratelimit.Limiter, l *applogger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(collect, scheduler.CollectSpec{
		Symbols:       cfg.Collector.Symbols,
		Period:        cfg.Collector.Period,
		AllowFallback: cfg.Collector.AllowFallback,
		Timeout:       30 * time.Minute,
	}, l)
	if cfg.Collector.Enabled {
		if err := s.RegisterCollect(cfg.Collector.Schedule); err != nil {
			return nil, err
		}
	}
	if rl != nil {
		if err := s.RegisterPrune("ratelimit", 5*time.Minute, rl); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store repository.SeriesStore,
	rc *cache.ResponseCache,
	handler *api.AnalyticsHandler,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	refresh *usecase.RefreshHandler,
	pub repository.EventPublisher,
	q *queue.Queue,
	redis *pkgcache.RedisCache,
) *server.App {
	return server.New(cfg, l, store, rc, handler, server.Components{
		Scheduler: sched,
		Consumer:  consumer,
		Refresh:   refresh,
		Publisher: pub,
		Queue:     q,
		Redis:     redis,
	})
}

// Collector is the one-shot collection runtime used by cmd/collect.
type Collector struct {
	UseCase   *usecase.CollectUseCase
	store     repository.SeriesStore
	publisher repository.EventPublisher
	log       *applogger.Logger
}

func ProvideCollector(uc *usecase.CollectUseCase, store repository.SeriesStore, pub repository.EventPublisher, l *applogger.Logger) *Collector {
	return &Collector{UseCase: uc, store: store, publisher: pub, log: l}
}

// Close flushes the event publisher and closes the store.
func (c *Collector) Close() error {
	c.log.RemoveCollector()
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.log.Warn("publisher close failed", applogger.Error(err))
		}
	}
	return c.store.Close()
}
