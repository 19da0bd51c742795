package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/handler/api"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/service/cache"
	"MarketLens/internal/usecase"
	pkgcache "MarketLens/pkg/cache"
	"MarketLens/pkg/config"
	xhttp "MarketLens/pkg/http"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/queue"
)

// App encapsulates the entire application lifecycle. Every optional
// component may be nil.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      domrepo.SeriesStore
	cache      *cache.ResponseCache
	handler    *api.AnalyticsHandler
	httpServer *xhttp.Server

	scheduler *scheduler.Scheduler
	consumer  *pkgkafka.Consumer
	refresh   pkgkafka.MessageHandler
	publisher domrepo.EventPublisher
	queue     *queue.Queue
	redis     *pkgcache.RedisCache
}

// Components groups the optional collaborators of App.
type Components struct {
	Scheduler *scheduler.Scheduler
	Consumer  *pkgkafka.Consumer
	Refresh   *usecase.RefreshHandler
	Publisher domrepo.EventPublisher
	Queue     *queue.Queue
	Redis     *pkgcache.RedisCache
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, store domrepo.SeriesStore, rc *cache.ResponseCache, handler *api.AnalyticsHandler, opt Components) *App {
	a := &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		cache:     rc,
		handler:   handler,
		scheduler: opt.Scheduler,
		consumer:  opt.Consumer,
		publisher: opt.Publisher,
		queue:     opt.Queue,
		redis:     opt.Redis,
	}
	if opt.Refresh != nil {
		a.refresh = opt.Refresh
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx ends, then shuts
// down in reverse order.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.cache.StartJanitor(runCtx, a.cfg.Cache.JanitorInterval)

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.handler.SetQueue(a.queue)
	}

	if a.consumer != nil && a.refresh != nil {
		a.consumer.RegisterHandler(a.refresh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.log.Info("kafka consumer started", applogger.String("topic", a.refresh.Topic()))
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
		if a.cfg.Collector.RunOnStart {
			go a.scheduler.RunNow()
		}
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, a.cfg.Server.AllowOrigins...),
		xhttp.WithLogger(a.log),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("marketlens started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("store", a.cfg.Store.Type),
		applogger.String("source", a.cfg.Source.Type),
		applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	// flush aggregated logs while the producer is still open
	a.log.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
