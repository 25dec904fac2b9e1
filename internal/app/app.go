// Package app assembles StatusService from its configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/statusservice/internal/application/admission"
	"github.com/turtacn/statusservice/internal/application/logsink"
	"github.com/turtacn/statusservice/internal/application/mockdata"
	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/domain/repository"
	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/audit"
	"github.com/turtacn/statusservice/internal/infrastructure/blocklist"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/internal/infrastructure/counter"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/internal/infrastructure/overflow"
	"github.com/turtacn/statusservice/internal/infrastructure/persistence/document"
	"github.com/turtacn/statusservice/internal/infrastructure/persistence/redis"
	"github.com/turtacn/statusservice/internal/infrastructure/persistence/sqlstore"
	"github.com/turtacn/statusservice/internal/infrastructure/ratelimit"
	"github.com/turtacn/statusservice/internal/interfaces/http/handlers"
	"github.com/turtacn/statusservice/internal/interfaces/http/router"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

type options struct {
	clock       clock.Clock
	registry    *prometheus.Registry
	redisClient goredis.UniversalClient
	seed        uint64
}

// Option customises New.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithRegistry registers metrics on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithRedisClient uses client instead of dialing redis.addresses.
func WithRedisClient(client goredis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// WithSeed fixes the mock data seed.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// App owns every long-lived component.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	clock  clock.Clock

	redis   *redis.RedisConnection
	repo    repository.RequestLogRepository
	sink    *logsink.Sink
	blocks  service.BlockStore
	limiter *ratelimit.SlidingWindowLimiter
	metrics *monitoring.Metrics
	tracing *monitoring.TracingManager
	router  *router.Router
	server  *http.Server
}

// New builds the application. On error every component opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (_ *App, err error) {
	o := options{clock: clock.NewRealClock(), seed: uint64(time.Now().UnixNano())}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: log, clock: o.clock}
	defer func() {
		if err != nil {
			a.closeStores()
		}
	}()

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if o.registry != nil {
		registerer, gatherer = o.registry, o.registry
	}
	a.metrics = monitoring.NewMetrics(registerer)

	if a.tracing, err = monitoring.NewTracingManager(&cfg.Tracing, log); err != nil {
		return nil, err
	}

	banDoc, counterDoc, err := a.openDocuments(ctx, o.redisClient)
	if err != nil {
		return nil, err
	}

	seq := counter.NewCounter(ctx, counterDoc, log)
	a.blocks = blocklist.NewStore(ctx, banDoc, constants.BanTTL, o.clock, log)
	writer := overflow.NewWriter(cfg.Storage.OverflowDir, seq, o.clock, log)

	conn, err := sqlstore.NewDBConnection(ctx, &cfg.LogStore, log)
	if err != nil {
		return nil, err
	}
	a.repo = sqlstore.NewRequestLogRepository(conn)
	if cfg.Kafka.Enabled {
		a.repo = audit.NewKafkaMirror(a.repo, audit.NewKafkaWriter(cfg.Kafka), log, audit.MirrorOptions{
			QueueSize: cfg.Kafka.QueueSize,
			BatchSize: cfg.Kafka.BatchSize,
		})
		log.Info(ctx, "Mirroring request logs to Kafka", logger.String("topic", cfg.Kafka.Topic))
	}
	a.sink = logsink.New(a.repo, a.metrics, log)

	var limiter service.RateLimiter
	if cfg.RateLimit.Enabled {
		a.limiter = ratelimit.NewSlidingWindowLimiter(a.blocks, o.clock, log)
		limiter = a.limiter
	} else {
		log.Warn(ctx, "Rate limiting is disabled")
	}

	pipeline := admission.NewPipeline(a.blocks, limiter, writer, a.sink, a.metrics, log, admission.Options{
		ExemptPaths: router.ExemptPaths(cfg),
	})

	checks := map[string]handlers.Check{
		"log_store": a.repo.Ping,
		"overflow_dir": func(context.Context) error {
			return os.MkdirAll(cfg.Storage.OverflowDir, 0o755)
		},
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}

	gin.SetMode(gin.ReleaseMode)
	a.router = router.NewRouter(cfg, log, router.Dependencies{
		Pipeline: pipeline,
		Clock:    o.clock,
		Tracing:  a.tracing,
		Metrics:  a.metrics,
		Gatherer: gatherer,
		Health:   handlers.NewHealthHandler(checks, seq, o.clock, log),
		Admin:    handlers.NewAdminHandler(a.sink, a.blocks, limiter, a.metrics, log),
		Status:   handlers.NewStatusHandler(),
		Data:     handlers.NewDataHandler(mockdata.NewGenerator(o.seed, o.clock)),
	})
	a.server = a.router.Server()
	return a, nil
}

func (a *App) openDocuments(ctx context.Context, client goredis.UniversalClient) (banDoc, counterDoc repository.DocumentStore, err error) {
	switch constants.StorageBackend(a.cfg.Storage.Backend) {
	case constants.StorageBackendRedis:
		if client != nil {
			a.redis = redis.NewRedisConnectionFromClient(client, a.logger)
		} else if a.redis, err = redis.NewRedisConnection(ctx, &a.cfg.Redis, a.logger); err != nil {
			return nil, nil, err
		}
		prefix := a.cfg.Storage.RedisPrefix
		return document.NewRedisStore(a.redis.Client(), prefix, constants.BlocklistDocument),
			document.NewRedisStore(a.redis.Client(), prefix, constants.CounterDocument), nil
	default:
		bans, err := document.NewFileStore(a.cfg.Storage.DataDir, constants.BlocklistDocument)
		if err != nil {
			return nil, nil, err
		}
		seq, err := document.NewFileStore(a.cfg.Storage.DataDir, constants.CounterDocument)
		if err != nil {
			return nil, nil, err
		}
		return bans, seq, nil
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.router.Engine()
}

// Run serves HTTP until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.limiter != nil {
		a.limiter.StartJanitor(gctx, a.cfg.RateLimit.JanitorInterval)
		g.Go(func() error {
			ticker := time.NewTicker(a.cfg.RateLimit.JanitorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					a.metrics.TrackedRateWindows.Set(float64(a.limiter.TrackedWindows()))
				}
			}
		})
	}

	g.Go(func() error {
		a.logger.Info(gctx, "Starting HTTP server", logger.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Shutdown stops HTTP intake, drains the log queue within the configured
// grace period and closes every store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info(ctx, "Shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	var errs []error
	if err := a.server.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	drainCtx, cancelDrain := context.WithTimeout(ctx, a.cfg.LogSink.ShutdownGrace)
	defer cancelDrain()
	if err := a.sink.Close(drainCtx); err != nil {
		errs = append(errs, err)
	}

	a.closeStores()
	if err := a.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Sink exposes the log sink so callers can close it without an HTTP server.
func (a *App) Sink() *logsink.Sink {
	return a.sink
}

func (a *App) closeStores() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing log store", logger.Error(err))
		}
		a.repo = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing redis", logger.Error(err))
		}
		a.redis = nil
	}
}
