package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"quickbites-dispatch/internal/config"
	"quickbites-dispatch/internal/geo"
	"quickbites-dispatch/internal/http/handlers"
	"quickbites-dispatch/internal/http/middleware/ratelimit"
	"quickbites-dispatch/internal/http/router"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/metrics"
	"quickbites-dispatch/internal/notify"
	"quickbites-dispatch/internal/repository"
	"quickbites-dispatch/internal/service/dispatch"
	"quickbites-dispatch/internal/service/order"
	"quickbites-dispatch/internal/service/otp"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function.
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function.
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerRedis(container); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	if err := container.Provide(
		metrics.NewRateLimitExceededTotal,
		dig.Name("rate_limit_exceeded_total"),
	); err != nil {
		return fmt.Errorf("provide rate limit counter: %w", err)
	}
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		newDispatchMetrics,
	)
}

// newDispatchMetrics registers the workflow counters once. Re-registration
// (containers rebuilt in tests) reuses the already registered collector.
func newDispatchMetrics() *metrics.Dispatch {
	d := metrics.NewDispatch()
	for _, c := range d.Collectors() {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
	return d
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.Db.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

func registerRedis(container *dig.Container) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
			return geo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		},
		func(cfg *config.Config, stats *metrics.Dispatch, logger logx.Logger, rdb *redis.Client) *geo.Index {
			return geo.NewIndex(rdb, cfg.Location.MinUpdateInterval, stats.ThrottledLocations, logger)
		},
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewDispatchRepo,
		repository.NewOrderRepo,
		repository.NewShopDirectory,
		func() time.Duration { return 3 * time.Second },
		func(cfg *config.Config) (notify.Notifier, error) {
			kn, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.CourierTopic, cfg.Kafka.CustomerTopic)
			if err != nil {
				return nil, err
			}
			if kn == nil {
				return notify.NopNotifier{}, nil
			}
			return kn, nil
		},
		func(repo *repository.OrderRepo, shops *repository.ShopDirectory, timeout time.Duration, logger logx.Logger) *order.Service {
			return order.NewService(repo, shops, timeout, logger)
		},
		func(
			repo *repository.DispatchRepo,
			orders *repository.OrderRepo,
			idx *geo.Index,
			n notify.Notifier,
			stats *metrics.Dispatch,
			timeout time.Duration,
			logger logx.Logger,
		) *dispatch.Service {
			return dispatch.NewService(repo, orders, idx, n, stats, timeout, logger)
		},
		func(repo *repository.DispatchRepo, n notify.Notifier, stats *metrics.Dispatch, timeout time.Duration, logger logx.Logger) *otp.Service {
			return otp.NewService(repo, n, stats, timeout, logger)
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	routerProvider := func(
		base *handlers.Handlers,
		orders *handlers.OrderHandler,
		disp *handlers.DispatchHandler,
		otpH *handlers.OTPHandler,
		loc *handlers.LocationHandler,
		limit *ratelimit.Middleware,
	) http.Handler {
		return router.New(router.Deps{
			Base:          base,
			Orders:        orders,
			Dispatch:      disp,
			OTP:           otpH,
			Location:      loc,
			LocationLimit: limit,
		})
	}
	return provideAll(container,
		handlers.New,
		handlers.NewOrderUsecase,
		handlers.NewOrderHandler,
		handlers.NewDispatchUsecase,
		handlers.NewDispatchHandler,
		handlers.NewOTPUsecase,
		handlers.NewOTPHandler,
		handlers.NewLocationIndex,
		handlers.NewLocationHandler,
		newRateLimitClock,
		newLocationLimiter,
		newRateLimitMiddleware,
		routerProvider,
		serverProvider,
	)
}
