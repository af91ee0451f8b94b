package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/home-services-marketplace/internal/config"
	"github.com/iliyamo/home-services-marketplace/internal/database"
	"github.com/iliyamo/home-services-marketplace/internal/handler"
	"github.com/iliyamo/home-services-marketplace/internal/middleware"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
	"github.com/iliyamo/home-services-marketplace/internal/router"
	"github.com/iliyamo/home-services-marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Sugar().Fatalw("configuration error", "error", err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(db, cfg.DBName); err != nil {
			sugar.Fatalw("migration error", "error", err)
		}
	}

	users := repository.NewUserRepo(db)
	if cfg.Admin.Email != "" {
		created, err := users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password, cfg.BcryptCost)
		if err != nil {
			sugar.Fatalw("admin bootstrap error", "error", err)
		}
		if created {
			sugar.Infow("bootstrap admin created", "email", cfg.Admin.Email)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		sugar.Warnw("redis unavailable, caching and rate limiting disabled", "addr", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	var (
		events   service.EventPublisher = queue.Discard{}
		consumer *queue.Consumer
	)
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, cfg.EventsQueue, logger)
		consumer = queue.NewConsumer(cfg.RabbitURL, cfg.EventsQueue, cfg.ActivityLogDir, logger)
	} else {
		sugar.Warn("RABBITMQ_URL not set, domain events are discarded")
	}

	categories := repository.NewCategoryRepo(db)
	services := repository.NewServiceRepo(db)
	bookings := repository.NewBookingRepo(db)
	tokens := repository.NewTokenRepo(db)

	opts := handler.Options{Debug: cfg.Debug(), Timeout: cfg.RequestTimeout, Log: logger}
	e := newEcho(logger)
	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Auth:      handler.NewAuthHandler(opts, cfg, users, tokens),
		Bookings: handler.NewBookingHandler(opts,
			service.NewBookingService(bookings, services, users, events, logger)),
		Providers: handler.NewProviderHandler(opts,
			service.NewProviderService(users, events, logger)),
		Catalog: handler.NewCatalogHandler(opts,
			service.NewCatalogService(categories, services, users, logger)),
		RateLimit:  middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
		Cache:      middleware.NewRedisCache(cfg.Cache, rdb, logger),
		Invalidate: middleware.NewCacheInvalidator(cfg.Cache, rdb, logger),
	})

	if err := run(ctx, e, ":"+cfg.Port, consumer, sugar); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Debug() {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l.With(zap.String("env", cfg.Env))
}

func newEcho(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	return e
}

// run serves HTTP and, when a broker is configured, the activity log
// consumer until ctx is cancelled or one of them fails.
func run(ctx context.Context, e *echo.Echo, addr string, consumer *queue.Consumer, sugar *zap.SugaredLogger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting marketplace server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if consumer != nil {
		g.Go(func() error { return consumer.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
