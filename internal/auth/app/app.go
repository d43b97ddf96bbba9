package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/plus1250/jobatrend/internal/auth/http"
	"github.com/plus1250/jobatrend/internal/auth/obs"
	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/internal/auth/store/drivers/postgres"
	redisstore "github.com/plus1250/jobatrend/internal/auth/store/drivers/redis"
	"github.com/plus1250/jobatrend/internal/auth/store/drivers/sqlite"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/plus1250/jobatrend/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *obs.Metrics

	// Core dependencies
	db          store.Store
	refresh     store.RefreshTokens
	redisClient goredis.UniversalClient // nil unless AUTH_REFRESH_STORE=redis
	signer      jwtx.Signer
	codec       *jwtx.Codec

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: obs.NewMetrics(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	signer, err := InitSigningKey(app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.signer = signer

	app.codec, err = jwtx.NewCodec(signer, jwtx.CodecConfig{
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		Leeway:     app.cfg.ClockSkew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRefreshStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler is the fully wired HTTP handler, middleware included.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"refresh_store", app.cfg.RefreshStore,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the user database and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case StoreDriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.Options{})
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initRefreshStore picks where refresh records live. The SQL store shares
// the user database; redis keeps them apart with native key expiry.
func (app *Application) initRefreshStore() error {
	if app.cfg.RefreshStore != RefreshStoreRedis {
		app.refresh = app.db.RefreshTokens()
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         app.cfg.RedisAddr,
		ReadTimeout:  app.cfg.StoreTimeout,
		WriteTimeout: app.cfg.StoreTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}

	app.redisClient = client
	app.refresh = redisstore.NewRefreshTokens(client, app.cfg.RedisPrefix)
	app.logger.Info("refresh records stored in redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Codec:        app.codec,
		Credentials:  store.NewCredentialAdapter(app.db.Users()),
		Refresh:      app.refresh,
		StoreTimeout: app.cfg.StoreTimeout,
		Metrics:      app.metrics,
	}

	app.userService = &service.UserService{
		Store:        app.db,
		Tokens:       app.tokenService,
		StoreTimeout: app.cfg.StoreTimeout,
		Metrics:      app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.tokenService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = app.metrics
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
		app.metrics,
	)

	router.TokenService = app.tokenService
	router.UserService = app.userService
	if rt, ok := app.refresh.(*redisstore.RefreshTokens); ok {
		router.RefreshStore = rt
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
