// Package app assembles the echo application shared by every entrypoint:
// the long-running server, the Lambda function and the Cloud Functions.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/volunteer-slot-sync/internal/config"
	"github.com/iliyamo/volunteer-slot-sync/internal/database"
	"github.com/iliyamo/volunteer-slot-sync/internal/handler"
	"github.com/iliyamo/volunteer-slot-sync/internal/hubdb"
	"github.com/iliyamo/volunteer-slot-sync/internal/lock"
	"github.com/iliyamo/volunteer-slot-sync/internal/logging"
	"github.com/iliyamo/volunteer-slot-sync/internal/middleware"
	"github.com/iliyamo/volunteer-slot-sync/internal/repository"
	"github.com/iliyamo/volunteer-slot-sync/internal/router"
	queue_publisher "github.com/iliyamo/volunteer-slot-sync/internal/service"
	"github.com/iliyamo/volunteer-slot-sync/internal/slot"
)

// Options are the optional backends of the application.  A nil Redis
// disables rate limiting, idempotency and row locking; nil Recorder and
// Notifier disable auditing and events.
type Options struct {
	Logger      *slog.Logger
	Redis       *redis.Client
	Recorder    slot.Recorder
	Notifier    slot.Notifier
	HTTPClient  *http.Client
	RateLimit   config.RateLimitConfig
	RowLock     config.RowLockConfig
	Idempotency config.IdempotencyConfig
}

// New builds the echo instance serving /healthz, /ping and /updateSlot.
func New(cfg config.Config, opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	table := hubdb.New(hubdb.Options{
		BaseURL: cfg.HubDBBaseURL,
		APIKey:  cfg.APIKey,
		TableID: cfg.TableID,
		Timeout: cfg.HubDBTimeout,
		HTTP:    opts.HTTPClient,
		Logger:  logger,
	})
	svcOpts := slot.Options{
		TableID:   cfg.TableID,
		QtyCellID: cfg.QtyCellID,
		Recorder:  opts.Recorder,
		Notifier:  opts.Notifier,
		Logger:    logger,
	}
	if opts.Redis != nil && opts.RowLock.Enabled {
		svcOpts.Locker = lock.NewRedisLocker(opts.Redis, rowLockConfig(cfg, opts.RowLock))
	}
	slots := handler.NewSlotHandler(slot.NewService(table, svcOpts), logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLog(logger))
	e.Use(middleware.NewTokenBucket(opts.RateLimit, opts.Redis, logger))

	router.RegisterRoutes(e)
	router.RegisterSlots(e, slots, middleware.NewIdempotency(opts.Idempotency, opts.Redis, logger))
	return e
}

// tableCallsPerRun is the number of sequential table service calls in one
// slot update: fetch row, update cell, publish.
const tableCallsPerRun = 3

// rowLockConfig stretches the lock TTL over the slowest possible run so the
// lock cannot lapse between reading and writing the quantity.
func rowLockConfig(cfg config.Config, rl config.RowLockConfig) config.RowLockConfig {
	return rl.Covering(tableCallsPerRun * cfg.HubDBTimeout)
}

// App is a bootstrapped application with its backends.
type App struct {
	Echo   *echo.Echo
	Config config.Config
	Queue  config.QueueConfig
	Logger *slog.Logger

	redis *redis.Client
	db    *sql.DB
}

// Bootstrap loads .env and the environment, connects whatever optional
// backends are configured and builds the echo instance.  Backends that
// cannot be reached are skipped with a warning.
func Bootstrap(ctx context.Context) *App {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	a := &App{Config: cfg, Queue: config.LoadQueueConfig(), Logger: logger}
	opts := Options{
		Logger:      logger,
		RateLimit:   config.LoadRateLimitConfig(),
		RowLock:     config.LoadRowLockConfig(),
		Idempotency: config.LoadIdempotencyConfig(),
	}

	if rdb := config.NewRedisClient(); rdb != nil {
		a.redis, opts.Redis = rdb, rdb
	} else {
		logger.Warn("redis unavailable: rate limiting, idempotency and row locking disabled")
	}

	if dbCfg := config.LoadDatabaseConfig(); dbCfg.Enabled {
		db, err := database.Open(dbCfg)
		if err != nil {
			logger.Warn("mysql unavailable: audit trail disabled", "err", err)
		} else {
			repo := repository.NewSlotUpdateRepo(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Warn("audit schema", "err", err)
			}
			a.db, opts.Recorder = db, repo
		}
	}

	if a.Queue.PublishEnabled {
		opts.Notifier = queue_publisher.NewPublisher(a.Queue.URL, logger)
	}

	a.Echo = New(cfg, opts)
	logger.Info("app ready", "env", cfg.Env, "table_id", cfg.TableID, "redis", a.redis != nil, "audit", a.db != nil, "events", a.Queue.PublishEnabled)
	return a
}

// Close releases the backends opened by Bootstrap.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
