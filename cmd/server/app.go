package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/phrazzld/sprout-api/internal/api"
	"github.com/phrazzld/sprout-api/internal/config"
	"github.com/phrazzld/sprout-api/internal/domain/recurrence"
	"github.com/phrazzld/sprout-api/internal/metrics"
	"github.com/phrazzld/sprout-api/internal/notify"
	"github.com/phrazzld/sprout-api/internal/platform/fcm"
	"github.com/phrazzld/sprout-api/internal/platform/postgres"
	"github.com/phrazzld/sprout-api/internal/platform/redis"
	"github.com/phrazzld/sprout-api/internal/platform/sendgrid"
	"github.com/phrazzld/sprout-api/internal/service/auth"
	"github.com/phrazzld/sprout-api/internal/service/devices"
	"github.com/phrazzld/sprout-api/internal/service/preferences"
	"github.com/phrazzld/sprout-api/internal/service/schedule"
	"github.com/phrazzld/sprout-api/internal/store"
	"github.com/phrazzld/sprout-api/internal/tick"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the long-lived dependencies so they can be shut down
// in order.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	registry  *prometheus.Registry
	scheduler *tick.Scheduler
	router    http.Handler
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(app.registry)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	scheduleUOW := postgres.NewScheduleUnitOfWork(db, logger)
	occurrenceStore := postgres.NewPostgresOccurrenceStore(db, logger)
	preferenceStore := postgres.NewPostgresPreferenceStore(db, logger)
	deviceStore := postgres.NewPostgresDeviceStore(db, logger)

	defaultLoc := tick.ResolveLocation(cfg.Tick.DefaultTimezone, time.UTC)
	scheduleService := schedule.NewService(
		scheduleUOW,
		occurrenceStore,
		recurrence.NewService(defaultLoc),
		logger,
	)
	deviceRegistry := devices.NewRegistry(deviceStore, logger)
	preferenceService := preferences.NewService(preferenceStore, cfg.Tick.DefaultTimezone, logger)

	deliveryStore, err := app.newDeliveryStore(ctx)
	if err != nil {
		return nil, err
	}
	ledger := notify.NewLedger(deliveryStore, m, logger)

	emailSender, pushSender, err := newTransports(ctx, cfg.Notify, logger)
	if err != nil {
		app.closeRedis()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		SendTimeout:        cfg.Notify.SendTimeout,
		EmailRatePerSecond: cfg.Notify.EmailRatePerSecond,
		EmailBurst:         cfg.Notify.EmailBurst,
	}, emailSender, pushSender, deviceRegistry, m, logger)

	app.scheduler = tick.NewScheduler(tick.Config{
		Cron:            cfg.Tick.Cron,
		Workers:         cfg.Tick.Workers,
		DefaultTimezone: cfg.Tick.DefaultTimezone,
		CatchUpMinutes:  cfg.Tick.CatchUpMinutes,
	}, tick.Deps{
		Preferences: preferenceService,
		Occurrences: occurrenceStore,
		Recipients:  preferenceStore,
		Ledger:      ledger,
		Dispatcher:  dispatcher,
		Metrics:     m,
	}, logger)

	app.router = api.NewRouter(api.RouterDeps{
		JWT:         jwtService,
		Schedules:   scheduleService,
		Devices:     deviceRegistry,
		Preferences: preferenceService,
		Gatherer:    app.registry,
		Health:      app.health,
		Logger:      logger,
	})

	logger.Info("application initialized",
		slog.Bool("email_enabled", emailSender != nil),
		slog.Bool("push_enabled", pushSender != nil))
	return app, nil
}

// newDeliveryStore picks the ledger backend. The redis client is kept on
// app so it can be pinged and closed.
func (app *application) newDeliveryStore(ctx context.Context) (store.DeliveryStore, error) {
	cfg := app.config.Ledger
	switch cfg.Backend {
	case "redis":
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		app.redis = client
		return redis.NewDeliveryStore(client, cfg.Retention, app.logger), nil
	default:
		return postgres.NewPostgresDeliveryStore(app.db, app.logger), nil
	}
}

// newTransports builds whichever channels have credentials. An interface
// is only set when its sender exists so the dispatcher sees a true nil.
func newTransports(
	ctx context.Context,
	cfg config.NotifyConfig,
	logger *slog.Logger,
) (notify.EmailSender, notify.PushSender, error) {
	var (
		email notify.EmailSender
		push  notify.PushSender
	)

	sg, err := sendgrid.NewSender(sendgrid.Config{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	}, logger)
	switch {
	case errors.Is(err, sendgrid.ErrNoAPIKey):
		logger.Warn("email channel disabled: no sendgrid api key configured")
	case err != nil:
		return nil, nil, fmt.Errorf("failed to initialize email sender: %w", err)
	default:
		email = sg
	}

	fs, err := fcm.NewSender(ctx, fcm.Config{
		CredentialsFile: cfg.FirebaseCredentialsFile,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	}, logger)
	switch {
	case errors.Is(err, fcm.ErrNoCredentials):
		logger.Warn("push channel disabled: no firebase credentials configured")
	case err != nil:
		return nil, nil, fmt.Errorf("failed to initialize push sender: %w", err)
	default:
		push = fs
	}

	return email, push, nil
}

func (app *application) health(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run starts the tick (when enabled) and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.config.Tick.Enabled {
		if err := app.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reminder tick: %w", err)
		}
	} else {
		app.logger.Info("reminder tick disabled by configuration")
	}

	return app.serve(ctx)
}

func (app *application) closeRedis() {
	if app.redis == nil {
		return
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
	}
}

// cleanup stops the tick before closing the connections it uses.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	app.closeRedis()
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
}
