// Command backoffice launches the order lifecycle engine with its admin API
// and customer sync bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc"

	"github.com/modulhaus/backoffice/internal/audit"
	"github.com/modulhaus/backoffice/internal/bus/syncbus"
	"github.com/modulhaus/backoffice/internal/config"
	"github.com/modulhaus/backoffice/internal/console"
	"github.com/modulhaus/backoffice/internal/domain/orderstore"
	"github.com/modulhaus/backoffice/internal/infra/persistence"
	"github.com/modulhaus/backoffice/internal/infra/persistence/migrations"
	"github.com/modulhaus/backoffice/internal/infra/persistence/postgres"
	httpserver "github.com/modulhaus/backoffice/internal/infra/server/http"
	wsserver "github.com/modulhaus/backoffice/internal/infra/server/ws"
	"github.com/modulhaus/backoffice/internal/kvstate"
	"github.com/modulhaus/backoffice/internal/notify"
	"github.com/modulhaus/backoffice/internal/observability"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

const (
	defaultConfigPath     = "config/app.yaml"
	shutdownTimeout       = 30 * time.Second
	serverShutdownTimeout = 5 * time.Second
	stateFlushTimeout     = 5 * time.Second
	telemetryShutdown     = 5 * time.Second
	readHeaderTimeout     = 5 * time.Second
	persistMaxAttempts    = 3
)

func main() {
	cfgPath := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	observability.SetLogger(observability.NewWriterLogger(os.Stdout, observability.LevelInfo))
	logger := observability.Log()

	appCfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		logger.Error("load config", observability.F("error", err))
		os.Exit(1)
	}
	telemetry.SetEnvironment(string(appCfg.Environment))
	logger.Info("configuration initialised",
		observability.F("env", appCfg.Environment),
		observability.F("addr", appCfg.APIServer.Addr))

	_, telemetryShutdownFn, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: appCfg.Telemetry.OTLPEndpoint,
		ServiceName:  appCfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Error("initialize telemetry", observability.F("error", err))
		os.Exit(1)
	}

	store := orderstore.NewMemoryStore()
	activity := audit.NewLogger()
	notifications := notify.NewDispatcher(appCfg.Store.NotificationRetention)
	bus := syncbus.New()

	var (
		pool      *pgxpool.Pool
		persister console.Persister
		codec     *kvstate.Codec
	)
	if appCfg.Database.DSN != "" {
		if err := migrations.Apply(ctx, appCfg.Database.DSN, appCfg.Database.MigrationsPath); err != nil {
			logger.Error("apply migrations", observability.F("error", err))
			os.Exit(1)
		}
		pool, err = pgxpool.New(ctx, appCfg.Database.DSN)
		if err != nil {
			logger.Error("connect database", observability.F("error", err))
			os.Exit(1)
		}
		archive := postgres.NewOrderArchive(pool)
		persister = console.NewRetryingPersister(archive, persistMaxAttempts)
		codec = kvstate.NewCodec(postgres.NewKVStore(pool))

		if err := seedFromArchive(ctx, store, archive); err != nil {
			logger.Error("seed orders", observability.F("error", err))
			os.Exit(1)
		}
	} else {
		codec = kvstate.NewCodec(persistence.NewMemoryKV())
		logger.Info("no database configured; running in-memory")
	}

	restoreState(ctx, codec, activity, notifications)

	service, err := console.NewService(console.Config{
		Store:         store,
		Activity:      activity,
		Notifications: notifications,
		Bus:           bus,
		Persister:     persister,
	})
	if err != nil {
		logger.Error("initialise console service", observability.F("error", err))
		os.Exit(1)
	}

	var lifecycle conc.WaitGroup

	apiServer := buildAPIServer(appCfg, service, bus)
	lifecycle.Go(func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server", observability.F("error", err))
		}
	})
	logger.Info("admin API listening", observability.F("addr", apiServer.Addr))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	performGracefulShutdown(shutdownCtx, gracefulShutdownConfig{
		server:        apiServer,
		mainCancel:    cancel,
		lifecycle:     &lifecycle,
		bus:           bus,
		codec:         codec,
		activity:      activity,
		notifications: notifications,
		pool:          pool,
		telemetry:     telemetryShutdownFn,
	})
	logger.Info("shutdown completed", observability.F("elapsed", time.Since(shutdownStart)))
}

func parseFlags() string {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to application configuration file (default: %s)", defaultConfigPath))
	flag.Parse()
	if *cfgPath != "" {
		return *cfgPath
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func seedFromArchive(ctx context.Context, store *orderstore.MemoryStore, archive *postgres.OrderArchive) error {
	orders, err := archive.LoadOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range orders {
		if _, err := store.Put(ctx, order); err != nil {
			return fmt.Errorf("seed order %s: %w", order.ID, err)
		}
	}
	if len(orders) > 0 {
		observability.Log().Info("orders restored from archive", observability.F("count", len(orders)))
	}
	return nil
}

func restoreState(ctx context.Context, codec *kvstate.Codec, activity *audit.Logger, notifications *notify.Dispatcher) {
	logger := observability.Log()
	if entries, err := codec.LoadActivityLogs(ctx); err != nil {
		logger.Warn("restore activity log", observability.F("error", err))
	} else if len(entries) > 0 {
		activity.Restore(entries)
		logger.Info("activity log restored", observability.F("count", len(entries)))
	}
	if persisted, err := codec.LoadNotifications(ctx); err != nil {
		logger.Warn("restore notifications", observability.F("error", err))
	} else if len(persisted) > 0 {
		notifications.Restore(persisted)
		logger.Info("notifications restored", observability.F("count", len(persisted)))
	}
}

func buildAPIServer(cfg config.AppConfig, service *console.Service, bus *syncbus.Bus) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/sync", wsserver.NewBridge(bus, cfg.Sync))
	mux.Handle("/", httpserver.NewHandler(service))

	return &http.Server{
		Addr:              cfg.APIServer.Addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

type gracefulShutdownConfig struct {
	server        *http.Server
	mainCancel    context.CancelFunc
	lifecycle     *conc.WaitGroup
	bus           *syncbus.Bus
	codec         *kvstate.Codec
	activity      *audit.Logger
	notifications *notify.Dispatcher
	pool          *pgxpool.Pool
	telemetry     func(context.Context) error
}

func performGracefulShutdown(ctx context.Context, cfg gracefulShutdownConfig) {
	logger := observability.Log()
	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			logger.Warn("shutdown step failed",
				observability.F("step", name), observability.F("error", err))
		}
	}

	if cfg.server != nil {
		shutdownStep("stop api server", serverShutdownTimeout, cfg.server.Shutdown)
	}

	if cfg.mainCancel != nil {
		cfg.mainCancel()
	}

	if cfg.lifecycle != nil {
		cfg.lifecycle.Wait()
	}

	if cfg.bus != nil {
		cfg.bus.Close()
	}

	if cfg.codec != nil {
		shutdownStep("flush state", stateFlushTimeout, func(stepCtx context.Context) error {
			if err := cfg.codec.SaveActivityLogs(stepCtx, cfg.activity.Entries()); err != nil {
				return err
			}
			return cfg.codec.SaveNotifications(stepCtx, cfg.notifications.All())
		})
	}

	if cfg.pool != nil {
		cfg.pool.Close()
	}

	if cfg.telemetry != nil {
		shutdownStep("shutdown telemetry", telemetryShutdown, cfg.telemetry)
	}
}
