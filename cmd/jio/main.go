package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/config"
	httptransport "github.com/example/jio-scheduler/internal/http"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/notify"
	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/persistence/memory"
	"github.com/example/jio-scheduler/internal/persistence/sqlite"
	"github.com/example/jio-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/jio-scheduler/internal/reminder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("jio service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	repo := application.NewRepository(store, logger)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	sweeper := reminder.NewSweeper(repo, repo, notifier, cfg.Location, time.Now, logger)
	if err := sweeper.Start(ctx, cfg.ReminderCron); err != nil {
		return err
	}
	defer sweeper.Stop()

	server := newServer(ctx, cfg.Addr(), newHandler(repo, cfg, logger))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("jio API listening", "addr", server.Addr, "store", cfg.Store, "timezone", cfg.TimeZone, "reminder_cron", cfg.ReminderCron)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// newServer builds the API server. Request contexts derive from ctx so
// open heat-map streams end as soon as shutdown begins. There is no write
// timeout because streams stay open.
func newServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// openStore opens the configured backend and applies migrations when the
// backend has any.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.DocumentStore, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewWithLogger(logger)
		return store, store.Close, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func newHandler(repo *application.Repository, cfg config.Config, logger *slog.Logger) http.Handler {
	identity := application.ContextIdentity{}
	now := time.Now

	profiles := application.NewProfileServiceWithLogger(repo, identity, now, logger)
	groups := application.NewGroupServiceWithLogger(repo, identity, repo, nil, now, logger)
	availability := application.NewAvailabilityServiceWithLogger(repo, identity, now, logger)
	confirmations := application.NewConfirmationServiceWithLogger(repo, identity, now, logger)
	calendar := application.NewCalendarServiceWithLogger(repo, identity, cfg.Location, now, logger)
	reminders := application.NewReminderServiceWithLogger(repo, identity, cfg.Location, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Profiles:      httptransport.NewProfileHandler(profiles, logger),
		Groups:        httptransport.NewGroupHandler(groups, reminders, logger),
		Availability:  httptransport.NewAvailabilityHandler(availability, logger),
		Confirmations: httptransport.NewConfirmationHandler(confirmations, logger),
		Calendar:      httptransport.NewCalendarHandler(calendar, logger),
		Identity:      httptransport.RequireIdentity(repo, logger),
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}

// newNotifier always logs reminders and also posts them to Telegram when a
// bot token is configured.
func newNotifier(cfg config.Config, logger *slog.Logger) (reminder.Notifier, error) {
	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.TelegramEnabled() {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, telegram)
	}
	return notifiers, nil
}
