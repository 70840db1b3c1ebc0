package main

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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/oncall-scheduler/internal/application"
	"github.com/example/oncall-scheduler/internal/config"
	httptransport "github.com/example/oncall-scheduler/internal/http"
	"github.com/example/oncall-scheduler/internal/metrics"
	"github.com/example/oncall-scheduler/internal/persistence/sqlite"
	"github.com/example/oncall-scheduler/internal/reminder"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	store := sqlite.NewStore(pool)
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	metrics.Register()

	idGenerator := uuid.NewString
	now := time.Now
	locks := application.NewScheduleLocks(cfg.LockTimeout)

	scheduleService := application.NewScheduleService(store.Schedules, store.Teams, store.People, store.PTO, locks, logger, idGenerator, now)
	directoryService := application.NewDirectoryService(store.People, store.Teams, store.PTO, store.Schedules, logger, idGenerator, now)

	if cfg.ReminderWebhookURL != "" {
		notifier := reminder.NewWebhookNotifier(cfg.ReminderWebhookURL, nil)
		reminderService := reminder.NewService(store.Schedules, notifier, cfg.ReminderLeadDays, logger, now)
		if err := reminderService.Start(ctx, cfg.ReminderCronSpec); err != nil {
			logger.Error("failed to start reminder scheduler", "error", err)
			os.Exit(1)
		}
		defer reminderService.Stop()
		logger.Info("reminder scheduler started", "cron", cfg.ReminderCronSpec, "lead_days", cfg.ReminderLeadDays)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		People:     httptransport.NewPersonHandler(directoryService, logger),
		Teams:      httptransport.NewTeamHandler(directoryService, logger),
		PTO:        httptransport.NewPTOHandler(directoryService, logger),
		Schedules:  httptransport.NewScheduleHandler(scheduleService, logger),
		Metrics:    promhttp.Handler(),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("on-call API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
