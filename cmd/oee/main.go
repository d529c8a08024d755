package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"oee-tracker/internal/config"
	"oee-tracker/internal/formula"
	"oee-tracker/internal/lock"
	"oee-tracker/internal/logger"
	"oee-tracker/internal/metrics"
	"oee-tracker/internal/scheduler"
	"oee-tracker/internal/service/alerts"
	"oee-tracker/internal/service/oee"
	"oee-tracker/internal/shift"
	"oee-tracker/internal/storage/mysql"
	"oee-tracker/internal/units"
)

func main() {
	cfg := config.MustConfig()

	log := logger.Setup(cfg.Env, cfg.ErrorLogPath)
	loc := cfg.Location()

	storage, err := mysql.New(*cfg)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	metrics.Register()

	formulas := formula.NewSettingsCache(storage, cfg.SettingsCacheTTL)

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = lock.NewRedis(rdb, cfg.Redis.LockTTL)
	}

	engine := oee.NewEngine(storage, formulas, locker, log, oee.Options{
		Location: loc,
		Workers:  cfg.RecalculationWorkers,
	})

	evaluator := alerts.NewEvaluator(storage, engine, formulas, log,
		alerts.NewLogNotifier(log),
		alerts.NewWebhookNotifier(cfg.NotifyWebhookURL),
	)

	unitResolver := units.NewResolver(storage, log)
	if err := unitResolver.RefreshCache(context.Background()); err != nil {
		log.Warn("unit conversions not loaded, using defaults", slog.String("error", err.Error()))
	}

	shifts := shift.NewService(storage, loc)

	sched, err := scheduler.New(cfg.Scheduler, loc, evaluator, engine, log)
	if err != nil {
		log.Error("failed to set up scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sched.Start()

	srv := &http.Server{
		Addr: cfg.Address,
		Handler: routes(*cfg, log, services{
			engine:    engine,
			evaluator: evaluator,
			units:     unitResolver,
			shifts:    shifts,
			formulas:  formulas,
		}),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", slog.String("address", cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
	}
	sched.Stop()

	log.Info("server stopped")
}
