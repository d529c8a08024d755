// Command recalculate rebuilds daily OEE records for a window of days and exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"oee-tracker/internal/config"
	"oee-tracker/internal/formula"
	"oee-tracker/internal/logger"
	"oee-tracker/internal/service/oee"
	"oee-tracker/internal/storage/mysql"
)

func main() {
	days := flag.Int("days", 1, "days to recompute, counting back from today")
	machine := flag.Int64("machine", 0, "recompute only this machine id")
	flag.Parse()

	cfg := config.MustConfig()
	log := logger.Setup(cfg.Env, cfg.ErrorLogPath)

	storage, err := mysql.New(*cfg)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	engine := oee.NewEngine(storage, formula.NewSettingsCache(storage, cfg.SettingsCacheTTL), nil, log, oee.Options{
		Location: cfg.Location(),
		Workers:  cfg.RecalculationWorkers,
	})

	req := oee.RecalculateRequest{Days: *days}
	if *machine > 0 {
		req.MachineID = machine
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.Recalculate(ctx, req)
	if err != nil {
		log.Error("recalculation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("recalculation finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Bool("cancelled", report.Cancelled),
	)
	for _, f := range report.Failures {
		log.Warn("unit failed", slog.Int64("machine_id", f.MachineID), slog.String("date", f.Date), slog.String("error", f.Error))
	}

	if report.Failed > 0 || report.Cancelled {
		os.Exit(2)
	}
}
