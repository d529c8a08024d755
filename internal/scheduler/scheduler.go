package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"oee-tracker/internal/config"
	"oee-tracker/internal/service/alerts"
	"oee-tracker/internal/service/oee"
)

type AlertTicker interface {
	Tick(ctx context.Context) (alerts.TickReport, error)
}

type Recalculator interface {
	Recalculate(ctx context.Context, req oee.RecalculateRequest) (oee.BatchReport, error)
}

// Scheduler runs the alert tick and the nightly recalculation. A run that is still going when
// its next slot comes up is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ticker AlertTicker
	recalc Recalculator
	days   int
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg config.Scheduler, loc *time.Location, ticker AlertTicker, recalc Recalculator, log *slog.Logger) (*Scheduler, error) {
	const op = "scheduler.New"

	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		ticker: ticker,
		recalc: recalc,
		days:   cfg.RecalcDays,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.AlertTick != "" {
		if _, err := c.AddFunc(cfg.AlertTick, s.runAlertTick); err != nil {
			cancel()
			return nil, fmt.Errorf("%s: alert tick %q: %w", op, cfg.AlertTick, err)
		}
	}
	if cfg.NightlyRecalc != "" {
		if _, err := c.AddFunc(cfg.NightlyRecalc, s.runNightlyRecalc); err != nil {
			cancel()
			return nil, fmt.Errorf("%s: nightly recalc %q: %w", op, cfg.NightlyRecalc, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runAlertTick() {
	report, err := s.ticker.Tick(s.ctx)
	if err != nil {
		s.log.Error("alert tick failed", slog.String("error", err.Error()))
		return
	}
	if report.Triggered > 0 || report.Resolved > 0 || report.Errors > 0 {
		s.log.Info("alert tick",
			slog.Int("triggered", report.Triggered),
			slog.Int("resolved", report.Resolved),
			slog.Int("errors", report.Errors),
		)
	}
}

func (s *Scheduler) runNightlyRecalc() {
	report, err := s.recalc.Recalculate(s.ctx, oee.RecalculateRequest{Days: s.days})
	if err != nil {
		s.log.Error("nightly recalculation failed", slog.String("error", err.Error()))
		return
	}
	if report.Failed > 0 {
		s.log.Warn("nightly recalculation had failures",
			slog.Int("failed", report.Failed),
			slog.Int("succeeded", report.Succeeded),
		)
	}
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"error", err.Error()}, keysAndValues...)...)
}
