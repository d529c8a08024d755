package oee

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/lock"
	"oee-tracker/internal/metrics"
	"oee-tracker/internal/storage"
)

type OeeStorage interface {
	GetMachine(ctx context.Context, id int64) (*storage.Machine, error)
	GetActiveMachines(ctx context.Context) ([]storage.Machine, error)
	GetProductionShifts(ctx context.Context, machineID int64, from, to time.Time) ([]storage.ProductionShift, error)
	GetProductionLogs(ctx context.Context, machineID int64, from, to time.Time) ([]storage.ProductionLog, error)
	GetDowntimeEvents(ctx context.Context, machineID int64, from, to time.Time) ([]storage.DowntimeEvent, error)
	GetProductRate(ctx context.Context, machineID, productID int64) (float64, bool, error)
	UpsertDailyMetric(ctx context.Context, m storage.DailyOeeMetric) error
}

type Options struct {
	// Location defines calendar days. Defaults to UTC.
	Location *time.Location
	// Workers bounds concurrent units in Recalculate. Defaults to 4.
	Workers int
	Now     func() time.Time
}

// Engine turns production and downtime records into daily OEE metrics. It is the only writer of
// daily_oee_metrics.
type Engine struct {
	storage   OeeStorage
	configs   formula.ConfigSource
	evaluator *formula.Evaluator
	locker    lock.Locker
	log       *slog.Logger

	loc     *time.Location
	workers int
	now     func() time.Time
}

func NewEngine(storage OeeStorage, configs formula.ConfigSource, locker lock.Locker, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		storage:   storage,
		configs:   configs,
		evaluator: formula.NewEvaluator(log),
		locker:    locker,
		log:       log,
		loc:       opts.Location,
		workers:   opts.Workers,
		now:       opts.Now,
	}
}

// CalculateOee is the pure score calculation, usable without touching daily records.
func (e *Engine) CalculateOee(vars formula.Variables, cfg formula.Config) formula.Scores {
	return e.evaluator.Scores(cfg, vars)
}

func (e *Engine) CalculateTarget(tc formula.TargetContext, cfg formula.Config) float64 {
	return e.evaluator.Target(tc, cfg.Target)
}

// Day returns the calendar day containing t in the facility location.
func (e *Engine) Day(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// CalculateForMachine recomputes and upserts the metric for one machine and calendar day.
// The read-aggregate-write cycle for a (machine, day) key is serialised through the locker.
func (e *Engine) CalculateForMachine(ctx context.Context, machineID int64, date time.Time) (metric storage.DailyOeeMetric, err error) {
	const op = "service.oee.CalculateForMachine"

	started := time.Now()
	defer func() { metrics.ObserveCalculation(time.Since(started), err) }()

	from := e.Day(date)
	to := from.AddDate(0, 0, 1)

	unlock, err := e.locker.Lock(ctx, lockKey(machineID, from))
	if err != nil {
		return storage.DailyOeeMetric{}, fmt.Errorf("%s: lock: %w", op, err)
	}
	defer unlock()

	cfg, err := e.configs.FormulaConfig(ctx)
	if err != nil {
		return storage.DailyOeeMetric{}, fmt.Errorf("%s: formula config: %w", op, err)
	}

	var (
		machine  *storage.Machine
		shifts   []storage.ProductionShift
		downtime []storage.DowntimeEvent
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		machine, err = e.storage.GetMachine(gCtx, machineID)
		if err != nil {
			return fmt.Errorf("machine: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		shifts, err = e.storage.GetProductionShifts(gCtx, machineID, from, to)
		if err != nil {
			return fmt.Errorf("production shifts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		downtime, err = e.storage.GetDowntimeEvents(gCtx, machineID, from, to)
		if err != nil {
			return fmt.Errorf("downtime events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return storage.DailyOeeMetric{}, fmt.Errorf("%s: machine id=%d: %w", op, machineID, err)
	}

	input := dayInput{shifts: shifts, downtime: downtime}
	if len(shifts) == 0 {
		input.logs, err = e.storage.GetProductionLogs(ctx, machineID, from, to)
		if err != nil {
			return storage.DailyOeeMetric{}, fmt.Errorf("%s: production logs: %w", op, err)
		}
	}

	rates := newRateCache(e.storage, *machine)
	totals, err := aggregateDay(ctx, input, cfg, rates, e.now())
	if err != nil {
		return storage.DailyOeeMetric{}, fmt.Errorf("%s: machine id=%d: %w", op, machineID, err)
	}

	vars := totals.inputs().Variables()
	scores := e.CalculateOee(vars, cfg)
	target := e.CalculateTarget(formula.TargetContext{Segments: totals.segments, Variables: vars}, cfg)

	metric = storage.DailyOeeMetric{
		MachineID:                  machineID,
		Date:                       from,
		AvailabilityScore:          scores.Availability,
		PerformanceScore:           scores.Performance,
		QualityScore:               scores.Quality,
		OeeScore:                   scores.Oee,
		TotalGood:                  totals.good,
		TotalReject:                totals.reject,
		TotalRunTime:               totals.runTime,
		TotalPlannedProductionTime: totals.plannedProductionTime,
		TotalDowntime:              totals.plannedDowntime + totals.unplannedDowntime,
		Target:                     target,
	}

	if err := e.storage.UpsertDailyMetric(ctx, metric); err != nil {
		return storage.DailyOeeMetric{}, fmt.Errorf("%s: upsert: %w", op, err)
	}

	e.log.Debug("daily oee calculated",
		slog.Int64("machine_id", machineID),
		slog.String("date", from.Format(time.DateOnly)),
		slog.Float64("oee", scores.Oee),
		slog.Bool("from_shift_records", len(shifts) > 0),
	)

	return metric, nil
}

// IdealRate resolves units per hour for a machine and product: product override, then the machine
// default, then 0.
func (e *Engine) IdealRate(ctx context.Context, machine storage.Machine, productID *int64) (float64, error) {
	return newRateCache(e.storage, machine).rate(ctx, productID)
}

func lockKey(machineID int64, day time.Time) string {
	return fmt.Sprintf("oee:%d:%s", machineID, day.Format(time.DateOnly))
}
