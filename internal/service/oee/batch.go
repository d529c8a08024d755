package oee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type RecalculateRequest struct {
	// Days counts back from today, today included. Values below 1 mean today only.
	Days      int    `json:"days"`
	MachineID *int64 `json:"machine_id,omitempty"`
}

type UnitFailure struct {
	MachineID int64  `json:"machine_id"`
	Date      string `json:"date"`
	Error     string `json:"error"`
}

type BatchReport struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Failures  []UnitFailure `json:"failures,omitempty"`
	Cancelled bool          `json:"cancelled"`
}

// Recalculate recomputes every (machine, day) unit in the window. A failed unit is reported and the
// batch goes on. Cancelling ctx stops issuing new units; units already started are finished so no
// day is left half written.
func (e *Engine) Recalculate(ctx context.Context, req RecalculateRequest) (BatchReport, error) {
	const op = "service.oee.Recalculate"

	machineIDs, err := e.batchMachines(ctx, req.MachineID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("%s: %w", op, err)
	}

	days := req.Days
	if days < 1 {
		days = 1
	}
	today := e.Day(e.now())

	var (
		mu     sync.Mutex
		report BatchReport
	)

	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	total := len(machineIDs) * days
	issued := 0

issue:
	for _, machineID := range machineIDs {
		machineID := machineID
		for d := 0; d < days; d++ {
			if ctx.Err() != nil {
				break issue
			}

			day := today.AddDate(0, 0, -d)
			issued++

			g.Go(func() error {
				_, err := e.CalculateForMachine(context.WithoutCancel(ctx), machineID, day)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed++
					report.Failures = append(report.Failures, UnitFailure{
						MachineID: machineID,
						Date:      day.Format(time.DateOnly),
						Error:     err.Error(),
					})
					e.log.Error("recalculation unit failed",
						slog.String("op", op),
						slog.Int64("machine_id", machineID),
						slog.String("date", day.Format(time.DateOnly)),
						slog.String("error", err.Error()),
					)
					return nil
				}
				report.Succeeded++
				return nil
			})
		}
	}

	_ = g.Wait()

	report.Skipped = total - issued
	report.Cancelled = report.Skipped > 0

	e.log.Info("recalculation finished",
		slog.Int("machines", len(machineIDs)),
		slog.Int("days", days),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)

	return report, nil
}

func (e *Engine) batchMachines(ctx context.Context, machineID *int64) ([]int64, error) {
	if machineID != nil {
		m, err := e.storage.GetMachine(ctx, *machineID)
		if err != nil {
			return nil, fmt.Errorf("machine id=%d: %w", *machineID, err)
		}
		return []int64{m.ID}, nil
	}

	machines, err := e.storage.GetActiveMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("active machines: %w", err)
	}

	ids := make([]int64, 0, len(machines))
	for _, m := range machines {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// OnProductionChanged recomputes the day(s) touched by a created, updated or deleted production
// record. previousAt is the record's old start when an update moved it.
func (e *Engine) OnProductionChanged(ctx context.Context, machineID int64, at time.Time, previousAt *time.Time) error {
	return e.recomputeAffected(ctx, "service.oee.OnProductionChanged", machineID, at, previousAt)
}

func (e *Engine) OnDowntimeChanged(ctx context.Context, machineID int64, at time.Time, previousAt *time.Time) error {
	return e.recomputeAffected(ctx, "service.oee.OnDowntimeChanged", machineID, at, previousAt)
}

func (e *Engine) recomputeAffected(ctx context.Context, op string, machineID int64, at time.Time, previousAt *time.Time) error {
	days := AffectedDays(e.loc, at, previousAt)

	var errs []error
	for _, day := range days {
		if _, err := e.CalculateForMachine(ctx, machineID, day); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AffectedDays returns the calendar day of at, plus the day of previousAt when it differs.
func AffectedDays(loc *time.Location, at time.Time, previousAt *time.Time) []time.Time {
	day := func(t time.Time) time.Time {
		y, m, d := t.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	days := []time.Time{day(at)}
	if previousAt != nil {
		if prev := day(*previousAt); !prev.Equal(days[0]) {
			days = append(days, prev)
		}
	}
	return days
}
