package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/storage"
)

// snapshot is the live state of a machine's active production shift at one instant.
type snapshot struct {
	machine storage.Machine
	shift   storage.ProductionShift

	elapsed      time.Duration
	openDowntime time.Duration // longest open downtime event on the shift
	hasOpen      bool

	good, reject int64
	idealRate    float64
	scores       formula.Scores
}

func (s *snapshot) total() int64 {
	return s.good + s.reject
}

func (s *snapshot) runningMinutes() float64 {
	return s.elapsed.Minutes()
}

// rejectRate is a percentage of the shift-to-date total.
func (s *snapshot) rejectRate() float64 {
	if s.total() <= 0 {
		return 0
	}
	return float64(s.reject) / float64(s.total()) * 100
}

// performance compares the actual hourly rate with the ideal rate. ok is false without an ideal rate.
func (s *snapshot) performance() (value float64, ok bool) {
	if s.idealRate <= 0 || s.elapsed <= 0 {
		return 0, false
	}
	actual := float64(s.total()) / s.elapsed.Hours()
	return actual / s.idealRate * 100, true
}

// takeSnapshot returns nil when the machine has no active production shift.
func (e *Evaluator) takeSnapshot(ctx context.Context, machine storage.Machine, cfg formula.Config, now time.Time) (*snapshot, error) {
	shift, err := e.storage.GetActiveProductionShift(ctx, machine.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active shift: %w", err)
	}

	events, err := e.storage.GetShiftDowntimeEvents(ctx, shift.ID)
	if err != nil {
		return nil, fmt.Errorf("shift downtime: %w", err)
	}

	rate, err := e.oee.IdealRate(ctx, machine, shift.ProductID)
	if err != nil {
		return nil, err
	}

	s := &snapshot{
		machine:   machine,
		shift:     *shift,
		elapsed:   now.Sub(shift.StartedAt),
		good:      shift.GoodCount,
		reject:    shift.RejectCount,
		idealRate: rate,
	}
	if s.elapsed < 0 {
		s.elapsed = 0
	}

	var planned, unplanned float64
	for _, ev := range events {
		secs := ev.SecondsAt(now)
		if ev.IsPlanned() {
			planned += secs
		} else {
			unplanned += secs
		}
		if ev.IsOngoing() {
			s.hasOpen = true
			if d := time.Duration(secs * float64(time.Second)); d > s.openDowntime {
				s.openDowntime = d
			}
		}
	}

	elapsed := s.elapsed.Seconds()
	ppt := elapsed
	if cfg.ExcludeBreaks {
		ppt -= planned
	}
	run := elapsed - planned - unplanned
	if run < 0 {
		run = 0
	}

	count := float64(s.total())
	if !cfg.IncludeRejectsInPerformance {
		count = float64(s.good)
	}
	in := formula.Inputs{
		RunTime:               run,
		PlannedProductionTime: ppt,
		GoodCount:             float64(s.good),
		RejectCount:           float64(s.reject),
		TotalCount:            float64(s.total()),
		PlannedDowntime:       planned,
		UnplannedDowntime:     unplanned,
		TotalShiftTime:        elapsed,
	}
	if rate > 0 {
		cycle := 3600 / rate
		in.StandardTimeProduced = count * cycle
		in.IdealCycleTime = cycle
		in.IdealRunRate = rate / 3600
		in.IdealRunRateHourly = rate
	}

	s.scores = e.oee.CalculateOee(in.Variables(), cfg)

	return s, nil
}
