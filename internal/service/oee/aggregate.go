package oee

import (
	"context"
	"fmt"
	"time"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/storage"
)

// FallbackWindowSeconds is the shift window assumed for a day without production shift records.
// It overstates planned time for machines that do not run around the clock.
const FallbackWindowSeconds = 24 * 60 * 60

type RateStorage interface {
	GetProductRate(ctx context.Context, machineID, productID int64) (float64, bool, error)
}

// rateCache lives for one calculation; it is never shared between invocations.
type rateCache struct {
	storage RateStorage
	machine storage.Machine
	byProd  map[int64]float64
}

func newRateCache(st RateStorage, machine storage.Machine) *rateCache {
	return &rateCache{storage: st, machine: machine, byProd: make(map[int64]float64)}
}

func (c *rateCache) machineDefault() float64 {
	if c.machine.IdealRate == nil || *c.machine.IdealRate < 0 {
		return 0
	}
	return *c.machine.IdealRate
}

func (c *rateCache) rate(ctx context.Context, productID *int64) (float64, error) {
	if productID == nil {
		return c.machineDefault(), nil
	}
	if r, ok := c.byProd[*productID]; ok {
		return r, nil
	}

	r, found, err := c.storage.GetProductRate(ctx, c.machine.ID, *productID)
	if err != nil {
		return 0, fmt.Errorf("ideal rate machine=%d product=%d: %w", c.machine.ID, *productID, err)
	}
	if !found {
		r = c.machineDefault()
	}

	c.byProd[*productID] = r
	return r, nil
}

// CycleTime converts units per hour into seconds per unit.
func CycleTime(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return 3600 / rate
}

type dayInput struct {
	shifts   []storage.ProductionShift
	logs     []storage.ProductionLog
	downtime []storage.DowntimeEvent
}

type dayTotals struct {
	shiftSeconds          float64
	plannedDowntime       float64
	unplannedDowntime     float64
	plannedProductionTime float64
	runTime               float64
	standardTimeProduced  float64
	good                  int64
	reject                int64
	countForCalc          float64
	segments              []formula.TargetSegment
}

func (t dayTotals) inputs() formula.Inputs {
	in := formula.Inputs{
		RunTime:               t.runTime,
		PlannedProductionTime: t.plannedProductionTime,
		StandardTimeProduced:  t.standardTimeProduced,
		GoodCount:             float64(t.good),
		RejectCount:           float64(t.reject),
		TotalCount:            float64(t.good + t.reject),
		PlannedDowntime:       t.plannedDowntime,
		UnplannedDowntime:     t.unplannedDowntime,
		TotalShiftTime:        t.shiftSeconds,
	}
	if t.countForCalc > 0 && t.standardTimeProduced > 0 {
		in.IdealCycleTime = t.standardTimeProduced / t.countForCalc
		in.IdealRunRate = 1 / in.IdealCycleTime
		in.IdealRunRateHourly = 3600 / in.IdealCycleTime
	}
	return in
}

// aggregateDay sums one machine-day. Production shift records take precedence over raw logs.
func aggregateDay(ctx context.Context, in dayInput, cfg formula.Config, rates *rateCache, now time.Time) (dayTotals, error) {
	var t dayTotals

	downtimeByShift := make(map[int64]float64)
	for _, ev := range in.downtime {
		secs := ev.SecondsAt(now)
		if ev.IsPlanned() {
			t.plannedDowntime += secs
		} else {
			t.unplannedDowntime += secs
		}
		if ev.ShiftID != nil {
			downtimeByShift[*ev.ShiftID] += secs
		}
	}

	if len(in.shifts) > 0 {
		for _, s := range in.shifts {
			t.shiftSeconds += s.Seconds()
		}
	} else {
		t.shiftSeconds = FallbackWindowSeconds
	}

	t.plannedProductionTime = t.shiftSeconds
	if cfg.ExcludeBreaks {
		t.plannedProductionTime -= t.plannedDowntime
	}
	if t.plannedProductionTime < 1 {
		t.plannedProductionTime = 1
	}

	t.runTime = t.shiftSeconds - t.plannedDowntime - t.unplannedDowntime
	if t.runTime < 0 {
		t.runTime = 0
	}

	countFor := func(good, reject int64) float64 {
		if cfg.IncludeRejectsInPerformance {
			return float64(good + reject)
		}
		return float64(good)
	}

	for _, s := range in.shifts {
		rate, err := rates.rate(ctx, s.ProductID)
		if err != nil {
			return dayTotals{}, err
		}

		count := countFor(s.GoodCount, s.RejectCount)
		t.standardTimeProduced += count * CycleTime(rate)
		t.countForCalc += count
		t.good += s.GoodCount
		t.reject += s.RejectCount

		run := s.Seconds() - downtimeByShift[s.ID]
		if run < 0 {
			run = 0
		}
		t.segments = append(t.segments, formula.TargetSegment{RunTimeSeconds: run, IdealRate: rate})
	}

	for _, l := range in.logs {
		rate, err := rates.rate(ctx, l.ProductID)
		if err != nil {
			return dayTotals{}, err
		}

		count := countFor(l.GoodCount, l.RejectCount)
		t.standardTimeProduced += count * CycleTime(rate)
		t.countForCalc += count
		t.good += l.GoodCount
		t.reject += l.RejectCount
	}

	if len(in.shifts) == 0 {
		t.segments = []formula.TargetSegment{{RunTimeSeconds: t.runTime, IdealRate: rates.machineDefault()}}
	}

	return t, nil
}
