package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/metrics"
	"oee-tracker/internal/storage"
)

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrAlertResolved = errors.New("alert already resolved")
)

type AlertStorage interface {
	GetActiveMachines(ctx context.Context) ([]storage.Machine, error)
	GetMachine(ctx context.Context, id int64) (*storage.Machine, error)
	GetActiveAlertRules(ctx context.Context) ([]storage.AlertRule, error)
	// GetActiveProductionShift returns storage.ErrNotFound when the machine is not running a shift.
	GetActiveProductionShift(ctx context.Context, machineID int64) (*storage.ProductionShift, error)
	GetShiftDowntimeEvents(ctx context.Context, productionShiftID int64) ([]storage.DowntimeEvent, error)
	LastAlertTriggeredAt(ctx context.Context, ruleID, machineID int64) (time.Time, bool, error)
	CreateAlert(ctx context.Context, alert storage.Alert) (int64, error)
	GetActiveAlerts(ctx context.Context) ([]storage.Alert, error)
	GetAlert(ctx context.Context, id int64) (*storage.Alert, error)
	ResolveAlert(ctx context.Context, id int64, at time.Time) error
	AcknowledgeAlert(ctx context.Context, id, userID int64, at time.Time) error
	GetAdminUserIDs(ctx context.Context) ([]int64, error)
}

// Calculator is the part of the OEE engine the evaluator reuses.
type Calculator interface {
	CalculateOee(vars formula.Variables, cfg formula.Config) formula.Scores
	IdealRate(ctx context.Context, machine storage.Machine, productID *int64) (float64, error)
}

type TickReport struct {
	Machines  int `json:"machines"`
	Evaluated int `json:"evaluated"`
	Triggered int `json:"triggered"`
	Resolved  int `json:"resolved"`
	Cooldown  int `json:"cooldown"`
	// AlreadyActive counts triggers skipped because the pair has an unresolved alert.
	AlreadyActive int `json:"already_active"`
	Errors        int `json:"errors"`
}

type alertKey struct {
	rule, machine int64
}

type Evaluator struct {
	storage   AlertStorage
	oee       Calculator
	configs   formula.ConfigSource
	notifiers []Notifier
	log       *slog.Logger
	now       func() time.Time
}

func NewEvaluator(storage AlertStorage, oee Calculator, configs formula.ConfigSource, log *slog.Logger, notifiers ...Notifier) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		storage:   storage,
		oee:       oee,
		configs:   configs,
		notifiers: notifiers,
		log:       log,
		now:       time.Now,
	}
}

// Tick runs one evaluation pass: rules are checked against every active machine, then every
// active alert is considered for resolution. Per-machine failures are logged and counted.
func (e *Evaluator) Tick(ctx context.Context) (TickReport, error) {
	const op = "service.alerts.Tick"

	started := time.Now()
	defer func() { metrics.ObserveAlertTick(time.Since(started)) }()

	now := e.now()
	var report TickReport

	cfg, err := e.configs.FormulaConfig(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: formula config: %w", op, err)
	}

	machines, err := e.storage.GetActiveMachines(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: active machines: %w", op, err)
	}
	rules, err := e.storage.GetActiveAlertRules(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: active rules: %w", op, err)
	}
	active, err := e.storage.GetActiveAlerts(ctx)
	if err != nil {
		return report, fmt.Errorf("%s: active alerts: %w", op, err)
	}
	report.Machines = len(machines)

	open := make(map[alertKey]bool, len(active))
	for _, a := range active {
		open[alertKey{rule: a.AlertRuleID, machine: a.MachineID}] = true
	}

	snapshots := make(map[int64]*snapshot, len(machines))

	for _, m := range machines {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		s, err := e.takeSnapshot(ctx, m, cfg, now)
		if err != nil {
			report.Errors++
			e.log.Error("alert snapshot failed",
				slog.String("op", op),
				slog.Int64("machine_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		snapshots[m.ID] = s
		if s == nil {
			continue
		}

		for _, rule := range rules {
			if !inScope(rule, m) {
				continue
			}
			report.Evaluated++

			r := check(rule, s)
			if r == nil {
				continue
			}

			key := alertKey{rule: rule.ID, machine: m.ID}
			if open[key] {
				report.AlreadyActive++
				continue
			}

			triggered, err := e.trigger(ctx, rule, m, r, now)
			if err != nil {
				report.Errors++
				e.log.Error("alert trigger failed",
					slog.String("op", op),
					slog.Int64("rule_id", rule.ID),
					slog.Int64("machine_id", m.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if triggered {
				report.Triggered++
				open[key] = true
			} else {
				report.Cooldown++
			}
		}
	}

	resolved, errs := e.resolve(ctx, active, rules, snapshots, cfg, now)
	report.Resolved = resolved
	report.Errors += errs

	e.log.Debug("alert tick finished",
		slog.Int("machines", report.Machines),
		slog.Int("triggered", report.Triggered),
		slog.Int("resolved", report.Resolved),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

// trigger creates the alert unless the (rule, machine) pair is cooling down. The cooldown check is
// kept right before the insert.
func (e *Evaluator) trigger(ctx context.Context, rule storage.AlertRule, m storage.Machine, r *reading, now time.Time) (bool, error) {
	if rule.CooldownMinutes > 0 {
		last, ok, err := e.storage.LastAlertTriggeredAt(ctx, rule.ID, m.ID)
		if err != nil {
			return false, fmt.Errorf("cooldown: %w", err)
		}
		if ok && now.Sub(last) < time.Duration(rule.CooldownMinutes)*time.Minute {
			return false, nil
		}
	}

	alert := storage.Alert{
		AlertRuleID: rule.ID,
		MachineID:   m.ID,
		Severity:    rule.Severity,
		Title:       r.title,
		Message:     r.message,
		Data:        r.data,
		TriggeredAt: now,
	}
	alert.Data["rule_type"] = rule.Type

	id, err := e.storage.CreateAlert(ctx, alert)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	alert.ID = id

	metrics.IncAlertTriggered(rule.Type)
	e.log.Info("alert triggered",
		slog.Int64("alert_id", id),
		slog.Int64("rule_id", rule.ID),
		slog.String("rule_type", rule.Type),
		slog.Int64("machine_id", m.ID),
	)

	e.notify(ctx, alert)
	return true, nil
}

func (e *Evaluator) notify(ctx context.Context, alert storage.Alert) {
	if len(e.notifiers) == 0 {
		return
	}

	admins, err := e.storage.GetAdminUserIDs(ctx)
	if err != nil {
		e.log.Error("admin lookup failed", slog.Int64("alert_id", alert.ID), slog.String("error", err.Error()))
		return
	}

	for _, n := range e.notifiers {
		if err := n.Notify(ctx, alert, admins); err != nil {
			e.log.Warn("alert notification failed",
				slog.String("notifier", n.Name()),
				slog.Int64("alert_id", alert.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// resolve works on the alerts that were active when the tick started.
func (e *Evaluator) resolve(ctx context.Context, active []storage.Alert, rules []storage.AlertRule, snapshots map[int64]*snapshot, cfg formula.Config, now time.Time) (resolved, errs int) {
	const op = "service.alerts.resolve"

	rulesByID := make(map[int64]storage.AlertRule, len(rules))
	for _, r := range rules {
		rulesByID[r.ID] = r
	}

	for _, a := range active {
		s, known := snapshots[a.MachineID]
		if !known {
			// Machine is no longer in the active list; look at its shift directly.
			m, err := e.storage.GetMachine(ctx, a.MachineID)
			if err == nil {
				s, err = e.takeSnapshot(ctx, *m, cfg, now)
			}
			if err != nil {
				errs++
				e.log.Error("alert resolution lookup failed",
					slog.String("op", op),
					slog.Int64("alert_id", a.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			snapshots[a.MachineID] = s
		}

		rule, ruleActive := rulesByID[a.AlertRuleID]

		var reason string
		switch {
		case s == nil:
			reason = "no active shift"
		case ruleActive && recovered(rule, s):
			reason = "condition cleared"
		default:
			continue
		}

		if err := e.storage.ResolveAlert(ctx, a.ID, now); err != nil {
			errs++
			e.log.Error("alert resolve failed", slog.String("op", op), slog.Int64("alert_id", a.ID), slog.String("error", err.Error()))
			continue
		}

		resolved++
		ruleType := rule.Type
		if !ruleActive {
			ruleType = "inactive_rule"
		}
		metrics.IncAlertResolved(ruleType)
		e.log.Info("alert resolved",
			slog.Int64("alert_id", a.ID),
			slog.Int64("machine_id", a.MachineID),
			slog.String("reason", reason),
		)
	}

	return resolved, errs
}

// Acknowledge moves a triggered alert to acknowledged. Acknowledging twice keeps the first
// acknowledgement.
func (e *Evaluator) Acknowledge(ctx context.Context, alertID, userID int64) (storage.Alert, error) {
	const op = "service.alerts.Acknowledge"

	a, err := e.storage.GetAlert(ctx, alertID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Alert{}, fmt.Errorf("%s: id=%d: %w", op, alertID, ErrAlertNotFound)
	}
	if err != nil {
		return storage.Alert{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.IsActive() {
		return *a, fmt.Errorf("%s: id=%d: %w", op, alertID, ErrAlertResolved)
	}
	if a.AcknowledgedAt != nil {
		return *a, nil
	}

	now := e.now()
	if err := e.storage.AcknowledgeAlert(ctx, alertID, userID, now); err != nil {
		return storage.Alert{}, fmt.Errorf("%s: %w", op, err)
	}

	a.AcknowledgedAt = &now
	a.AcknowledgedBy = &userID
	return *a, nil
}
