package storage

import "time"

const (
	RuleOeeBelowTarget    = "oee_below_target"
	RuleMachineStopped    = "machine_stopped"
	RuleExcessiveDowntime = "excessive_downtime"
	RuleQualityDrop       = "quality_drop"
	RulePerformanceDrop   = "performance_drop"
)

const (
	ScopeGlobal  = "global"
	ScopePlant   = "plant"
	ScopeLine    = "line"
	ScopeMachine = "machine"
)

type AlertRule struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Threshold       float64 `json:"threshold"`
	DurationMinutes int     `json:"duration_minutes"`
	Scope           string  `json:"scope"`
	ScopeID         *int64  `json:"scope_id"`
	CooldownMinutes int     `json:"cooldown_minutes"`
	Severity        string  `json:"severity"`
	IsActive        bool    `json:"is_active"`
}

type Alert struct {
	ID             int64                  `json:"id"`
	AlertRuleID    int64                  `json:"alert_rule_id"`
	MachineID      int64                  `json:"machine_id"`
	Severity       string                 `json:"severity"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data"`
	TriggeredAt    time.Time              `json:"triggered_at"`
	AcknowledgedAt *time.Time             `json:"acknowledged_at"`
	AcknowledgedBy *int64                 `json:"acknowledged_by"`
	ResolvedAt     *time.Time             `json:"resolved_at"`
}

func (a Alert) IsActive() bool {
	return a.ResolvedAt == nil
}
