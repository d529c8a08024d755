package alerts

import (
	"fmt"
	"math"

	"oee-tracker/internal/storage"
)

const (
	minWarmupMinutes    = 15
	minStoppedMinutes   = 10
	minQualitySample    = 10
	oeeResolveBuffer    = 5.0
	qualityResolveSlack = 1.0
)

// reading is what a triggered rule reports into the alert.
type reading struct {
	title   string
	message string
	data    map[string]interface{}
}

func inScope(rule storage.AlertRule, m storage.Machine) bool {
	switch rule.Scope {
	case storage.ScopeGlobal, "":
		return true
	case storage.ScopePlant:
		return rule.ScopeID != nil && *rule.ScopeID == m.PlantID
	case storage.ScopeLine:
		return rule.ScopeID != nil && m.LineID != nil && *rule.ScopeID == *m.LineID
	case storage.ScopeMachine:
		return rule.ScopeID != nil && *rule.ScopeID == m.ID
	}
	return false
}

func warmup(rule storage.AlertRule, floor int) float64 {
	return float64(max(rule.DurationMinutes, floor))
}

// check evaluates a rule against the live shift. It returns nil when the rule does not trigger.
func check(rule storage.AlertRule, s *snapshot) *reading {
	name := s.machine.Name
	if name == "" {
		name = fmt.Sprintf("machine %d", s.machine.ID)
	}

	switch rule.Type {
	case storage.RuleOeeBelowTarget:
		if s.runningMinutes() < warmup(rule, minWarmupMinutes) || s.scores.Oee >= rule.Threshold {
			return nil
		}
		return &reading{
			title:   fmt.Sprintf("OEE below target on %s", name),
			message: fmt.Sprintf("OEE is %.1f%%, target %.1f%%", s.scores.Oee, rule.Threshold),
			data: map[string]interface{}{
				"oee":          round2(s.scores.Oee),
				"availability": round2(s.scores.Availability),
				"performance":  round2(s.scores.Performance),
				"quality":      round2(s.scores.Quality),
				"threshold":    rule.Threshold,
				"shift_id":     s.shift.ID,
			},
		}

	case storage.RuleMachineStopped:
		if !s.hasOpen || s.openDowntime.Minutes() < warmup(rule, minStoppedMinutes) {
			return nil
		}
		return &reading{
			title:   fmt.Sprintf("%s stopped", name),
			message: fmt.Sprintf("%s has been stopped for %.0f minutes", name, s.openDowntime.Minutes()),
			data: map[string]interface{}{
				"stopped_minutes": round2(s.openDowntime.Minutes()),
				"shift_id":        s.shift.ID,
			},
		}

	case storage.RuleExcessiveDowntime:
		if !s.hasOpen || s.openDowntime.Minutes() < rule.Threshold {
			return nil
		}
		return &reading{
			title:   fmt.Sprintf("Excessive downtime on %s", name),
			message: fmt.Sprintf("Open downtime of %.0f minutes exceeds %.0f minutes", s.openDowntime.Minutes(), rule.Threshold),
			data: map[string]interface{}{
				"downtime_minutes": round2(s.openDowntime.Minutes()),
				"threshold":        rule.Threshold,
				"shift_id":         s.shift.ID,
			},
		}

	case storage.RuleQualityDrop:
		if s.total() < minQualitySample || s.rejectRate() <= rule.Threshold {
			return nil
		}
		return &reading{
			title:   fmt.Sprintf("Quality drop on %s", name),
			message: fmt.Sprintf("Reject rate is %.1f%%, limit %.1f%%", s.rejectRate(), rule.Threshold),
			data: map[string]interface{}{
				"reject_rate":  round2(s.rejectRate()),
				"reject_count": s.reject,
				"total_count":  s.total(),
				"threshold":    rule.Threshold,
				"shift_id":     s.shift.ID,
			},
		}

	case storage.RulePerformanceDrop:
		if s.runningMinutes() < warmup(rule, minWarmupMinutes) {
			return nil
		}
		perf, ok := s.performance()
		if !ok || perf >= rule.Threshold {
			return nil
		}
		return &reading{
			title:   fmt.Sprintf("Performance drop on %s", name),
			message: fmt.Sprintf("Running at %.1f%% of ideal rate, limit %.1f%%", perf, rule.Threshold),
			data: map[string]interface{}{
				"performance": round2(perf),
				"actual_rate": round2(float64(s.total()) / s.elapsed.Hours()),
				"ideal_rate":  s.idealRate,
				"threshold":   rule.Threshold,
				"shift_id":    s.shift.ID,
			},
		}
	}

	return nil
}

// recovered reports whether an active alert can be resolved while its machine still has an
// active shift. Resolve thresholds sit apart from trigger thresholds so alerts do not flap.
func recovered(rule storage.AlertRule, s *snapshot) bool {
	switch rule.Type {
	case storage.RuleOeeBelowTarget:
		return s.scores.Oee >= rule.Threshold+oeeResolveBuffer
	case storage.RuleQualityDrop:
		return s.rejectRate() <= rule.Threshold-qualityResolveSlack
	case storage.RuleMachineStopped, storage.RuleExcessiveDowntime:
		return !s.hasOpen
	}
	// performance_drop clears when the shift ends.
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
