package storage

import "time"

const ReasonPlanned = "planned"

type DowntimeEvent struct {
	ID              int64      `json:"id"`
	MachineID       int64      `json:"machine_id"`
	ShiftID         *int64     `json:"shift_id"` // production_shifts.id the event happened on
	ReasonCategory  string     `json:"reason_category"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds int64      `json:"duration_seconds"`
}

func (e DowntimeEvent) IsOngoing() bool {
	return e.EndTime == nil
}

func (e DowntimeEvent) IsPlanned() bool {
	return e.ReasonCategory == ReasonPlanned
}

// SecondsAt returns the event duration. Ongoing events are measured up to now,
// closed events use the stored duration and fall back to end - start.
func (e DowntimeEvent) SecondsAt(now time.Time) float64 {
	if e.EndTime == nil {
		d := now.Sub(e.StartTime).Seconds()
		if d < 0 {
			return 0
		}
		return d
	}
	if e.DurationSeconds > 0 {
		return float64(e.DurationSeconds)
	}
	d := e.EndTime.Sub(e.StartTime).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
