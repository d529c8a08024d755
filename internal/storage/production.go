package storage

import "time"

type ProductionLog struct {
	ID          int64     `json:"id"`
	MachineID   int64     `json:"machine_id"`
	ProductID   *int64    `json:"product_id"`
	StartTime   time.Time `json:"start_time"`
	GoodCount   int64     `json:"good_count"`
	RejectCount int64     `json:"reject_count"`
}

// ProductionShift is one shift a machine actually ran. EndedAt is nil while the shift is active
// and its counters are updated live.
type ProductionShift struct {
	ID                int64      `json:"id"`
	MachineID         int64      `json:"machine_id"`
	ProductID         *int64     `json:"product_id"`
	ShiftDefinitionID *int64     `json:"shift_definition_id"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	GoodCount         int64      `json:"good_count"`
	RejectCount       int64      `json:"reject_count"`
}

// DefaultShiftLength stands in for the end of a shift record that was never closed.
const DefaultShiftLength = 8 * time.Hour

func (s ProductionShift) IsActive() bool {
	return s.EndedAt == nil
}

// Seconds is the length of the shift record, using DefaultShiftLength when it has no end.
func (s ProductionShift) Seconds() float64 {
	end := s.StartedAt.Add(DefaultShiftLength)
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
