package storage

import "time"

// DailyOeeMetric is one row per (machine_id, date). Times are in seconds, scores on a 0-100 scale.
type DailyOeeMetric struct {
	MachineID                  int64     `json:"machine_id"`
	Date                       time.Time `json:"date"`
	AvailabilityScore          float64   `json:"availability_score"`
	PerformanceScore           float64   `json:"performance_score"`
	QualityScore               float64   `json:"quality_score"`
	OeeScore                   float64   `json:"oee_score"`
	TotalGood                  int64     `json:"total_good"`
	TotalReject                int64     `json:"total_reject"`
	TotalRunTime               float64   `json:"total_run_time"`
	TotalPlannedProductionTime float64   `json:"total_planned_production_time"`
	TotalDowntime              float64   `json:"total_downtime"`
	Target                     float64   `json:"target"`
}
