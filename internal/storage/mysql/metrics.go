package mysql

import (
	"context"
	"fmt"
	"time"

	"oee-tracker/internal/storage"
)

// UpsertDailyMetric writes the metric for (machine_id, date) in one statement.
func (s *Storage) UpsertDailyMetric(ctx context.Context, m storage.DailyOeeMetric) error {
	const op = "storage.mysql.UpsertDailyMetric"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_oee_metrics
			(machine_id, date, availability_score, performance_score, quality_score, oee_score,
			 total_good, total_reject, total_run_time, total_planned_production_time, total_downtime, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			availability_score = VALUES(availability_score),
			performance_score = VALUES(performance_score),
			quality_score = VALUES(quality_score),
			oee_score = VALUES(oee_score),
			total_good = VALUES(total_good),
			total_reject = VALUES(total_reject),
			total_run_time = VALUES(total_run_time),
			total_planned_production_time = VALUES(total_planned_production_time),
			total_downtime = VALUES(total_downtime),
			target = VALUES(target),
			updated_at = CURRENT_TIMESTAMP`,
		m.MachineID, m.Date.Format(time.DateOnly),
		m.AvailabilityScore, m.PerformanceScore, m.QualityScore, m.OeeScore,
		m.TotalGood, m.TotalReject, m.TotalRunTime, m.TotalPlannedProductionTime, m.TotalDowntime, m.Target,
	)
	if err != nil {
		return fmt.Errorf("%s: machine id=%d date=%s: %w", op, m.MachineID, m.Date.Format(time.DateOnly), err)
	}

	return nil
}
