package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"oee-tracker/internal/storage"
)

const downtimeColumns = `id, machine_id, shift_id, reason_category, start_time, end_time, duration_seconds`

func (s *Storage) queryDowntime(ctx context.Context, op, query string, args ...any) ([]storage.DowntimeEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var events []storage.DowntimeEvent
	for rows.Next() {
		var (
			ev       storage.DowntimeEvent
			shift    sql.NullInt64
			end      sql.NullTime
			duration sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.MachineID, &shift, &ev.ReasonCategory, &ev.StartTime, &end, &duration); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		ev.ShiftID = int64Ptr(shift)
		ev.EndTime = timePtr(end)
		ev.DurationSeconds = duration.Int64
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return events, nil
}

// GetDowntimeEvents returns the events of a machine started in [from, to).
func (s *Storage) GetDowntimeEvents(ctx context.Context, machineID int64, from, to time.Time) ([]storage.DowntimeEvent, error) {
	return s.queryDowntime(ctx, "storage.mysql.GetDowntimeEvents", `
		SELECT `+downtimeColumns+`
		FROM downtime_events
		WHERE machine_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time`,
		machineID, from, to,
	)
}

func (s *Storage) GetShiftDowntimeEvents(ctx context.Context, productionShiftID int64) ([]storage.DowntimeEvent, error) {
	return s.queryDowntime(ctx, "storage.mysql.GetShiftDowntimeEvents", `
		SELECT `+downtimeColumns+`
		FROM downtime_events
		WHERE shift_id = ?
		ORDER BY start_time`,
		productionShiftID,
	)
}
