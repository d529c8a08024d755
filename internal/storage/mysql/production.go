package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oee-tracker/internal/storage"
)

const productionShiftColumns = `id, machine_id, product_id, shift_definition_id, started_at, ended_at, good_count, reject_count`

func scanProductionShift(row scanner) (storage.ProductionShift, error) {
	var (
		ps      storage.ProductionShift
		product sql.NullInt64
		def     sql.NullInt64
		ended   sql.NullTime
	)
	if err := row.Scan(&ps.ID, &ps.MachineID, &product, &def, &ps.StartedAt, &ended, &ps.GoodCount, &ps.RejectCount); err != nil {
		return storage.ProductionShift{}, err
	}
	ps.ProductID = int64Ptr(product)
	ps.ShiftDefinitionID = int64Ptr(def)
	ps.EndedAt = timePtr(ended)
	return ps, nil
}

// GetProductionShifts returns the shift records of a machine started in [from, to).
func (s *Storage) GetProductionShifts(ctx context.Context, machineID int64, from, to time.Time) ([]storage.ProductionShift, error) {
	const op = "storage.mysql.GetProductionShifts"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productionShiftColumns+`
		FROM production_shifts
		WHERE machine_id = ? AND started_at >= ? AND started_at < ?
		ORDER BY started_at`,
		machineID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var shifts []storage.ProductionShift
	for rows.Next() {
		ps, err := scanProductionShift(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		shifts = append(shifts, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return shifts, nil
}

// GetActiveProductionShift returns the latest open shift record of a machine.
func (s *Storage) GetActiveProductionShift(ctx context.Context, machineID int64) (*storage.ProductionShift, error) {
	const op = "storage.mysql.GetActiveProductionShift"

	row := s.db.QueryRowContext(ctx, `
		SELECT `+productionShiftColumns+`
		FROM production_shifts
		WHERE machine_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1`,
		machineID,
	)
	ps, err := scanProductionShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: machine id=%d: %w", op, machineID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ps, nil
}

func (s *Storage) GetProductionLogs(ctx context.Context, machineID int64, from, to time.Time) ([]storage.ProductionLog, error) {
	const op = "storage.mysql.GetProductionLogs"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, machine_id, product_id, start_time, good_count, reject_count
		FROM production_logs
		WHERE machine_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time`,
		machineID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var logs []storage.ProductionLog
	for rows.Next() {
		var (
			l       storage.ProductionLog
			product sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.MachineID, &product, &l.StartTime, &l.GoodCount, &l.RejectCount); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		l.ProductID = int64Ptr(product)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return logs, nil
}
