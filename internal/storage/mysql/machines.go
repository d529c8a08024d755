package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"oee-tracker/internal/storage"
)

const machineColumns = `id, name, plant_id, line_id, ideal_rate, is_active`

func scanMachine(row scanner) (storage.Machine, error) {
	var (
		m     storage.Machine
		line  sql.NullInt64
		ideal sql.NullFloat64
	)
	if err := row.Scan(&m.ID, &m.Name, &m.PlantID, &line, &ideal, &m.IsActive); err != nil {
		return storage.Machine{}, err
	}
	m.LineID = int64Ptr(line)
	m.IdealRate = float64Ptr(ideal)
	return m, nil
}

func (s *Storage) GetMachine(ctx context.Context, id int64) (*storage.Machine, error) {
	const op = "storage.mysql.GetMachine"

	row := s.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE id = ?`, id)
	m, err := scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: machine id=%d: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}

func (s *Storage) GetActiveMachines(ctx context.Context) ([]storage.Machine, error) {
	const op = "storage.mysql.GetActiveMachines"

	rows, err := s.db.QueryContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var machines []storage.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return machines, nil
}

// GetProductRate returns the machine/product ideal rate override; found is false when none is configured.
func (s *Storage) GetProductRate(ctx context.Context, machineID, productID int64) (float64, bool, error) {
	const op = "storage.mysql.GetProductRate"

	var rate float64
	err := s.db.QueryRowContext(ctx,
		`SELECT ideal_rate FROM machine_product_rates WHERE machine_id = ? AND product_id = ?`,
		machineID, productID,
	).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return rate, true, nil
}
