package mysql

import (
	"context"
	"fmt"

	"oee-tracker/internal/storage"
)

// GetShiftDefinitions returns a scope's shift table in evaluation order.
func (s *Storage) GetShiftDefinitions(ctx context.Context, scope string, scopeID int64) ([]storage.ShiftDefinition, error) {
	const op = "storage.mysql.GetShiftDefinitions"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, TIME_FORMAT(start_time, '%H:%i:%s'), TIME_FORMAT(end_time, '%H:%i:%s'), scope, scope_id
		FROM shift_definitions
		WHERE scope = ? AND scope_id = ? AND is_active = TRUE
		ORDER BY sort_order, id`,
		scope, scopeID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var shifts []storage.ShiftDefinition
	for rows.Next() {
		var sd storage.ShiftDefinition
		if err := rows.Scan(&sd.ID, &sd.Name, &sd.StartTime, &sd.EndTime, &sd.Scope, &sd.ScopeID); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		shifts = append(shifts, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return shifts, nil
}
