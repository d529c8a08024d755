package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"oee-tracker/internal/storage"
)

func (s *Storage) GetUnitConversions(ctx context.Context) ([]storage.UnitConversionEntry, error) {
	const op = "storage.mysql.GetUnitConversions"

	rows, err := s.db.QueryContext(ctx, `SELECT code, alias, to_base_factor, category FROM unit_conversions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []storage.UnitConversionEntry
	for rows.Next() {
		var (
			e     storage.UnitConversionEntry
			alias sql.NullString
		)
		if err := rows.Scan(&e.Code, &alias, &e.ToBaseFactor, &e.Category); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		if alias.Valid && alias.String != "" {
			e.Alias = &alias.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return entries, nil
}
