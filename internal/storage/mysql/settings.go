package mysql

import (
	"context"
	"fmt"
	"strings"
)

// GetSettings returns the requested keys that exist; missing keys are absent from the map.
func (s *Storage) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	const op = "storage.mysql.GetSettings"

	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx, `SELECT setting_key, setting_value FROM settings WHERE setting_key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return out, nil
}
