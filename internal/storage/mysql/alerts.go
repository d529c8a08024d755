package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oee-tracker/internal/storage"
)

func (s *Storage) GetActiveAlertRules(ctx context.Context) ([]storage.AlertRule, error) {
	const op = "storage.mysql.GetActiveAlertRules"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, threshold, duration_minutes, scope, scope_id, cooldown_minutes, severity, is_active
		FROM alert_rules
		WHERE is_active = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var rules []storage.AlertRule
	for rows.Next() {
		var (
			r       storage.AlertRule
			scopeID sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Threshold, &r.DurationMinutes, &r.Scope, &scopeID,
			&r.CooldownMinutes, &r.Severity, &r.IsActive); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		r.ScopeID = int64Ptr(scopeID)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return rules, nil
}

// LastAlertTriggeredAt returns the newest trigger time for a (rule, machine) pair.
func (s *Storage) LastAlertTriggeredAt(ctx context.Context, ruleID, machineID int64) (time.Time, bool, error) {
	const op = "storage.mysql.LastAlertTriggeredAt"

	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(triggered_at) FROM alerts WHERE alert_rule_id = ? AND machine_id = ?`,
		ruleID, machineID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return last.Time, last.Valid, nil
}

func (s *Storage) CreateAlert(ctx context.Context, a storage.Alert) (int64, error) {
	const op = "storage.mysql.CreateAlert"

	data, err := json.Marshal(a.Data)
	if err != nil {
		return 0, fmt.Errorf("%s: marshal data: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (alert_rule_id, machine_id, severity, title, message, data, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.AlertRuleID, a.MachineID, a.Severity, a.Title, a.Message, data, a.TriggeredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

const alertColumns = `id, alert_rule_id, machine_id, severity, title, message, data, triggered_at, acknowledged_at, acknowledged_by, resolved_at`

func scanAlert(row scanner) (storage.Alert, error) {
	var (
		a        storage.Alert
		data     []byte
		acked    sql.NullTime
		ackedBy  sql.NullInt64
		resolved sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.AlertRuleID, &a.MachineID, &a.Severity, &a.Title, &a.Message, &data,
		&a.TriggeredAt, &acked, &ackedBy, &resolved); err != nil {
		return storage.Alert{}, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return storage.Alert{}, fmt.Errorf("alert id=%d data: %w", a.ID, err)
		}
	}
	a.AcknowledgedAt = timePtr(acked)
	a.AcknowledgedBy = int64Ptr(ackedBy)
	a.ResolvedAt = timePtr(resolved)
	return a, nil
}

func (s *Storage) GetActiveAlerts(ctx context.Context) ([]storage.Alert, error) {
	const op = "storage.mysql.GetActiveAlerts"

	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE resolved_at IS NULL ORDER BY triggered_at`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var alerts []storage.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return alerts, nil
}

func (s *Storage) GetAlert(ctx context.Context, id int64) (*storage.Alert, error) {
	const op = "storage.mysql.GetAlert"

	a, err := scanAlert(s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: alert id=%d: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &a, nil
}

func (s *Storage) ResolveAlert(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.mysql.ResolveAlert"

	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) AcknowledgeAlert(ctx context.Context, id, userID int64, at time.Time) error {
	const op = "storage.mysql.AcknowledgeAlert"

	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET acknowledged_at = ?, acknowledged_by = ?
		WHERE id = ? AND acknowledged_at IS NULL AND resolved_at IS NULL`,
		at, userID, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: alert id=%d: %w", op, id, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) GetAdminUserIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.mysql.GetAdminUserIDs"

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE is_admin = TRUE AND is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return ids, nil
}
