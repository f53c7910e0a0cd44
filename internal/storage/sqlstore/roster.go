package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kpi-dashboard/internal/storage"
)

// storedDateLayouts covers how DATE columns come back: plain text from sqlite,
// or time.Time rendered by database/sql when the mysql DSN sets parseTime.
var storedDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339Nano,
}

func parseStoredDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range storedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored date %q", s)
}

func (s *Storage) GetRoster(ctx context.Context) ([]storage.AssignmentRule, error) {
	const op = "storage.sqlstore.GetRoster"

	stmt := `SELECT id, operator, coordinator, start_date, end_date, shift, machine
		FROM roster_assignments ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	rules := []storage.AssignmentRule{}

	for rows.Next() {
		var r storage.AssignmentRule
		var start, end string

		err := rows.Scan(&r.ID, &r.Operator, &r.Coordinator, &start, &end, &r.Shift, &r.Machine)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}

		if r.Start, err = parseStoredDate(start); err != nil {
			return nil, fmt.Errorf("%s: rule %d: %w", op, r.ID, err)
		}
		if r.End, err = parseStoredDate(end); err != nil {
			return nil, fmt.Errorf("%s: rule %d: %w", op, r.ID, err)
		}

		rules = append(rules, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", op, err)
	}

	return rules, nil
}

// ReplaceRoster swaps the whole roster table for rules in one transaction.
func (s *Storage) ReplaceRoster(ctx context.Context, rules []storage.AssignmentRule) error {
	const op = "storage.sqlstore.ReplaceRoster"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM roster_assignments`); err != nil {
		return fmt.Errorf("%s: clear roster: %w", op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO roster_assignments (operator, coordinator, start_date, end_date, shift, machine)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%s: prepare insert: %w", op, err)
	}
	defer stmt.Close()

	for i, r := range rules {
		_, err := stmt.ExecContext(ctx,
			r.Operator,
			r.Coordinator,
			r.Start.Format(time.DateOnly),
			r.End.Format(time.DateOnly),
			r.Shift,
			r.Machine,
		)
		if err != nil {
			return fmt.Errorf("%s: insert rule %d: %w", op, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}
