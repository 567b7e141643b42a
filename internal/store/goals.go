package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/pagepace/internal/model"
)

// AddGoal stores a reading deadline. The target date keeps only its
// calendar day.
func (s *Store) AddGoal(ctx context.Context, goal model.Goal) (model.Goal, error) {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = nowUTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, label, target_date, document_ids, created_at) VALUES (?, ?, ?, ?, ?)`,
		goal.ID,
		goal.Label,
		goal.TargetDate.Format(dateLayout),
		strings.Join(goal.DocumentIDs, ","),
		formatTime(goal.CreatedAt),
	)
	if err != nil {
		return model.Goal{}, err
	}
	return goal, nil
}

// Goals lists saved goals ordered by target date. Target dates are
// returned as local midnight.
func (s *Store) Goals(ctx context.Context) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, target_date, document_ids, created_at FROM goals ORDER BY target_date ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var goals []model.Goal
	for rows.Next() {
		var goal model.Goal
		var target, docs, created string
		if err := rows.Scan(&goal.ID, &goal.Label, &target, &docs, &created); err != nil {
			return nil, err
		}
		if goal.TargetDate, err = time.ParseInLocation(dateLayout, target, time.Local); err != nil {
			return nil, err
		}
		if goal.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if docs != "" {
			goal.DocumentIDs = strings.Split(docs, ",")
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

// DeleteGoal removes a saved goal.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	return nil
}
