// Package store holds the persistence layer: goal records in Postgres and
// the archive of produced results.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// GoalStore reads and writes persisted goals. Goal lifecycle is external:
// planning creates them, the user updates them, completion removes them.
type GoalStore interface {
	GoalsForUser(ctx context.Context, userID string) ([]models.Goal, error)
	SaveGoal(ctx context.Context, goal *models.Goal) error
	UpdateGoalStatus(ctx context.Context, goalID string, status models.GoalStatus) error
	DeleteGoal(ctx context.Context, goalID string) error
}

// PostgresGoalStore backs GoalStore with the goals table. Dependencies are
// stored as a JSONB column.
type PostgresGoalStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresGoalStore(db *sql.DB, log logger.Logger) *PostgresGoalStore {
	return &PostgresGoalStore{db: db, logger: log}
}

func (s *PostgresGoalStore) GoalsForUser(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, domain, description, status, dependencies, created_at, updated_at
		FROM goals WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var goal models.Goal
		var deps []byte
		if err := rows.Scan(&goal.ID, &goal.UserID, &goal.Domain, &goal.Description,
			&goal.Status, &deps, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, err
		}
		if len(deps) > 0 {
			if err := json.Unmarshal(deps, &goal.Dependencies); err != nil {
				s.logger.Warn("failed to decode goal dependencies", map[string]interface{}{
					"goalId": goal.ID,
					"error":  err,
				})
				goal.Dependencies = nil
			}
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

func (s *PostgresGoalStore) SaveGoal(ctx context.Context, goal *models.Goal) error {
	deps, err := json.Marshal(goal.Dependencies)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, domain, description, status, dependencies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			domain = EXCLUDED.domain,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			dependencies = EXCLUDED.dependencies,
			updated_at = EXCLUDED.updated_at`,
		goal.ID, goal.UserID, goal.Domain, goal.Description, goal.Status, deps,
		goal.CreatedAt, goal.UpdatedAt)
	return err
}

func (s *PostgresGoalStore) UpdateGoalStatus(ctx context.Context, goalID string, status models.GoalStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE goals SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), goalID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresGoalStore) DeleteGoal(ctx context.Context, goalID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, goalID)
	return err
}
