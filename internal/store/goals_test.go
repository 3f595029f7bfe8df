package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return db, mock
}

func goalColumns() []string {
	return []string{"id", "user_id", "domain", "description", "status", "dependencies", "created_at", "updated_at"}
}

// ==========================
// GoalStore Tests
// ==========================

func TestGoalsForUser_DecodesDependencies(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	deps, _ := json.Marshal([]models.GoalDependency{
		{TargetGoalID: "goal-income", Relation: models.RelationRequires, Strength: 1.0},
	})
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, domain").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(goalColumns()).
			AddRow("goal-dp", "user-1", "finance", "Save $50k down payment", "active", deps, now, now).
			AddRow("goal-income", "user-1", "career", "Increase income", "active", []byte(nil), now, now))

	s := NewPostgresGoalStore(db, logger.NewNoOpLogger())
	goals, err := s.GoalsForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 2)

	assert.Equal(t, "goal-dp", goals[0].ID)
	require.Len(t, goals[0].Dependencies, 1)
	assert.Equal(t, models.RelationRequires, goals[0].Dependencies[0].Relation)
	assert.Equal(t, "goal-income", goals[0].Dependencies[0].TargetGoalID)
	assert.Empty(t, goals[1].Dependencies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalsForUser_CorruptDependenciesAreDropped(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, domain").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(goalColumns()).
			AddRow("goal-1", "user-1", "finance", "desc", "active", []byte("not json"), now, now))

	s := NewPostgresGoalStore(db, logger.NewNoOpLogger())
	goals, err := s.GoalsForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Nil(t, goals[0].Dependencies)
}

func TestSaveGoal_InsertsWithSerializedDependencies(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO goals").
		WithArgs("goal-1", "user-1", "finance", "Save more", "active",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewPostgresGoalStore(db, logger.NewNoOpLogger())
	goal := &models.Goal{
		ID:          "goal-1",
		UserID:      "user-1",
		Domain:      "finance",
		Description: "Save more",
		Status:      models.GoalActive,
		Dependencies: []models.GoalDependency{
			{TargetGoalID: "goal-2", Relation: models.RelationSupports, Strength: 0.5},
		},
	}
	require.NoError(t, s.SaveGoal(context.Background(), goal))
	assert.False(t, goal.CreatedAt.IsZero())
	assert.False(t, goal.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGoalStatus_UnknownGoal(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE goals SET status").
		WithArgs("completed", sqlmock.AnyArg(), "goal-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresGoalStore(db, logger.NewNoOpLogger())
	err := s.UpdateGoalStatus(context.Background(), "goal-missing", models.GoalCompleted)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteGoal(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM goals").
		WithArgs("goal-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewPostgresGoalStore(db, logger.NewNoOpLogger())
	assert.NoError(t, s.DeleteGoal(context.Background(), "goal-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
