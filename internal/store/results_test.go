package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// ==========================
// ResultArchive Tests
// ==========================

func TestArchive_InsertsResultRow(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO unified_results").
		WithArgs("user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	a := NewResultArchive(db, nil, "", logger.NewNoOpLogger())
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	result := models.NewUnifiedResult("user-1")
	result.OverallConfidence = 0.7
	require.NoError(t, a.Archive(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchive_DatabaseErrorIsWrapped(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO unified_results").
		WillReturnError(assert.AnError)

	a := NewResultArchive(db, nil, "", logger.NewNoOpLogger())
	err := a.Archive(context.Background(), models.NewUnifiedResult("user-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESULT_ARCHIVE_FAILED")
}
