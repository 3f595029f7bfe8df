package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"advisor-engine/internal/common/database"
	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// ResultArchive persists every produced result keyed by (user_id, created_at)
// and optionally mirrors the document into Elasticsearch so the dashboard can
// search it. Indexing failures never fail the archive.
type ResultArchive struct {
	db      *sql.DB
	es      *database.ElasticsearchClient
	esIndex string
	logger  logger.Logger
	now     func() time.Time
}

func NewResultArchive(db *sql.DB, es *database.ElasticsearchClient, esIndex string, log logger.Logger) *ResultArchive {
	return &ResultArchive{
		db:      db,
		es:      es,
		esIndex: esIndex,
		logger:  log,
		now:     time.Now,
	}
}

// Archive stores one result. The Postgres row is the source of truth; the
// Elasticsearch copy is best effort.
func (a *ResultArchive) Archive(ctx context.Context, result *models.UnifiedResult) error {
	createdAt := a.now().UTC()
	doc, err := json.Marshal(result)
	if err != nil {
		return stderrors.NewResultArchiveFailedError(err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO unified_results (user_id, created_at, result)
		VALUES ($1, $2, $3)`,
		result.UserID, createdAt, doc)
	if err != nil {
		return stderrors.NewResultArchiveFailedError(err)
	}

	if a.es != nil && a.esIndex != "" {
		docID := fmt.Sprintf("%s-%d", result.UserID, createdAt.UnixMilli())
		if err := a.es.Index(ctx, a.esIndex, docID, bytes.NewReader(doc)); err != nil {
			a.logger.Warn("failed to index result in elasticsearch", map[string]interface{}{
				"userId": result.UserID,
				"error":  err,
			})
		}
	}
	return nil
}
