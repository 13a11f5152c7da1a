package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docranker/internal/core/domain"
)

// QueryLogRepository appends served queries for offline relevance evaluation.
// It sits outside the query's critical path; a failed append is the caller's
// to log and ignore.
type QueryLogRepository struct {
	db *sql.DB
}

func NewQueryLogRepository(db *sql.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Log(ctx context.Context, entry domain.QueryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	chunkIDs, err := json.Marshal(entry.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshal chunk ids: %w", err)
	}
	scores, err := json.Marshal(entry.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_log (
	id, query_text, chunk_ids, scores, confidence, threshold_fallback, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		entry.ID, entry.QueryText, chunkIDs, scores, entry.Confidence,
		entry.ThresholdFallback, float64(entry.Duration.Microseconds())/1000.0, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query log entry: %w", err)
	}
	return nil
}
