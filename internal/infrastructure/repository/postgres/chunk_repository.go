package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docranker/internal/core/domain"
)

// ChunkRepository is the durable record of chunk state. The in-process
// indexes are rebuilt from it at startup, so it never serves the query path
// directly.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunk_records (
	chunk_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	content_type TEXT NOT NULL,
	page_number INTEGER,
	sequence_index INTEGER NOT NULL,
	chunk_text TEXT NOT NULL,
	embedding JSONB NOT NULL,
	char_length INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunk_records_document ON chunk_records(document_id, sequence_index);

CREATE TABLE IF NOT EXISTS query_log (
	id TEXT PRIMARY KEY,
	query_text TEXT NOT NULL,
	chunk_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	scores JSONB NOT NULL DEFAULT '[]'::jsonb,
	confidence DOUBLE PRECISION NOT NULL,
	threshold_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_log_created_at ON query_log(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Save(ctx context.Context, chunk domain.Chunk) error {
	embeddingJSON, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chunk_records (
	chunk_id, document_id, content_type, page_number, sequence_index, chunk_text, embedding, char_length, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (chunk_id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	content_type = EXCLUDED.content_type,
	page_number = EXCLUDED.page_number,
	sequence_index = EXCLUDED.sequence_index,
	chunk_text = EXCLUDED.chunk_text,
	embedding = EXCLUDED.embedding,
	char_length = EXCLUDED.char_length
`,
		chunk.ID, chunk.DocumentID, string(chunk.ContentType), chunk.PageNumber,
		chunk.SequenceIndex, chunk.Text, embeddingJSON, chunk.CharLength, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert chunk record: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Delete(ctx context.Context, chunkID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chunk_records WHERE chunk_id = $1`, chunkID)
	if err != nil {
		return fmt.Errorf("delete chunk record: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chunk_records WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document chunk records: %w", err)
	}
	return nil
}

// ListAll streams every stored chunk ordered by document and sequence, the
// order replay inserts them in.
func (r *ChunkRepository) ListAll(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_id, document_id, content_type, page_number, sequence_index, chunk_text, embedding, char_length
FROM chunk_records
ORDER BY document_id, sequence_index, chunk_id
`)
	if err != nil {
		return nil, fmt.Errorf("query chunk records: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var (
			chunk        domain.Chunk
			contentType  string
			pageNumber   sql.NullInt64
			embeddingRaw []byte
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &contentType, &pageNumber,
			&chunk.SequenceIndex, &chunk.Text, &embeddingRaw, &chunk.CharLength,
		); err != nil {
			return nil, fmt.Errorf("scan chunk record: %w", err)
		}
		if err := json.Unmarshal(embeddingRaw, &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", chunk.ID, err)
		}
		chunk.ContentType = domain.ContentType(contentType)
		if pageNumber.Valid {
			page := int(pageNumber.Int64)
			chunk.PageNumber = &page
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk records: %w", err)
	}
	return out, nil
}
