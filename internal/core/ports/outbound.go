package ports

import (
	"context"
	"iter"

	"docranker/internal/core/domain"
)

// ChunkStore is the source of truth for ranking inputs. It exclusively owns
// chunk lifetime; the indexes hold only derived statistics keyed by chunk id.
type ChunkStore interface {
	// Insert fails with domain.ErrDimensionMismatch when the embedding length
	// disagrees with the configured dimension, and with
	// domain.ErrDuplicateChunk when the id already exists.
	Insert(chunk domain.Chunk) error
	// Remove fails with domain.ErrNotFound; on success the chunk is
	// unreachable from any subsequent read.
	Remove(chunkID string) error
	// RemoveDocument atomically removes every chunk of the document with
	// respect to any single reader, and returns the removed chunk ids.
	RemoveDocument(documentID string) ([]string, error)
	Get(chunkID string) (domain.Chunk, error)
	// DocumentChunkIDs returns the document's chunk ids ordered by sequence
	// index.
	DocumentChunkIDs(documentID string) []string
	// ByDocument is a lazy, restartable sequence ordered by sequence index.
	ByDocument(documentID string) iter.Seq[domain.Chunk]
	Len() int
}

// LexicalIndex is the sparse BM25-family scorer over chunk text. Updates are
// atomic per chunk: a search never observes a partially applied posting set.
type LexicalIndex interface {
	Insert(chunkID, text string)
	Remove(chunkID string)
	// Search returns up to limit chunks by descending raw BM25 score, ties by
	// chunk id ascending. Zero term overlap yields an empty result, not an
	// error.
	Search(query string, limit int) []domain.IndexHit
	Len() int
}

// VectorIndex is the nearest-neighbour capability interface. Implementations
// must document whether search is exact or carries a stated recall bound, and
// hold that contract constant for a deployment.
type VectorIndex interface {
	Insert(chunkID string, embedding []float32) error
	Remove(chunkID string)
	// Search returns up to limit chunks by descending cosine similarity, and
	// fails with domain.ErrDimensionMismatch on a malformed query embedding.
	Search(embedding []float32, limit int) ([]domain.IndexHit, error)
	Len() int
}

// Embedder computes the query-side embedding. Failures surface as
// domain.ErrEmbeddingUnavailable.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkRepository is the durable record of chunk state, replayed at startup
// to rebuild the in-process indexes.
type ChunkRepository interface {
	Save(ctx context.Context, chunk domain.Chunk) error
	Delete(ctx context.Context, chunkID string) error
	DeleteByDocument(ctx context.Context, documentID string) error
	ListAll(ctx context.Context) ([]domain.Chunk, error)
}

// QueryLogRepository records served queries for offline evaluation.
type QueryLogRepository interface {
	Log(ctx context.Context, entry domain.QueryLogEntry) error
}

// MessageQueue transports ingestion events between the upstream pipeline and
// the engine's write surface.
type MessageQueue interface {
	PublishChunkUpsert(ctx context.Context, chunk domain.Chunk) error
	PublishDocumentRemoval(ctx context.Context, documentID string) error
	Subscribe(ctx context.Context, onChunk func(context.Context, domain.Chunk) error, onDocumentRemoved func(context.Context, string) error) error
	Close()
}
