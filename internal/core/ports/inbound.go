package ports

import (
	"context"

	"docranker/internal/core/domain"
)

// Retriever is the inbound contract for answering a query with ranked,
// citable evidence.
type Retriever interface {
	Retrieve(ctx context.Context, question string, filter domain.SearchFilter) (*domain.RetrievalResult, error)
}

// ChunkIngestor is the engine's write surface, fed by the external document
// ingestion pipeline.
type ChunkIngestor interface {
	InsertChunk(ctx context.Context, chunk domain.Chunk) error
	RemoveChunk(ctx context.Context, chunkID string) error
	RemoveDocument(ctx context.Context, documentID string) error
}
