package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docranker/internal/core/domain"
	"docranker/internal/core/ports"
)

// IngestUseCase applies chunk and document mutations to the store, both
// indexes and the durable repository.
//
// All writes are serialized by a single mutex so index updates cannot
// interleave; queries never take this lock and keep serving throughout.
// Deletions go through the journal: the chunk leaves the store first, the
// journal covers the window until the indexes catch up, so a concurrent
// reader sees an in-flight deletion rather than a desynchronization.
type IngestUseCase struct {
	mu      sync.Mutex
	store   ports.ChunkStore
	lexical ports.LexicalIndex
	vector  ports.VectorIndex
	repo    ports.ChunkRepository
	journal *DeletionJournal
}

func NewIngestUseCase(
	store ports.ChunkStore,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	repo ports.ChunkRepository,
	journal *DeletionJournal,
) *IngestUseCase {
	if journal == nil {
		journal = NewDeletionJournal()
	}
	return &IngestUseCase{
		store:   store,
		lexical: lexical,
		vector:  vector,
		repo:    repo,
		journal: journal,
	}
}

// InsertChunk stores the chunk and indexes it. The store insert is the
// visibility point for duplicates and dimension checks; on a durable-save
// failure the in-memory state is rolled back so memory and the repository
// never drift apart.
func (uc *IngestUseCase) InsertChunk(ctx context.Context, chunk domain.Chunk) error {
	chunk.Normalize()
	if err := validateChunk(chunk); err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.store.Insert(chunk); err != nil {
		return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
	}
	uc.lexical.Insert(chunk.ID, chunk.Text)
	if err := uc.vector.Insert(chunk.ID, chunk.Embedding); err != nil {
		uc.lexical.Remove(chunk.ID)
		_ = uc.store.Remove(chunk.ID)
		return fmt.Errorf("index chunk %s: %w", chunk.ID, err)
	}

	if uc.repo != nil {
		if err := uc.repo.Save(ctx, chunk); err != nil {
			uc.vector.Remove(chunk.ID)
			uc.lexical.Remove(chunk.ID)
			_ = uc.store.Remove(chunk.ID)
			return fmt.Errorf("persist chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

// RemoveChunk deletes the chunk from the store, both indexes and the
// repository. A failed durable delete restores the in-memory state, so the
// repository replay after a restart and the live indexes never disagree.
func (uc *IngestUseCase) RemoveChunk(ctx context.Context, chunkID string) error {
	if chunkID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "remove chunk", errors.New("empty chunk id"))
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	chunk, err := uc.store.Get(chunkID)
	if err != nil {
		return fmt.Errorf("remove chunk %s: %w", chunkID, err)
	}

	uc.journal.Mark(chunkID)
	if err := uc.store.Remove(chunkID); err != nil {
		uc.journal.Clear(chunkID)
		return fmt.Errorf("remove chunk %s: %w", chunkID, err)
	}
	uc.lexical.Remove(chunkID)
	uc.vector.Remove(chunkID)

	if uc.repo != nil {
		if err := uc.repo.Delete(ctx, chunkID); err != nil {
			uc.reinsert(chunk)
			uc.journal.Clear(chunkID)
			return fmt.Errorf("delete persisted chunk %s: %w", chunkID, err)
		}
	}
	uc.journal.Clear(chunkID)
	return nil
}

// RemoveDocument removes every chunk of the document. The store removal is
// atomic with respect to any single reader: a query view either contains all
// of the document's chunks or none of them.
func (uc *IngestUseCase) RemoveDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "remove document", errors.New("empty document id"))
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	snapshot := make([]domain.Chunk, 0)
	for chunk := range uc.store.ByDocument(documentID) {
		snapshot = append(snapshot, chunk)
	}
	ids := uc.store.DocumentChunkIDs(documentID)
	uc.journal.Mark(ids...)

	removed, err := uc.store.RemoveDocument(documentID)
	if err != nil {
		uc.journal.Clear(ids...)
		// Queue redelivery makes document removals arrive more than once.
		if !domain.IsKind(err, domain.ErrNotFound) {
			return fmt.Errorf("remove document %s: %w", documentID, err)
		}
	}

	for _, id := range removed {
		uc.lexical.Remove(id)
		uc.vector.Remove(id)
	}

	if uc.repo != nil {
		if err := uc.repo.DeleteByDocument(ctx, documentID); err != nil {
			for _, chunk := range snapshot {
				uc.reinsert(chunk)
			}
			uc.journal.Clear(ids...)
			return fmt.Errorf("delete persisted document %s: %w", documentID, err)
		}
	}
	uc.journal.Clear(ids...)
	uc.journal.Clear(removed...)
	return nil
}

// reinsert puts a removed chunk back into the store and both indexes after a
// failed durable delete. The chunk was just resident, so the inserts cannot
// meaningfully fail.
func (uc *IngestUseCase) reinsert(chunk domain.Chunk) {
	_ = uc.store.Insert(chunk)
	uc.lexical.Insert(chunk.ID, chunk.Text)
	_ = uc.vector.Insert(chunk.ID, chunk.Embedding)
}

func validateChunk(chunk domain.Chunk) error {
	switch {
	case chunk.ID == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate chunk", errors.New("empty chunk id"))
	case chunk.DocumentID == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate chunk", errors.New("empty document id"))
	case chunk.SequenceIndex < 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate chunk", errors.New("negative sequence index"))
	case !chunk.ContentType.Valid():
		return domain.WrapError(domain.ErrInvalidInput, "validate chunk", fmt.Errorf("unknown content type %q", chunk.ContentType))
	case len(chunk.Embedding) == 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate chunk", errors.New("empty embedding"))
	}
	return nil
}
