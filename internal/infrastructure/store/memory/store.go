package memory

import (
	"fmt"
	"iter"
	"sort"
	"sync"

	"docranker/internal/core/domain"
)

// Store is the in-process chunk store. A single RWMutex guards both maps, so
// any reader observes either the pre- or post-state of a whole insert or a
// whole document removal, never something in between.
type Store struct {
	dim int

	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	byDoc  map[string][]string
}

func New(embeddingDim int) *Store {
	return &Store{
		dim:    embeddingDim,
		chunks: make(map[string]domain.Chunk),
		byDoc:  make(map[string][]string),
	}
}

func (s *Store) Insert(chunk domain.Chunk) error {
	if chunk.ID == "" || chunk.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "store insert", fmt.Errorf("chunk id and document id are required"))
	}
	if chunk.SequenceIndex < 0 {
		return domain.WrapError(domain.ErrInvalidInput, "store insert", fmt.Errorf("negative sequence index %d", chunk.SequenceIndex))
	}
	if len(chunk.Embedding) != s.dim {
		return domain.WrapError(domain.ErrDimensionMismatch, "store insert",
			fmt.Errorf("chunk %s: embedding length %d, index dimension %d", chunk.ID, len(chunk.Embedding), s.dim))
	}
	chunk.Normalize()
	if !chunk.ContentType.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "store insert", fmt.Errorf("unknown content type %q", chunk.ContentType))
	}

	embedding := make([]float32, len(chunk.Embedding))
	copy(embedding, chunk.Embedding)
	chunk.Embedding = embedding

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chunks[chunk.ID]; exists {
		return domain.WrapError(domain.ErrDuplicateChunk, "store insert", fmt.Errorf("chunk %s", chunk.ID))
	}

	s.chunks[chunk.ID] = chunk

	ids := s.byDoc[chunk.DocumentID]
	pos := sort.Search(len(ids), func(i int) bool {
		return s.chunks[ids[i]].SequenceIndex > chunk.SequenceIndex
	})
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = chunk.ID
	s.byDoc[chunk.DocumentID] = ids

	return nil
}

func (s *Store) Remove(chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, exists := s.chunks[chunkID]
	if !exists {
		return domain.WrapError(domain.ErrNotFound, "store remove", fmt.Errorf("chunk %s", chunkID))
	}
	delete(s.chunks, chunkID)
	s.dropFromDocument(chunk.DocumentID, chunkID)
	return nil
}

func (s *Store) RemoveDocument(documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byDoc[documentID]
	if len(ids) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "store remove document", fmt.Errorf("document %s", documentID))
	}

	removed := make([]string, len(ids))
	copy(removed, ids)
	for _, id := range ids {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)
	return removed, nil
}

func (s *Store) Get(chunkID string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, exists := s.chunks[chunkID]
	if !exists {
		return domain.Chunk{}, domain.WrapError(domain.ErrNotFound, "store get", fmt.Errorf("chunk %s", chunkID))
	}
	return chunk, nil
}

func (s *Store) DocumentChunkIDs(documentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDoc[documentID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// ByDocument yields the document's current chunks ordered by sequence index.
// Each restart of the sequence takes a fresh snapshot of the id order; chunks
// removed between snapshot and yield are skipped.
func (s *Store) ByDocument(documentID string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		for _, id := range s.DocumentChunkIDs(documentID) {
			chunk, err := s.Get(id)
			if err != nil {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// caller must hold s.mu
func (s *Store) dropFromDocument(documentID, chunkID string) {
	ids := s.byDoc[documentID]
	for i, id := range ids {
		if id == chunkID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byDoc, documentID)
		return
	}
	s.byDoc[documentID] = ids
}
