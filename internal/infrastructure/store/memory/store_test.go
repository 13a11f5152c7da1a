package memory

import (
	"testing"

	"docranker/internal/core/domain"
)

func testChunk(id, docID string, seq int) domain.Chunk {
	return domain.Chunk{
		ID:            id,
		DocumentID:    docID,
		ContentType:   domain.ContentText,
		SequenceIndex: seq,
		Text:          "chunk text",
		Embedding:     []float32{0.1, 0.2, 0.3},
	}
}

func TestStoreInsertRejectsDimensionMismatch(t *testing.T) {
	s := New(3)
	chunk := testChunk("c-1", "doc-1", 0)
	chunk.Embedding = []float32{0.1, 0.2}

	err := s.Insert(chunk)
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after rejected insert, got %d", s.Len())
	}
}

func TestStoreInsertRejectsDuplicate(t *testing.T) {
	s := New(3)
	if err := s.Insert(testChunk("c-1", "doc-1", 0)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	err := s.Insert(testChunk("c-1", "doc-1", 1))
	if !domain.IsKind(err, domain.ErrDuplicateChunk) {
		t.Fatalf("expected ErrDuplicateChunk, got %v", err)
	}
}

func TestStoreRemoveNotFound(t *testing.T) {
	s := New(3)
	if err := s.Remove("missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreGetReturnsNormalizedChunk(t *testing.T) {
	s := New(3)
	chunk := testChunk("c-1", "doc-1", 0)
	chunk.Text = "пример text"
	chunk.CharLength = 0
	if err := s.Insert(chunk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Get("c-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CharLength != 11 {
		t.Fatalf("expected rune-counted char length 11, got %d", got.CharLength)
	}
}

func TestStoreByDocumentOrderedBySequenceIndex(t *testing.T) {
	s := New(3)
	for _, seq := range []int{4, 0, 2} {
		if err := s.Insert(testChunk(chunkID(seq), "doc-1", seq)); err != nil {
			t.Fatalf("Insert(seq=%d) error = %v", seq, err)
		}
	}

	var got []int
	for chunk := range s.ByDocument("doc-1") {
		got = append(got, chunk.SequenceIndex)
	}
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestStoreByDocumentIsRestartable(t *testing.T) {
	s := New(3)
	if err := s.Insert(testChunk("c-0", "doc-1", 0)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	seq := s.ByDocument("doc-1")
	for pass := 0; pass < 2; pass++ {
		count := 0
		for range seq {
			count++
		}
		if count != 1 {
			t.Fatalf("pass %d: expected 1 chunk, got %d", pass, count)
		}
	}
}

func TestStoreRemoveDocumentAtomicallyDropsAllChunks(t *testing.T) {
	s := New(3)
	for seq := 0; seq < 3; seq++ {
		if err := s.Insert(testChunk(chunkID(seq), "doc-1", seq)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := s.Insert(testChunk("other", "doc-2", 0)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	removed, err := s.RemoveDocument("doc-1")
	if err != nil {
		t.Fatalf("RemoveDocument() error = %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed ids, got %d", len(removed))
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 surviving chunk, got %d", s.Len())
	}
	if _, err := s.Get("other"); err != nil {
		t.Fatalf("unrelated chunk must survive, got %v", err)
	}
	if _, err := s.RemoveDocument("doc-1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func chunkID(seq int) string {
	return "c-" + string(rune('a'+seq))
}
