package lexical

import (
	"testing"
)

func TestTokenizeSplitsOnNonAlphanumeric(t *testing.T) {
	got := Tokenize("Revenue grew 10% (Q3, 2024)!")
	want := []string{"revenue", "grew", "10", "q3", "2024"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSearchRanksMatchingChunkHigher(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-rev", "revenue grew ten percent this quarter")
	idx.Insert("c-cat", "the cat sat on the mat")
	idx.Insert("c-mix", "quarterly revenue figures and other details")

	hits := idx.Search("revenue growth quarter", 10)
	if len(hits) == 0 {
		t.Fatalf("expected hits")
	}
	if hits[0].ChunkID != "c-rev" {
		t.Fatalf("expected c-rev first, got %s (score %f)", hits[0].ChunkID, hits[0].Score)
	}
	for _, h := range hits {
		if h.ChunkID == "c-cat" {
			t.Fatalf("c-cat has zero term overlap and must not match")
		}
	}
}

func TestSearchZeroOverlapReturnsEmpty(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-1", "alpha beta gamma")

	if hits := idx.Search("delta epsilon", 5); len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
	if hits := idx.Search("", 5); len(hits) != 0 {
		t.Fatalf("expected no hits for empty query, got %d", len(hits))
	}
}

func TestSearchTieBreaksByChunkIDAscending(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-b", "shared term here")
	idx.Insert("c-a", "shared term here")

	hits := idx.Search("shared", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "c-a" || hits[1].ChunkID != "c-b" {
		t.Fatalf("expected [c-a c-b], got [%s %s]", hits[0].ChunkID, hits[1].ChunkID)
	}
}

func TestRemoveKeepsAverageLengthConsistent(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-short", "alpha")
	idx.Insert("c-long", "alpha beta gamma delta epsilon zeta eta theta")

	before := idx.Search("alpha", 10)
	if len(before) != 2 {
		t.Fatalf("expected 2 hits before removal, got %d", len(before))
	}

	idx.Remove("c-long")
	if idx.Len() != 1 {
		t.Fatalf("expected 1 indexed chunk, got %d", idx.Len())
	}

	after := idx.Search("alpha", 10)
	if len(after) != 1 || after[0].ChunkID != "c-short" {
		t.Fatalf("expected only c-short after removal, got %v", after)
	}

	// with a single one-token chunk, avgLen == chunkLen so the normalizer is 1
	wantIDF := 0.0
	if after[0].Score <= wantIDF {
		t.Fatalf("expected positive score, got %f", after[0].Score)
	}

	idx.Remove("c-short")
	if hits := idx.Search("alpha", 10); len(hits) != 0 {
		t.Fatalf("expected empty index to return no hits, got %d", len(hits))
	}
}

func TestInsertIsIdempotentPerChunk(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-1", "alpha beta")
	idx.Insert("c-1", "gamma delta")

	if hits := idx.Search("alpha", 5); len(hits) != 0 {
		t.Fatalf("stale postings must be replaced, got %v", hits)
	}
	hits := idx.Search("gamma", 5)
	if len(hits) != 1 || hits[0].ChunkID != "c-1" {
		t.Fatalf("expected re-inserted chunk to match new text, got %v", hits)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 chunk, got %d", idx.Len())
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	idx := New(DefaultK1, DefaultB)
	idx.Insert("c-1", "term extra1")
	idx.Insert("c-2", "term extra2")
	idx.Insert("c-3", "term extra3")

	if hits := idx.Search("term", 2); len(hits) != 2 {
		t.Fatalf("expected limit=2 hits, got %d", len(hits))
	}
}
