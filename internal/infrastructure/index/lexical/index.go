package lexical

import (
	"math"
	"sort"
	"sync"

	"docranker/internal/core/domain"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Index is an inverted-index BM25 scorer. One RWMutex guards the posting
// lists, per-chunk lengths and the running total used for avgChunkLen, so a
// chunk's postings become visible (or disappear) atomically and a search is
// never served against a partially updated chunk.
type Index struct {
	k1 float64
	b  float64

	mu        sync.RWMutex
	postings  map[string]map[string]int // term -> chunk id -> term frequency
	chunkTerm map[string][]string       // chunk id -> distinct terms, for removal
	chunkLen  map[string]int            // chunk id -> token count
	totalLen  int
}

func New(k1, b float64) *Index {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	return &Index{
		k1:        k1,
		b:         b,
		postings:  make(map[string]map[string]int),
		chunkTerm: make(map[string][]string),
		chunkLen:  make(map[string]int),
	}
}

func (idx *Index) Insert(chunkID, text string) {
	tokens := Tokenize(text)

	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)

	for term, tf := range freq {
		posting := idx.postings[term]
		if posting == nil {
			posting = make(map[string]int)
			idx.postings[term] = posting
		}
		posting[chunkID] = tf
	}
	idx.chunkTerm[chunkID] = terms
	idx.chunkLen[chunkID] = len(tokens)
	idx.totalLen += len(tokens)
}

func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

// Search scores the query tokens with BM25:
//
//	score = Σ_term IDF(term) · tf·(k1+1) / (tf + k1·(1 - b + b·len/avgLen))
//
// Repeated query terms contribute once per occurrence. Results are ordered by
// descending raw score, ties by chunk id ascending; zero overlap yields an
// empty slice.
func (idx *Index) Search(query string, limit int) []domain.IndexHit {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.chunkLen)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)
	if avgLen <= 0 {
		avgLen = 1
	}

	scores := make(map[string]float64)
	for _, term := range tokens {
		posting := idx.postings[term]
		df := len(posting)
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for chunkID, tf := range posting {
			lenNorm := 1 - idx.b + idx.b*float64(idx.chunkLen[chunkID])/avgLen
			scores[chunkID] += idf * float64(tf) * (idx.k1 + 1) / (float64(tf) + idx.k1*lenNorm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	hits := make([]domain.IndexHit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, domain.IndexHit{ChunkID: chunkID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkLen)
}

// caller must hold idx.mu
func (idx *Index) removeLocked(chunkID string) {
	terms, exists := idx.chunkTerm[chunkID]
	if !exists {
		return
	}
	for _, term := range terms {
		posting := idx.postings[term]
		delete(posting, chunkID)
		if len(posting) == 0 {
			delete(idx.postings, term)
		}
	}
	idx.totalLen -= idx.chunkLen[chunkID]
	delete(idx.chunkTerm, chunkID)
	delete(idx.chunkLen, chunkID)
}
