package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"docranker/internal/core/domain"
	"docranker/internal/core/ports"
)

// RetrieveUseCase answers a question with ranked, citable evidence. Both
// indexes are searched concurrently, the hits are hydrated from the store,
// fused, thresholded and deduplicated into citations.
type RetrieveUseCase struct {
	store    ports.ChunkStore
	lexical  ports.LexicalIndex
	vector   ports.VectorIndex
	embedder ports.Embedder
	journal  *DeletionJournal
	cfg      Config
}

func NewRetrieveUseCase(
	store ports.ChunkStore,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	embedder ports.Embedder,
	journal *DeletionJournal,
	cfg Config,
) *RetrieveUseCase {
	if journal == nil {
		journal = NewDeletionJournal()
	}
	return &RetrieveUseCase{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		journal:  journal,
		cfg:      cfg.normalize(),
	}
}

func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	question string,
	filter domain.SearchFilter,
) (*domain.RetrievalResult, error) {
	started := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty question"))
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.QueryTimeout)
	defer cancel()

	embedding, lexicalOnly, err := uc.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	semHits, lexHits, err := uc.searchIndexes(ctx, question, embedding, lexicalOnly)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.hydrate(semHits, lexHits, filter)
	if err != nil {
		return nil, err
	}

	scored := fuseScores(question, candidates, uc.cfg)

	// Without a semantic signal the threshold would reject everything, so it
	// is suspended for lexical-only queries.
	threshold := uc.cfg.SimilarityThreshold
	if lexicalOnly {
		threshold = 0
	}
	ranked := rankAndSelect(scored, threshold, uc.cfg.RerankK)

	kept, citations := assembleCitations(ranked.Chunks, uc.cfg.CitationOverlapWindow)
	confidence := estimateConfidence(kept, ranked.RunnerUpScore, uc.cfg.RerankK)

	elapsed := time.Since(started)
	return &domain.RetrievalResult{
		Query:             question,
		Chunks:            kept,
		Citations:         citations,
		Confidence:        confidence,
		ThresholdFallback: ranked.ThresholdFallback,
		Stats: domain.RetrievalStats{
			SemanticCandidates: len(semHits),
			LexicalCandidates:  len(lexHits),
			FusedCandidates:    len(candidates),
			Selected:           len(kept),
			LexicalOnly:        lexicalOnly,
			Duration:           elapsed,
			DurationMS:         float64(elapsed.Microseconds()) / 1000.0,
		},
	}, nil
}

// embedQuestion returns the query embedding, or signals lexical-only mode
// when the embedder is down and the fallback is enabled.
func (uc *RetrieveUseCase) embedQuestion(ctx context.Context, question string) ([]float32, bool, error) {
	embedding, err := uc.embedder.EmbedQuery(ctx, question)
	if err == nil {
		return embedding, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, domain.WrapError(domain.ErrRetrievalTimeout, "retrieve.embed", ctx.Err())
	}
	if uc.cfg.AllowLexicalFallback {
		return nil, true, nil
	}
	if domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		return nil, false, err
	}
	return nil, false, domain.WrapError(domain.ErrEmbeddingUnavailable, "retrieve.embed", err)
}

func (uc *RetrieveUseCase) searchIndexes(
	ctx context.Context,
	question string,
	embedding []float32,
	lexicalOnly bool,
) ([]domain.IndexHit, []domain.IndexHit, error) {
	// On timeout the index goroutines may still be running; they finish into
	// this heap-allocated slot, which nothing reads after an early return.
	res := &struct {
		sem    []domain.IndexHit
		semErr error
		lex    []domain.IndexHit
	}{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		if !lexicalOnly {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res.sem, res.semErr = uc.vector.Search(embedding, uc.cfg.RetrievalK)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.lex = uc.lexical.Search(question, uc.cfg.RetrievalK)
		}()
		wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, nil, domain.WrapError(domain.ErrRetrievalTimeout, "retrieve.search", ctx.Err())
	}
	if res.semErr != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "retrieve.search", res.semErr)
	}
	return res.sem, res.lex, nil
}

// hydrate resolves index hits into store chunks and merges the per-index
// scores. A hit whose chunk is gone from the store is skipped when its
// deletion is journaled as in flight; otherwise the indexes and the store
// disagree about live data and the query fails rather than rank on it.
func (uc *RetrieveUseCase) hydrate(semHits, lexHits []domain.IndexHit, filter domain.SearchFilter) ([]candidate, error) {
	merged := make(map[string]*candidate, len(semHits)+len(lexHits))
	order := make([]string, 0, len(semHits)+len(lexHits))

	add := func(hit domain.IndexHit, semantic bool) error {
		c, ok := merged[hit.ChunkID]
		if !ok {
			chunk, err := uc.store.Get(hit.ChunkID)
			if err != nil {
				if domain.IsKind(err, domain.ErrNotFound) {
					if uc.journal.IsPending(hit.ChunkID) {
						return nil
					}
					return domain.WrapError(domain.ErrIndexDesync, "retrieve.hydrate", err)
				}
				return err
			}
			if !filter.AllowsContentType(chunk.ContentType) || !filter.AllowsDocument(chunk.DocumentID) {
				return nil
			}
			c = &candidate{chunk: chunk}
			merged[hit.ChunkID] = c
			order = append(order, hit.ChunkID)
		}
		if semantic {
			c.semantic = hit.Score
		} else {
			c.lexicalRaw = hit.Score
		}
		return nil
	}

	for _, hit := range semHits {
		if err := add(hit, true); err != nil {
			return nil, err
		}
	}
	for _, hit := range lexHits {
		if err := add(hit, false); err != nil {
			return nil, err
		}
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	return out, nil
}
