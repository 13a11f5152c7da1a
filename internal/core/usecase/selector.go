package usecase

import (
	"sort"

	"docranker/internal/core/domain"
)

// rankAndSelect orders the fused candidates, applies the semantic similarity
// threshold and truncates to rerankK.
//
// When every candidate falls below the threshold the single best-scoring one
// is kept anyway so some evidence always surfaces; the fallback is flagged in
// the result rather than hidden.
func rankAndSelect(scored []domain.ScoredChunk, threshold float64, rerankK int) domain.RankedResult {
	if len(scored) == 0 {
		return domain.RankedResult{RunnerUpScore: -1}
	}

	ranked := make([]domain.ScoredChunk, len(scored))
	copy(ranked, scored)
	sortRanked(ranked)

	runnerUp := -1.0
	if len(ranked) > 1 {
		runnerUp = ranked[1].FusedScore
	}

	kept := ranked[:0:len(ranked)]
	for _, c := range ranked {
		if c.SemanticScore >= threshold {
			kept = append(kept, c)
		}
	}

	fallback := false
	if len(kept) == 0 {
		kept = ranked[:1]
		fallback = true
	}
	if rerankK > 0 && len(kept) > rerankK {
		kept = kept[:rerankK]
	}

	out := make([]domain.ScoredChunk, len(kept))
	copy(out, kept)
	return domain.RankedResult{Chunks: out, ThresholdFallback: fallback, RunnerUpScore: runnerUp}
}

// sortRanked orders by fused score descending; equal scores break ties by
// ascending sequence index, then ascending chunk id, so repeated identical
// queries produce identical orderings.
func sortRanked(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].FusedScore != chunks[j].FusedScore {
			return chunks[i].FusedScore > chunks[j].FusedScore
		}
		if chunks[i].SequenceIndex != chunks[j].SequenceIndex {
			return chunks[i].SequenceIndex < chunks[j].SequenceIndex
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
}
