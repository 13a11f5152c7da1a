package usecase

import "docranker/internal/core/domain"

// estimateConfidence maps the final result set onto a [0,1] answerability
// signal. The score grows with the strength of the best match, the separation
// from the runner-up, and how many of the requested result slots were filled.
//
// runnerUp is the second-best fused score of the full ranking before the
// threshold cut, or negative when there was none. Anchoring the gap there
// keeps the estimate from rising when filtering discards a middle result:
// a shrinking set can only lose fill, never gain separation.
func estimateConfidence(chunks []domain.ScoredChunk, runnerUp float64, rerankK int) float64 {
	if len(chunks) == 0 || rerankK <= 0 {
		return 0
	}

	top1 := clamp01(chunks[0].FusedScore)

	// A lone pre-filter candidate carries no separation evidence.
	gap := 0.0
	if runnerUp >= 0 {
		gap = clamp01(top1 - clamp01(runnerUp))
	}

	fill := float64(len(chunks)) / float64(rerankK)
	if fill > 1 {
		fill = 1
	}

	return clamp01(0.5*top1 + 0.3*gap + 0.2*fill)
}
