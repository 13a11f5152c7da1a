package usecase

import (
	"testing"

	"docranker/internal/core/domain"
)

func TestEstimateConfidenceEmpty(t *testing.T) {
	if got := estimateConfidence(nil, -1, 5); got != 0 {
		t.Fatalf("empty result must score 0, got %v", got)
	}
}

func TestEstimateConfidenceBounds(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{FusedScore: 5.0},
		{FusedScore: 0.0},
	}
	got := estimateConfidence(chunks, 0.0, 2)
	if got < 0 || got > 1 {
		t.Fatalf("confidence must stay within [0,1], got %v", got)
	}
}

func TestEstimateConfidenceMonotonicInTopScore(t *testing.T) {
	lowTop := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.6}, {FusedScore: 0.5}}, 0.5, 5)
	highTop := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.8}, {FusedScore: 0.5}}, 0.5, 5)
	if highTop <= lowTop {
		t.Fatalf("raising the top score must raise confidence: %v <= %v", highTop, lowTop)
	}
}

func TestEstimateConfidenceDoesNotDropWhenSecondScoreDrops(t *testing.T) {
	narrow := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}, {FusedScore: 0.85}}, 0.85, 5)
	wide := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}, {FusedScore: 0.5}}, 0.5, 5)
	if wide < narrow {
		t.Fatalf("a wider gap below a fixed top must not lower confidence: %v < %v", wide, narrow)
	}
}

func TestEstimateConfidenceDoesNotGrowWhenResultSetShrinks(t *testing.T) {
	pair := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}, {FusedScore: 0.2}}, 0.2, 5)
	single := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}}, 0.2, 5)
	if single > pair {
		t.Fatalf("dropping a result must not raise confidence: %v > %v", single, pair)
	}
}

func TestEstimateConfidenceDoesNotGrowWhenMiddleResultIsFiltered(t *testing.T) {
	// Runner-up 0.85 stays anchored whether or not its chunk survives
	// filtering: the smaller set loses fill and nothing else.
	full := []domain.ScoredChunk{{FusedScore: 0.9}, {FusedScore: 0.85}, {FusedScore: 0.2}}
	filtered := []domain.ScoredChunk{{FusedScore: 0.9}, {FusedScore: 0.2}}

	before := estimateConfidence(full, 0.85, 5)
	after := estimateConfidence(filtered, 0.85, 5)
	if after > before {
		t.Fatalf("filtering a middle result must not raise confidence: %v > %v", after, before)
	}
}

func TestEstimateConfidenceSingleCandidateHasNoGapEvidence(t *testing.T) {
	withGap := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}}, 0.2, 5)
	lone := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.9}}, -1, 5)
	if lone >= withGap {
		t.Fatalf("a lone pre-filter candidate must not claim separation evidence: %v >= %v", lone, withGap)
	}
}

func TestEstimateConfidenceGrowsWithFill(t *testing.T) {
	two := estimateConfidence([]domain.ScoredChunk{{FusedScore: 0.8}, {FusedScore: 0.8}}, 0.8, 5)
	four := estimateConfidence([]domain.ScoredChunk{
		{FusedScore: 0.8}, {FusedScore: 0.8}, {FusedScore: 0.8}, {FusedScore: 0.8},
	}, 0.8, 5)
	if four <= two {
		t.Fatalf("filling more result slots at equal scores must raise confidence: %v <= %v", four, two)
	}
}
