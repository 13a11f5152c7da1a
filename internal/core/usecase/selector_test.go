package usecase

import (
	"testing"

	"docranker/internal/core/domain"
)

func TestRankAndSelectOrdersAndTruncates(t *testing.T) {
	scored := []domain.ScoredChunk{
		{ChunkID: "low", SemanticScore: 0.8, FusedScore: 0.3},
		{ChunkID: "high", SemanticScore: 0.9, FusedScore: 0.9},
		{ChunkID: "mid", SemanticScore: 0.85, FusedScore: 0.6},
	}

	result := rankAndSelect(scored, 0.7, 2)
	if result.ThresholdFallback {
		t.Fatalf("no fallback expected")
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(result.Chunks))
	}
	if result.Chunks[0].ChunkID != "high" || result.Chunks[1].ChunkID != "mid" {
		t.Fatalf("unexpected order: %s, %s", result.Chunks[0].ChunkID, result.Chunks[1].ChunkID)
	}
}

func TestRankAndSelectDeterministicTieBreak(t *testing.T) {
	scored := []domain.ScoredChunk{
		{ChunkID: "b", SequenceIndex: 2, SemanticScore: 0.9, FusedScore: 0.5},
		{ChunkID: "c", SequenceIndex: 1, SemanticScore: 0.9, FusedScore: 0.5},
		{ChunkID: "a", SequenceIndex: 1, SemanticScore: 0.9, FusedScore: 0.5},
	}

	for range 10 {
		result := rankAndSelect(scored, 0.7, 5)
		got := []string{result.Chunks[0].ChunkID, result.Chunks[1].ChunkID, result.Chunks[2].ChunkID}
		if got[0] != "a" || got[1] != "c" || got[2] != "b" {
			t.Fatalf("tie break must order by sequence then id, got %v", got)
		}
	}
}

func TestRankAndSelectThresholdFallbackKeepsSingleBest(t *testing.T) {
	scored := []domain.ScoredChunk{
		{ChunkID: "a", SemanticScore: 0.4, FusedScore: 0.4},
		{ChunkID: "b", SemanticScore: 0.6, FusedScore: 0.65},
	}

	result := rankAndSelect(scored, 0.7, 5)
	if !result.ThresholdFallback {
		t.Fatalf("fallback flag expected when nothing clears the threshold")
	}
	if len(result.Chunks) != 1 || result.Chunks[0].ChunkID != "b" {
		t.Fatalf("fallback must keep exactly the best candidate, got %+v", result.Chunks)
	}
}

func TestRankAndSelectEmptyInput(t *testing.T) {
	result := rankAndSelect(nil, 0.7, 5)
	if len(result.Chunks) != 0 || result.ThresholdFallback {
		t.Fatalf("empty input must yield an empty, unflagged result: %+v", result)
	}
	if result.RunnerUpScore != -1 {
		t.Fatalf("empty input must carry no runner-up, got %v", result.RunnerUpScore)
	}
}

func TestRankAndSelectReportsPreFilterRunnerUp(t *testing.T) {
	scored := []domain.ScoredChunk{
		{ChunkID: "a", SemanticScore: 0.9, FusedScore: 0.9},
		{ChunkID: "b", SemanticScore: 0.1, FusedScore: 0.85},
		{ChunkID: "c", SemanticScore: 0.8, FusedScore: 0.2},
	}

	// "b" is cut by the threshold but still anchors the runner-up score.
	result := rankAndSelect(scored, 0.7, 5)
	if len(result.Chunks) != 2 {
		t.Fatalf("expected 2 surviving chunks, got %d", len(result.Chunks))
	}
	if result.RunnerUpScore != 0.85 {
		t.Fatalf("runner-up must come from the pre-filter ranking, got %v", result.RunnerUpScore)
	}

	lone := rankAndSelect(scored[:1], 0.7, 5)
	if lone.RunnerUpScore != -1 {
		t.Fatalf("single candidate must carry no runner-up, got %v", lone.RunnerUpScore)
	}
}

func TestRankAndSelectDoesNotMutateInput(t *testing.T) {
	scored := []domain.ScoredChunk{
		{ChunkID: "a", SemanticScore: 0.9, FusedScore: 0.1},
		{ChunkID: "b", SemanticScore: 0.9, FusedScore: 0.9},
	}
	_ = rankAndSelect(scored, 0.7, 5)
	if scored[0].ChunkID != "a" || scored[1].ChunkID != "b" {
		t.Fatalf("input slice was reordered: %s, %s", scored[0].ChunkID, scored[1].ChunkID)
	}
}
