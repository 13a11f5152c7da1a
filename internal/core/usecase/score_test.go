package usecase

import (
	"math"
	"testing"

	"docranker/internal/core/domain"
)

func scoreConfig() Config {
	return DefaultConfig()
}

func TestFuseScoresNormalizesLexicalWithinCandidateSet(t *testing.T) {
	cfg := scoreConfig()
	candidates := []candidate{
		{chunk: domain.Chunk{ID: "a", CharLength: 500}, semantic: 0.5, lexicalRaw: 2.0},
		{chunk: domain.Chunk{ID: "b", CharLength: 500}, semantic: 0.5, lexicalRaw: 8.0},
		{chunk: domain.Chunk{ID: "c", CharLength: 500}, semantic: 0.5, lexicalRaw: 5.0},
	}

	scored := fuseScores("plain question", candidates, cfg)
	if len(scored) != 3 {
		t.Fatalf("expected 3 scored chunks, got %d", len(scored))
	}
	if scored[0].LexicalScore != 0 {
		t.Fatalf("min raw score should normalize to 0, got %v", scored[0].LexicalScore)
	}
	if scored[1].LexicalScore != 1 {
		t.Fatalf("max raw score should normalize to 1, got %v", scored[1].LexicalScore)
	}
	if scored[2].LexicalScore != 0.5 {
		t.Fatalf("mid raw score should normalize to 0.5, got %v", scored[2].LexicalScore)
	}
}

func TestFuseScoresEqualLexicalScoresNormalizeToOne(t *testing.T) {
	cfg := scoreConfig()
	candidates := []candidate{
		{chunk: domain.Chunk{ID: "a", CharLength: 500}, semantic: 0.4, lexicalRaw: 3.0},
		{chunk: domain.Chunk{ID: "b", CharLength: 500}, semantic: 0.4, lexicalRaw: 3.0},
	}

	for _, s := range fuseScores("plain question", candidates, cfg) {
		if s.LexicalScore != 1 {
			t.Fatalf("equal raw scores should normalize to 1, got %v for %s", s.LexicalScore, s.ChunkID)
		}
	}
}

func TestFuseScoresClampsSemanticScore(t *testing.T) {
	cfg := scoreConfig()
	candidates := []candidate{
		{chunk: domain.Chunk{ID: "a", CharLength: 500}, semantic: 1.4, lexicalRaw: 1.0},
		{chunk: domain.Chunk{ID: "b", CharLength: 500}, semantic: -0.2, lexicalRaw: 1.0},
	}

	scored := fuseScores("plain question", candidates, cfg)
	if scored[0].SemanticScore != 1 {
		t.Fatalf("expected semantic clamp to 1, got %v", scored[0].SemanticScore)
	}
	if scored[1].SemanticScore != 0 {
		t.Fatalf("expected semantic clamp to 0, got %v", scored[1].SemanticScore)
	}
}

func TestFuseScoresTableBoostRequiresNumericQuery(t *testing.T) {
	cfg := scoreConfig()
	candidates := []candidate{
		{chunk: domain.Chunk{ID: "tbl", ContentType: domain.ContentTable, CharLength: 500}, semantic: 0.5, lexicalRaw: 1.0},
		{chunk: domain.Chunk{ID: "txt", ContentType: domain.ContentText, CharLength: 500}, semantic: 0.5, lexicalRaw: 1.0},
	}

	plain := fuseScores("what does the report say", candidates, cfg)
	if plain[0].ContentBoost != 1 || plain[1].ContentBoost != 1 {
		t.Fatalf("no boost expected for a non-numeric query, got %v / %v", plain[0].ContentBoost, plain[1].ContentBoost)
	}

	numeric := fuseScores("what was the total revenue", candidates, cfg)
	if numeric[0].ContentBoost != cfg.TableBoost {
		t.Fatalf("table chunk should carry boost %v, got %v", cfg.TableBoost, numeric[0].ContentBoost)
	}
	if numeric[1].ContentBoost != 1 {
		t.Fatalf("text chunk must never be boosted, got %v", numeric[1].ContentBoost)
	}
	if numeric[0].FusedScore <= numeric[1].FusedScore {
		t.Fatalf("boosted table should outrank text on equal signals: %v <= %v", numeric[0].FusedScore, numeric[1].FusedScore)
	}
}

func TestHasNumericTrigger(t *testing.T) {
	triggers := DefaultConfig().BoostTriggerTokens
	cases := []struct {
		query string
		want  bool
	}{
		{"how many employees left", true},
		{"Total revenue for Q3", true},
		{"revenue in 2024", true},
		{"price in $ terms", true},
		{"what is the company strategy", false},
		{"describe the architecture", false},
	}
	for _, tc := range cases {
		if got := hasNumericTrigger(tc.query, triggers); got != tc.want {
			t.Fatalf("hasNumericTrigger(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestPositionPriorDecreasesMonotonically(t *testing.T) {
	prev := positionPrior(0)
	if prev != maxPositionPrior {
		t.Fatalf("first chunk should carry the full prior, got %v", prev)
	}
	for seq := 1; seq < 50; seq++ {
		cur := positionPrior(seq)
		if cur <= 0 || cur >= prev {
			t.Fatalf("prior must stay positive and strictly decrease: seq=%d prev=%v cur=%v", seq, prev, cur)
		}
		prev = cur
	}
}

func TestLengthPriorBandAndBounds(t *testing.T) {
	min, max := 200, 2000
	if got := lengthPrior(200, min, max); got != 0 {
		t.Fatalf("lower band edge should be neutral, got %v", got)
	}
	if got := lengthPrior(2000, min, max); got != 0 {
		t.Fatalf("upper band edge should be neutral, got %v", got)
	}
	short := lengthPrior(50, min, max)
	if short >= 0 {
		t.Fatalf("short chunk should be penalized, got %v", short)
	}
	long := lengthPrior(10000, min, max)
	if long < -maxLengthPenalty-1e-12 {
		t.Fatalf("penalty must be bounded at %v, got %v", maxLengthPenalty, long)
	}
	if math.Abs(long - -maxLengthPenalty) > 1e-12 {
		t.Fatalf("extreme length should saturate at -%v, got %v", maxLengthPenalty, long)
	}
}
