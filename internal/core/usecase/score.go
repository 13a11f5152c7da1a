package usecase

import (
	"strings"
	"unicode"

	"docranker/internal/core/domain"
)

// Prior contributions are bounded so neither can move a score by more than
// five percent.
const (
	maxPositionPrior = 0.05
	positionDecay    = 0.15
	maxLengthPenalty = 0.05
)

// candidate pairs a hydrated chunk with the raw per-index scores it received.
// A chunk missing from one index participates with a zero score for that
// signal; absence is scored, not excluded.
type candidate struct {
	chunk      domain.Chunk
	semantic   float64
	lexicalRaw float64
}

// fuseScores computes the pure fusion
//
//	fused = boost × (ws·semantic + wl·lexical) × (1 + positionPrior + lengthPrior)
//
// over the candidate set. The lexical scores are min-max normalized within
// the set; when every raw score is equal the normalized score is 1 for all,
// avoiding a divide by zero. The output carries every input signal so a
// ranking can be explained after the fact.
func fuseScores(query string, candidates []candidate, cfg Config) []domain.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	minLex := candidates[0].lexicalRaw
	maxLex := candidates[0].lexicalRaw
	for _, c := range candidates[1:] {
		if c.lexicalRaw < minLex {
			minLex = c.lexicalRaw
		}
		if c.lexicalRaw > maxLex {
			maxLex = c.lexicalRaw
		}
	}
	lexRange := maxLex - minLex

	numericQuery := hasNumericTrigger(query, cfg.BoostTriggerTokens)

	out := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		semantic := clamp01(c.semantic)

		lexical := 1.0
		if lexRange > 0 {
			lexical = (c.lexicalRaw - minLex) / lexRange
		}

		boost := 1.0
		if c.chunk.ContentType == domain.ContentTable && numericQuery {
			boost = cfg.TableBoost
		}

		position := positionPrior(c.chunk.SequenceIndex)
		length := lengthPrior(c.chunk.CharLength, cfg.LengthTargetMin, cfg.LengthTargetMax)

		base := cfg.SemanticWeight*semantic + cfg.LexicalWeight*lexical
		fused := boost * base * (1 + position + length)

		out = append(out, domain.ScoredChunk{
			ChunkID:       c.chunk.ID,
			DocumentID:    c.chunk.DocumentID,
			ContentType:   c.chunk.ContentType,
			PageNumber:    c.chunk.PageNumber,
			SequenceIndex: c.chunk.SequenceIndex,
			Text:          c.chunk.Text,
			SemanticScore: semantic,
			LexicalScore:  lexical,
			ContentBoost:  boost,
			PositionPrior: position,
			LengthPrior:   length,
			FusedScore:    fused,
		})
	}
	return out
}

// positionPrior decreases monotonically with the chunk's position in its
// document, from maxPositionPrior at the first chunk toward zero.
func positionPrior(sequenceIndex int) float64 {
	if sequenceIndex < 0 {
		sequenceIndex = 0
	}
	return maxPositionPrior / (1 + positionDecay*float64(sequenceIndex))
}

// lengthPrior is zero inside the target band and penalizes deviation
// proportionally outside it, bounded at maxLengthPenalty.
func lengthPrior(charLength, targetMin, targetMax int) float64 {
	if charLength >= targetMin && charLength <= targetMax {
		return 0
	}
	var deviation float64
	if charLength < targetMin {
		deviation = float64(targetMin-charLength) / float64(targetMin)
	} else {
		deviation = float64(charLength-targetMax) / float64(targetMax)
	}
	if deviation > 1 {
		deviation = 1
	}
	return -maxLengthPenalty * deviation
}

// hasNumericTrigger reports whether the query looks quantitative: it contains
// a digit or one of the configured trigger phrases.
func hasNumericTrigger(query string, triggers []string) bool {
	lowered := strings.ToLower(query)
	for _, r := range lowered {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, trigger := range triggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
