package usecase

import "docranker/internal/core/domain"

const snippetMaxRunes = 280

// assembleCitations deduplicates near-duplicate spans and assigns 1-based
// reference ids in final rank order.
//
// Two selected chunks are near-duplicates when they belong to the same
// document and their sequence indexes lie within the overlap window; only the
// highest-ranked one is kept, so the generation stage never cites the same
// passage twice under different ids.
func assembleCitations(ranked []domain.ScoredChunk, overlapWindow int) ([]domain.ScoredChunk, []domain.Citation) {
	kept := make([]domain.ScoredChunk, 0, len(ranked))
	for _, c := range ranked {
		if overlapsKept(c, kept, overlapWindow) {
			continue
		}
		kept = append(kept, c)
	}

	citations := make([]domain.Citation, 0, len(kept))
	for i, c := range kept {
		citations = append(citations, domain.Citation{
			ReferenceID: i + 1,
			ChunkID:     c.ChunkID,
			DocumentID:  c.DocumentID,
			PageNumber:  c.PageNumber,
			ContentType: c.ContentType,
			Snippet:     snippet(c.Text),
			FusedScore:  c.FusedScore,
		})
	}
	return kept, citations
}

func overlapsKept(c domain.ScoredChunk, kept []domain.ScoredChunk, window int) bool {
	for _, k := range kept {
		if k.DocumentID != c.DocumentID {
			continue
		}
		delta := c.SequenceIndex - k.SequenceIndex
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxRunes {
		return text
	}
	return string(runes[:snippetMaxRunes]) + "…"
}
