package domain

import "time"

// SearchFilter restricts a query to a subset of content types and/or documents.
// Empty slices mean no restriction.
type SearchFilter struct {
	ContentTypes []ContentType `json:"content_types,omitempty"`
	DocumentIDs  []string      `json:"document_ids,omitempty"`
}

func (f SearchFilter) AllowsContentType(t ContentType) bool {
	if len(f.ContentTypes) == 0 {
		return true
	}
	for _, allowed := range f.ContentTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

func (f SearchFilter) AllowsDocument(documentID string) bool {
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, allowed := range f.DocumentIDs {
		if allowed == documentID {
			return true
		}
	}
	return false
}

// IndexHit is a raw per-chunk score produced by a single index.
type IndexHit struct {
	ChunkID string
	Score   float64
}

// ScoredChunk carries every relevance signal that went into the fused score.
// FusedScore is a pure function of the other score fields and the configured
// weights; no hidden state contributes.
type ScoredChunk struct {
	ChunkID       string      `json:"chunk_id"`
	DocumentID    string      `json:"document_id"`
	ContentType   ContentType `json:"content_type"`
	PageNumber    *int        `json:"page_number,omitempty"`
	SequenceIndex int         `json:"sequence_index"`
	Text          string      `json:"text"`
	SemanticScore float64     `json:"semantic_score"`
	LexicalScore  float64     `json:"lexical_score"`
	ContentBoost  float64     `json:"content_boost"`
	PositionPrior float64     `json:"position_prior"`
	LengthPrior   float64     `json:"length_prior"`
	FusedScore    float64     `json:"fused_score"`
}

// RankedResult is the selector output: chunks ordered by fused score
// descending, ties broken by sequence index then chunk id ascending.
// ThresholdFallback is set when no candidate met the similarity threshold
// and the single best candidate was kept anyway. RunnerUpScore is the
// second-best fused score before the threshold cut, or -1 when the ranking
// held fewer than two candidates.
type RankedResult struct {
	Chunks            []ScoredChunk `json:"chunks"`
	Confidence        float64       `json:"confidence"`
	ThresholdFallback bool          `json:"threshold_fallback"`
	RunnerUpScore     float64       `json:"-"`
}

// Citation maps a selected chunk to a stable 1-based reference id in final
// rank order, with the metadata the answer-generation stage needs to cite it.
type Citation struct {
	ReferenceID int         `json:"reference_id"`
	ChunkID     string      `json:"chunk_id"`
	DocumentID  string      `json:"document_id"`
	PageNumber  *int        `json:"page_number,omitempty"`
	ContentType ContentType `json:"content_type"`
	Snippet     string      `json:"snippet_text"`
	FusedScore  float64     `json:"fused_score"`
}

// RetrievalStats reports per-stage result counts and timing for one query.
type RetrievalStats struct {
	SemanticCandidates int           `json:"semantic_candidates"`
	LexicalCandidates  int           `json:"lexical_candidates"`
	FusedCandidates    int           `json:"fused_candidates"`
	Selected           int           `json:"selected"`
	LexicalOnly        bool          `json:"lexical_only,omitempty"`
	Duration           time.Duration `json:"-"`
	DurationMS         float64       `json:"duration_ms"`
}

// RetrievalResult is the full contract handed to the answer-generation
// collaborator: ranked evidence, citation records and an aggregate confidence.
type RetrievalResult struct {
	Query             string         `json:"query"`
	Chunks            []ScoredChunk  `json:"chunks"`
	Citations         []Citation     `json:"citations"`
	Confidence        float64        `json:"confidence"`
	ThresholdFallback bool           `json:"threshold_fallback"`
	Stats             RetrievalStats `json:"stats"`
}

// QueryLogEntry is the durable record of one served query.
type QueryLogEntry struct {
	ID                string        `json:"id"`
	QueryText         string        `json:"query_text"`
	ChunkIDs          []string      `json:"chunk_ids"`
	Scores            []float64     `json:"scores"`
	Confidence        float64       `json:"confidence"`
	ThresholdFallback bool          `json:"threshold_fallback"`
	Duration          time.Duration `json:"-"`
	CreatedAt         time.Time     `json:"created_at"`
}
