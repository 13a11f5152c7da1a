package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch marks an embedding whose length disagrees with the
	// configured dimension. Rejected at the insert/query boundary, never
	// truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	ErrDuplicateChunk = errors.New("duplicate chunk")
	ErrNotFound       = errors.New("not found")

	// ErrEmbeddingUnavailable is a collaborator failure: the query is aborted
	// unless a lexical-only fallback is explicitly configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRetrievalTimeout is surfaced when the per-query deadline elapses.
	// Retryable by the caller after backoff; no partial ranking is returned.
	ErrRetrievalTimeout = errors.New("retrieval timeout")

	// ErrIndexDesync marks a chunk present in an index but absent from the
	// store with no pending deletion to explain it. Fatal for ranking
	// correctness; logged and surfaced, never silently skipped.
	ErrIndexDesync = errors.New("index/store desynchronization")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
