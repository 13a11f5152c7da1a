package httpadapter

import (
	"net/http"

	"docranker/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrDimensionMismatch):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateChunk):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrRetrievalTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		// Includes index/store desynchronization: an internal invariant broke.
		return http.StatusInternalServerError
	}
}
