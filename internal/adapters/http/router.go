package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docranker/internal/core/domain"
	"docranker/internal/core/ports"
	"docranker/internal/observability/metrics"
)

type Options struct {
	Service         string
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	MaxInFlightWait time.Duration
	Metrics         *metrics.EngineMetrics
	QueryLog        ports.QueryLogRepository
}

type Router struct {
	retriever ports.Retriever
	ingestor  ports.ChunkIngestor
	store     ports.ChunkStore
	opts      Options
}

func NewRouter(
	retriever ports.Retriever,
	ingestor ports.ChunkIngestor,
	store ports.ChunkStore,
	opts Options,
) *Router {
	if opts.Service == "" {
		opts.Service = "docranker"
	}
	if opts.MaxInFlightWait <= 0 {
		opts.MaxInFlightWait = 100 * time.Millisecond
	}
	return &Router{
		retriever: retriever,
		ingestor:  ingestor,
		store:     store,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/chunks", rt.insertChunk)
	mux.HandleFunc("/v1/chunks/", rt.removeChunk)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.MaxInFlightWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"indexed_count": rt.store.Len(),
	})
}

type queryRequest struct {
	Question     string   `json:"question"`
	ContentTypes []string `json:"content_types"`
	DocumentIDs  []string `json:"document_ids"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	filter := domain.SearchFilter{DocumentIDs: req.DocumentIDs}
	for _, raw := range req.ContentTypes {
		ct := domain.ContentType(raw)
		if !ct.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown content type: " + raw})
			return
		}
		filter.ContentTypes = append(filter.ContentTypes, ct)
	}

	result, err := rt.retriever.Retrieve(r.Context(), req.Question, filter)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if rt.opts.Metrics != nil {
			rt.opts.Metrics.RecordQueryError(rt.opts.Service, queryErrorStatus(err))
		}
		if status == http.StatusInternalServerError {
			slog.Error("query_failed",
				"request_id", requestIDFromContext(r.Context()),
				"error", err,
			)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordQuery(rt.opts.Service, metrics.RetrievalObservation{
			Duration:           result.Stats.Duration,
			SemanticCandidates: result.Stats.SemanticCandidates,
			LexicalCandidates:  result.Stats.LexicalCandidates,
			FusedCandidates:    result.Stats.FusedCandidates,
			Selected:           result.Stats.Selected,
			Confidence:         result.Confidence,
			ThresholdFallback:  result.ThresholdFallback,
			LexicalOnly:        result.Stats.LexicalOnly,
		})
	}
	rt.appendQueryLog(r, result)

	writeJSON(w, http.StatusOK, result)
}

// appendQueryLog records the served query for offline evaluation. Failures
// are logged, never surfaced: the user already has their answer.
func (rt *Router) appendQueryLog(r *http.Request, result *domain.RetrievalResult) {
	if rt.opts.QueryLog == nil {
		return
	}

	entry := domain.QueryLogEntry{
		QueryText:         result.Query,
		Confidence:        result.Confidence,
		ThresholdFallback: result.ThresholdFallback,
		Duration:          result.Stats.Duration,
		CreatedAt:         time.Now().UTC(),
	}
	for _, c := range result.Chunks {
		entry.ChunkIDs = append(entry.ChunkIDs, c.ChunkID)
		entry.Scores = append(entry.Scores, c.FusedScore)
	}

	if err := rt.opts.QueryLog.Log(r.Context(), entry); err != nil {
		slog.Warn("query_log_append_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
}

func (rt *Router) insertChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var chunk domain.Chunk
	if err := json.NewDecoder(r.Body).Decode(&chunk); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	err := rt.ingestor.InsertChunk(r.Context(), chunk)
	rt.recordIngest("insert_chunk", err)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"chunk_id": chunk.ID})
}

func (rt *Router) removeChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/chunks/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chunk id is required"})
		return
	}

	err := rt.ingestor.RemoveChunk(r.Context(), id)
	rt.recordIngest("remove_chunk", err)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(rest, "/chunks"):
		rt.listDocumentChunks(w, r, strings.TrimSuffix(rest, "/chunks"))
	case r.Method == http.MethodDelete && rest != "" && !strings.Contains(rest, "/"):
		rt.removeDocument(w, r, rest)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	err := rt.ingestor.RemoveDocument(r.Context(), documentID)
	rt.recordIngest("remove_document", err)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chunkSummary struct {
	ChunkID       string             `json:"chunk_id"`
	ContentType   domain.ContentType `json:"content_type"`
	PageNumber    *int               `json:"page_number,omitempty"`
	SequenceIndex int                `json:"sequence_index"`
	Text          string             `json:"text"`
	CharLength    int                `json:"char_length"`
}

func (rt *Router) listDocumentChunks(w http.ResponseWriter, _ *http.Request, documentID string) {
	if documentID == "" || strings.Contains(documentID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	// Embeddings are omitted: callers inspect text and ordering, not vectors.
	summaries := []chunkSummary{}
	for chunk := range rt.store.ByDocument(documentID) {
		summaries = append(summaries, chunkSummary{
			ChunkID:       chunk.ID,
			ContentType:   chunk.ContentType,
			PageNumber:    chunk.PageNumber,
			SequenceIndex: chunk.SequenceIndex,
			Text:          chunk.Text,
			CharLength:    chunk.CharLength,
		})
	}
	if len(summaries) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found: " + documentID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"chunks":      summaries,
	})
}

func (rt *Router) recordIngest(operation string, err error) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordIngestEvent(rt.opts.Service, operation, err)
	}
}

func queryErrorStatus(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRetrievalTimeout):
		return "timeout"
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case domain.IsKind(err, domain.ErrIndexDesync):
		return "index_desync"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
