package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineMetrics holds the service's private registry together with the HTTP,
// retrieval and ingestion instruments.
type EngineMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal             *prometheus.CounterVec
	queryDuration          *prometheus.HistogramVec
	queryCandidates        *prometheus.HistogramVec
	querySelectedChunks    *prometheus.HistogramVec
	queryConfidence        *prometheus.HistogramVec
	thresholdFallbackTotal *prometheus.CounterVec
	lexicalOnlyTotal       *prometheus.CounterVec

	ingestEventsTotal *prometheus.CounterVec
	indexSize         *prometheus.GaugeVec
}

func NewEngineMetrics(service string) *EngineMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docranker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docranker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docranker",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total retrieval queries by outcome.",
		},
		[]string{"service", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"service"},
	)
	queryCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of candidate counts per query, by pipeline stage.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "stage"},
	)
	querySelectedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "selected_chunks",
			Help:      "Distribution of finally selected chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	queryConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "confidence",
			Help:      "Distribution of per-query confidence estimates.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	thresholdFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "threshold_fallback_total",
			Help:      "Total queries answered through the below-threshold fallback.",
		},
		[]string{"service"},
	)
	lexicalOnlyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docranker",
			Subsystem: "retrieval",
			Name:      "lexical_only_total",
			Help:      "Total queries served without the semantic signal.",
		},
		[]string{"service"},
	)
	ingestEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docranker",
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total applied ingestion events by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	indexSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docranker",
			Subsystem: "index",
			Name:      "size",
			Help:      "Current number of chunks per index structure.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"index"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		queryCandidates,
		querySelectedChunks,
		queryConfidence,
		thresholdFallbackTotal,
		lexicalOnlyTotal,
		ingestEventsTotal,
		indexSize,
	)

	return &EngineMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		queryTotal:             queryTotal,
		queryDuration:          queryDuration,
		queryCandidates:        queryCandidates,
		querySelectedChunks:    querySelectedChunks,
		queryConfidence:        queryConfidence,
		thresholdFallbackTotal: thresholdFallbackTotal,
		lexicalOnlyTotal:       lexicalOnlyTotal,
		ingestEventsTotal:      ingestEventsTotal,
		indexSize:              indexSize,
	}
}

func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EngineMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/chunks/"):
		return "/v1/chunks/{chunk_id}"
	case strings.HasPrefix(path, "/v1/documents/"):
		if strings.HasSuffix(path, "/chunks") {
			return "/v1/documents/{document_id}/chunks"
		}
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RetrievalObservation carries the per-query numbers the instruments need.
type RetrievalObservation struct {
	Duration           time.Duration
	SemanticCandidates int
	LexicalCandidates  int
	FusedCandidates    int
	Selected           int
	Confidence         float64
	ThresholdFallback  bool
	LexicalOnly        bool
}

func (m *EngineMetrics) RecordQuery(service string, obs RetrievalObservation) {
	m.queryTotal.WithLabelValues(service, "success").Inc()
	m.queryDuration.WithLabelValues(service).Observe(obs.Duration.Seconds())
	m.queryCandidates.WithLabelValues(service, "semantic").Observe(float64(obs.SemanticCandidates))
	m.queryCandidates.WithLabelValues(service, "lexical").Observe(float64(obs.LexicalCandidates))
	m.queryCandidates.WithLabelValues(service, "fused").Observe(float64(obs.FusedCandidates))
	m.querySelectedChunks.WithLabelValues(service).Observe(float64(obs.Selected))
	m.queryConfidence.WithLabelValues(service).Observe(obs.Confidence)

	if obs.ThresholdFallback {
		m.thresholdFallbackTotal.WithLabelValues(service).Inc()
	}
	if obs.LexicalOnly {
		m.lexicalOnlyTotal.WithLabelValues(service).Inc()
	}
}

func (m *EngineMetrics) RecordQueryError(service, status string) {
	if status == "" {
		status = "error"
	}
	m.queryTotal.WithLabelValues(service, status).Inc()
}

func (m *EngineMetrics) RecordIngestEvent(service, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ingestEventsTotal.WithLabelValues(service, operation, status).Inc()
}

func (m *EngineMetrics) SetIndexSize(index string, size int) {
	m.indexSize.WithLabelValues(index).Set(float64(size))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
