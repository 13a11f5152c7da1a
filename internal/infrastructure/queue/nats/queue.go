package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"docranker/internal/core/domain"
	"docranker/internal/infrastructure/resilience"
)

const (
	subjectChunkUpsert     = "chunks.upsert"
	subjectDocumentRemoval = "documents.removed"
)

// Queue carries ingestion events between the upstream chunking pipeline and
// the engine. Subscriptions are plain (no queue group): every engine instance
// maintains its own in-process indexes and must see every event.
type Queue struct {
	conn     *nats.Conn
	executor *resilience.Executor
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docranker"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishChunkUpsert(ctx context.Context, chunk domain.Chunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal chunk event: %w", err)
	}
	return q.publish(ctx, subjectChunkUpsert, payload)
}

func (q *Queue) PublishDocumentRemoval(ctx context.Context, documentID string) error {
	payload, err := json.Marshal(documentRemovalEvent{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal removal event: %w", err)
	}
	return q.publish(ctx, subjectDocumentRemoval, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyQueueError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

type documentRemovalEvent struct {
	DocumentID string `json:"document_id"`
}

// Subscribe consumes chunk upserts and document removals until the context
// is cancelled, then drains both subscriptions.
func (q *Queue) Subscribe(
	ctx context.Context,
	onChunk func(context.Context, domain.Chunk) error,
	onDocumentRemoved func(context.Context, string) error,
) error {
	chunkSub, err := q.conn.Subscribe(subjectChunkUpsert, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var chunk domain.Chunk
		if err := json.Unmarshal(msg.Data, &chunk); err != nil {
			log.Printf("malformed chunk event dropped: %v", err)
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := onChunk(handlerCtx, chunk); err != nil {
			log.Printf("chunk upsert handler error for chunk=%s: %v", chunk.ID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subjectChunkUpsert, err)
	}

	removalSub, err := q.conn.Subscribe(subjectDocumentRemoval, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var event documentRemovalEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("malformed removal event dropped: %v", err)
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := onDocumentRemoved(handlerCtx, event.DocumentID); err != nil {
			log.Printf("document removal handler error for doc=%s: %v", event.DocumentID, err)
		}
	})
	if err != nil {
		_ = chunkSub.Unsubscribe()
		return fmt.Errorf("nats subscribe %s: %w", subjectDocumentRemoval, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := chunkSub.Drain(); err != nil {
		return fmt.Errorf("nats drain chunk subscription: %w", err)
	}
	if err := removalSub.Drain(); err != nil {
		return fmt.Errorf("nats drain removal subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
