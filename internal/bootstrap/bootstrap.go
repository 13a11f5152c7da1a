package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docranker/internal/config"
	"docranker/internal/core/domain"
	"docranker/internal/core/ports"
	"docranker/internal/core/usecase"
	"docranker/internal/infrastructure/embedding/ollama"
	"docranker/internal/infrastructure/index/lexical"
	"docranker/internal/infrastructure/index/vector"
	"docranker/internal/infrastructure/queue/nats"
	"docranker/internal/infrastructure/repository/postgres"
	"docranker/internal/infrastructure/resilience"
	"docranker/internal/infrastructure/store/memory"
	"docranker/internal/observability/metrics"
)

// App wires the engine together: durable chunk records in Postgres, the
// in-process store and indexes rebuilt from them at startup, the NATS
// ingestion feed, and the retrieval pipeline on top.
type App struct {
	Config  config.Config
	Metrics *metrics.EngineMetrics

	Store     ports.ChunkStore
	Queue     ports.MessageQueue
	Retriever ports.Retriever
	Ingestor  ports.ChunkIngestor
	QueryLog  ports.QueryLogRepository

	lexical *lexical.Index
	vector  *vector.Index

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunkRepo := postgres.NewChunkRepository(db)
	if err := chunkRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	queryLog := postgres.NewQueryLogRepository(db)

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	store := memory.New(cfg.EmbeddingDim)
	lexicalIndex := lexical.New(cfg.BM25K1, cfg.BM25B)
	vectorIndex := vector.New(cfg.EmbeddingDim)
	journal := usecase.NewDeletionJournal()

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, cfg.EmbeddingDim, executor)

	ingestor := usecase.NewIngestUseCase(store, lexicalIndex, vectorIndex, chunkRepo, journal)
	retriever := usecase.NewRetrieveUseCase(store, lexicalIndex, vectorIndex, embedder, journal, usecase.Config{
		RetrievalK:            cfg.RetrievalK,
		RerankK:               cfg.RerankK,
		SimilarityThreshold:   cfg.SimilarityThreshold,
		SemanticWeight:        cfg.SemanticWeight,
		LexicalWeight:         cfg.LexicalWeight,
		TableBoost:            cfg.TableBoost,
		BoostTriggerTokens:    cfg.TriggerTokens(),
		LengthTargetMin:       cfg.LengthTargetMin,
		LengthTargetMax:       cfg.LengthTargetMax,
		CitationOverlapWindow: cfg.CitationOverlapWindow,
		QueryTimeout:          time.Duration(cfg.QueryTimeoutMS) * time.Millisecond,
		AllowLexicalFallback:  cfg.AllowLexicalFallback,
	})

	app := &App{
		Config:    cfg,
		Metrics:   metrics.NewEngineMetrics("docranker-api"),
		Store:     store,
		Queue:     queue,
		Retriever: retriever,
		Ingestor:  ingestor,
		QueryLog:  queryLog,
		lexical:   lexicalIndex,
		vector:    vectorIndex,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}

	if err := app.replay(ctx, chunkRepo, store, lexicalIndex, vectorIndex); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// replay rebuilds the in-process store and indexes from the durable record.
// A chunk that no longer matches the configured dimension is fatal: serving
// with a partially rebuilt index would be a silent desynchronization.
func (a *App) replay(
	ctx context.Context,
	repo *postgres.ChunkRepository,
	store *memory.Store,
	lexicalIndex *lexical.Index,
	vectorIndex *vector.Index,
) error {
	started := time.Now()
	chunks, err := repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("replay chunk records: %w", err)
	}
	for _, chunk := range chunks {
		chunk.Normalize()
		if err := store.Insert(chunk); err != nil {
			return fmt.Errorf("replay chunk %s: %w", chunk.ID, err)
		}
		lexicalIndex.Insert(chunk.ID, chunk.Text)
		if err := vectorIndex.Insert(chunk.ID, chunk.Embedding); err != nil {
			return fmt.Errorf("replay chunk %s: %w", chunk.ID, err)
		}
	}
	a.syncIndexGauges()

	slog.Info("replay_complete",
		"chunks", len(chunks),
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)
	return nil
}

// RunConsumer applies ingestion events from the queue until ctx is
// cancelled. Redelivered events are tolerated: a duplicate insert and a
// removal of an already absent chunk both land in an already converged state.
func (a *App) RunConsumer(ctx context.Context) error {
	onChunk := func(handlerCtx context.Context, chunk domain.Chunk) error {
		err := a.Ingestor.InsertChunk(handlerCtx, chunk)
		if domain.IsKind(err, domain.ErrDuplicateChunk) {
			slog.Debug("duplicate_chunk_event_skipped", "chunk_id", chunk.ID)
			err = nil
		}
		a.Metrics.RecordIngestEvent("docranker-api", "insert_chunk", err)
		a.syncIndexGauges()
		return err
	}
	onDocumentRemoved := func(handlerCtx context.Context, documentID string) error {
		err := a.Ingestor.RemoveDocument(handlerCtx, documentID)
		a.Metrics.RecordIngestEvent("docranker-api", "remove_document", err)
		a.syncIndexGauges()
		return err
	}
	return a.Queue.Subscribe(ctx, onChunk, onDocumentRemoved)
}

func (a *App) syncIndexGauges() {
	a.Metrics.SetIndexSize("store", a.Store.Len())
	a.Metrics.SetIndexSize("lexical", a.lexical.Len())
	a.Metrics.SetIndexSize("vector", a.vector.Len())
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
