// Command loader feeds the engine from the command line: it publishes chunks
// from a JSONL file to the ingestion subject, or a removal event for a whole
// document. Chunks without an embedding are embedded before publishing.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docranker/internal/config"
	"docranker/internal/core/domain"
	"docranker/internal/infrastructure/embedding/ollama"
	"docranker/internal/infrastructure/queue/nats"
	"docranker/internal/infrastructure/resilience"
	"docranker/internal/observability/logging"
)

func main() {
	var (
		file      = flag.String("file", "", "JSONL file with one chunk per line")
		removeDoc = flag.String("remove-document", "", "publish a removal event for the document id")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("docranker-loader", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		log.Fatalf("init message queue: %v", err)
	}
	defer queue.Close()

	switch {
	case *removeDoc != "":
		if err := queue.PublishDocumentRemoval(ctx, *removeDoc); err != nil {
			log.Fatalf("publish removal: %v", err)
		}
		slog.Info("removal_published", "document_id", *removeDoc)
	case *file != "":
		embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, cfg.EmbeddingDim, executor)
		published, err := publishFile(ctx, *file, queue, embedder)
		if err != nil {
			log.Fatalf("publish chunks: %v", err)
		}
		slog.Info("chunks_published", "file", *file, "count", published)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func publishFile(ctx context.Context, path string, queue *nats.Queue, embedder *ollama.Client) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	published := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var chunk domain.Chunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return published, fmt.Errorf("line %d: %w", line, err)
		}
		chunk.Normalize()

		if len(chunk.Embedding) == 0 {
			vec, err := embedder.EmbedQuery(ctx, chunk.Text)
			if err != nil {
				return published, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
			}
			chunk.Embedding = vec
		}

		if err := queue.PublishChunkUpsert(ctx, chunk); err != nil {
			return published, fmt.Errorf("publish chunk %s: %w", chunk.ID, err)
		}
		published++
	}
	if err := scanner.Err(); err != nil {
		return published, fmt.Errorf("read %s: %w", path, err)
	}
	return published, nil
}
