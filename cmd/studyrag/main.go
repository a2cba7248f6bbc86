package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"studyrag/internal/config"
	"studyrag/internal/embedding"
	"studyrag/internal/index"
	"studyrag/internal/ingest"
	"studyrag/internal/llm"
	"studyrag/internal/processor"
	"studyrag/internal/question"
	"studyrag/internal/server"
	"studyrag/internal/verify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Ollama.EmbeddingModel, cfg.Ollama.Timeout())
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	llmClient, err := llm.NewOllamaLLM(cfg.Ollama.Host, cfg.Ollama.LLMModel, cfg.Ollama.Timeout())
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	metric, err := index.ParseMetric(cfg.Index.Metric)
	if err != nil {
		log.Fatalf("Invalid index config: %v", err)
	}

	var idx index.Index
	switch cfg.Index.Type {
	case "memory":
		idx = index.NewMemory(cfg.Index.Dimension, metric)
	case "postgres":
		idx, err = index.NewPostgres(ctx, cfg.Index.Postgres.ConnString, cfg.Index.Postgres.Table, cfg.Index.Dimension, metric)
		if err != nil {
			log.Fatalf("Failed to connect to vector index: %v", err)
		}
	default:
		log.Fatalf("Unknown index type: %s", cfg.Index.Type)
	}
	defer idx.Close()
	log.Printf("Using %s index (dimension=%d, metric=%s)", cfg.Index.Type, cfg.Index.Dimension, metric)

	pipeline := ingest.NewPipeline(
		processor.NewPDFProcessor(),
		embedder,
		idx,
		question.NewGenerator(llmClient, cfg.Generator.MaxDocumentChars),
		question.NewQualityFilter(llmClient, cfg.Filter.ContextChars),
		cfg.Ingest.MaxConcurrent,
	)
	verifier := verify.NewVerifier(embedder, idx, llmClient, cfg.Retrieval.TopK)

	srv := server.New(pipeline, verifier, idx, cfg.Server.MaxUploadBytes)

	listenAddr := cfg.Server.Addr
	if *addr != "" {
		listenAddr = *addr
	}
	log.Printf("Listening on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, srv.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
