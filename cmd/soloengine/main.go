package main

import (
	"log"
	"net/http"

	"github.com/saurabh22suman/soloengine.in/chat"
	"github.com/saurabh22suman/soloengine.in/config"
	"github.com/saurabh22suman/soloengine.in/llm"
	"github.com/saurabh22suman/soloengine.in/rag"
	"github.com/saurabh22suman/soloengine.in/server"
	"github.com/saurabh22suman/soloengine.in/store"
)

func main() {
	cfg := config.Load()

	client, err := llm.New(llm.Config{
		APIKey:          cfg.HuggingFaceAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
		Dimension:       cfg.VectorDimension,
		MaxRetries:      cfg.MaxRetries,
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
	})
	if err != nil {
		log.Fatalf("LLM client: %v", err)
	}

	chunker := rag.NewChunker(
		rag.WithChunkSize(cfg.ChunkSize),
		rag.WithChunkOverlap(cfg.ChunkOverlap),
	)

	st, err := store.Open(store.Config{
		DSN:                  cfg.DatabaseDSN,
		Chunker:              chunker,
		MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		RateLimitingEnabled:  cfg.RateLimitingEnabled,
		RateLimitFailOpen:    cfg.RateLimitFailOpen,
	})
	if err != nil {
		log.Fatalf("Open store: %v", err)
	}
	defer st.Close()

	// The embedding cache lives in the store's database, so the embedder is
	// wired in after the store opens.
	cache := st.NewEmbeddingCache(cfg.CacheTTL)
	st.SetEmbedder(rag.NewCachedEmbedder(client, cache, cfg.EmbeddingModel))

	orchestrator := chat.New(st, client, cfg.MaxContextChunks)

	srv, err := server.New(server.Config{
		Store:           st,
		Chat:            orchestrator,
		WkhtmltopdfPath: cfg.WkhtmltopdfPath,
	})
	if err != nil {
		log.Fatalf("Server: %v", err)
	}

	log.Printf("Starting soloengine on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, srv.Handler()))
}
