package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vkoval/docuchat/internal/admin"
	"github.com/vkoval/docuchat/internal/cache"
	"github.com/vkoval/docuchat/internal/config"
	"github.com/vkoval/docuchat/internal/database"
	"github.com/vkoval/docuchat/internal/docstore"
	"github.com/vkoval/docuchat/internal/document"
	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/queue"
	"github.com/vkoval/docuchat/internal/queue/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	sealer, err := admin.NewSealer(cfg.Auth.CredentialSecret)
	if err != nil {
		slog.Error("failed to init credential sealer", "error", err)
		os.Exit(1)
	}
	adminSvc := admin.NewService(db, sealer, cache.NewCache(rdb))

	gwOpts, err := adminSvc.GatewayOptions(ctx, llm.GatewayOptions{
		OpenAIKey:        cfg.LLM.OpenAIKey,
		AnthropicKey:     cfg.LLM.AnthropicKey,
		DefaultProvider:  cfg.LLM.DefaultProvider,
		FallbackProvider: cfg.LLM.FallbackProvider,
		EmbeddingModel:   cfg.LLM.EmbeddingModel,
		MaxRetries:       cfg.LLM.MaxRetries,
	})
	if err != nil {
		slog.Error("failed to load provider credentials", "error", err)
		os.Exit(1)
	}
	gw := llm.NewGateway(gwOpts)

	embedSvc := embedding.NewService(
		embedding.NewGatewayClient(gw, gwOpts.EmbeddingModel),
		embedding.WithConcurrency(cfg.Retrieval.EmbedConcurrency),
	)
	chunkOpts, _ := adminSvc.RetrievalOptions(ctx)
	docSvc := document.NewService(docstore.NewStore(db), embedSvc, queue.NewClient(cfg.Redis), chunkOpts)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	ingestWorker := workers.NewIngestWorker(docSvc, document.NewFetcher())
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
