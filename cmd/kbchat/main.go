package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/kbchat/internal/api"
	"github.com/MikeSquared-Agency/kbchat/internal/cache"
	"github.com/MikeSquared-Agency/kbchat/internal/config"
	"github.com/MikeSquared-Agency/kbchat/internal/hermes"
	"github.com/MikeSquared-Agency/kbchat/internal/ollama"
	"github.com/MikeSquared-Agency/kbchat/internal/pipeline"
	"github.com/MikeSquared-Agency/kbchat/internal/retrieval"
	"github.com/MikeSquared-Agency/kbchat/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("kbchat starting", "port", cfg.Port, "version", cfg.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Retrieval
	retriever, err := newRetriever(cfg)
	if err != nil {
		slog.Error("failed to set up retrieval", "error", err)
		os.Exit(1)
	}
	slog.Info("retrieval ready", "backend", cfg.RetrievalBackend)

	// Language model
	llm := ollama.NewClient(cfg.LLMURL, cfg.LLMModel, cfg.LLMTemperature, cfg.HTTPTimeout)
	slog.Info("ollama client ready", "url", cfg.LLMURL, "model", cfg.LLMModel)

	var pipeOpts []pipeline.Option
	var apiOpts []api.Option

	// Redis (optional: no cache, counter or rate limit without it)
	if addr := cfg.RedisAddress(); addr != "" {
		rc, err := cache.New(ctx, cache.Config{
			Address:  addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			slog.Warn("redis unavailable, running without cache", "addr", addr, "error", err)
		} else {
			defer rc.Close()
			pipeOpts = append(pipeOpts, pipeline.WithCache(rc))
			apiOpts = append(apiOpts, api.WithStats(rc), api.WithRateLimit(rc, cfg.RateLimit, cfg.RateWindow))
			slog.Info("redis connected", "addr", addr, "ttl", cfg.CacheTTL, "rate_limit", cfg.RateLimit)
		}
	}

	// Database (optional answer log)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare database", "error", err)
			os.Exit(1)
		}
		pipeOpts = append(pipeOpts, pipeline.WithRecorder(db))
		apiOpts = append(apiOpts, api.WithAnswerLog(db))
		slog.Info("database connected")
	}

	// NATS/Hermes (optional answer events)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		pipeOpts = append(pipeOpts, pipeline.WithPublisher(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	pipe := pipeline.New(retriever, llm, pipeline.Config{
		UserLookback:    cfg.UserLookback,
		MessageLookback: cfg.MessageLookback,
		NResults:        cfg.NResults,
		AssistantKeep:   cfg.AssistantKeep,
	}, slog.Default(), pipeOpts...)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.Version, pipe, slog.Default(), apiOpts...)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("kbchat ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	slog.Info("kbchat stopped")
}

func newRetriever(cfg config.Config) (retrieval.Retriever, error) {
	switch cfg.RetrievalBackend {
	case "http":
		return retrieval.NewClient(cfg.RetrievalURL, cfg.HTTPTimeout), nil
	case "static":
		if cfg.KnowledgeFile == "" {
			return nil, errors.New("KNOWLEDGE_FILE is required for the static backend")
		}
		r, err := retrieval.LoadStaticRetriever(cfg.KnowledgeFile)
		if err != nil {
			return nil, err
		}
		slog.Info("knowledge file loaded", "path", cfg.KnowledgeFile, "entries", r.Len())
		return r, nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.RetrievalBackend)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
