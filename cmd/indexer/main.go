package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorai/tutorai-backend/config"
	"github.com/tutorai/tutorai-backend/internal/bootstrap"
	"github.com/tutorai/tutorai-backend/internal/indexer/chunker"
	indexercron "github.com/tutorai/tutorai-backend/internal/indexer/cron"
	"github.com/tutorai/tutorai-backend/internal/indexer/embedder"
	"github.com/tutorai/tutorai-backend/internal/indexer/extract"
	indexerhttp "github.com/tutorai/tutorai-backend/internal/indexer/http"
	"github.com/tutorai/tutorai-backend/internal/indexer/service"
	"github.com/tutorai/tutorai-backend/internal/indexer/store"
	"github.com/tutorai/tutorai-backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("development")
		logger.Fatal().Err(err).Msg("load config")
	}

	logger.Init(cfg.App.Environment)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer st.Close()

	emb, err := embedder.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.EmbeddingModel, cfg.Gemini.EmbeddingDim)
	if err != nil {
		logger.Fatal().Err(err).Msg("create gemini embedder")
	}

	svc := service.New(st, extract.NewPDF(), chunker.New(cfg.Indexer.ChunkSize, cfg.Indexer.ChunkOverlap), emb)

	scheduler := indexercron.NewScheduler(svc, cfg.Indexer.EmbedInterval, cfg.Indexer.BatchSize, cfg.Indexer.MaxRetries)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start embed scheduler")
	}
	defer scheduler.Stop()

	r := gin.New()
	r.Use(gin.Recovery())

	handler := indexerhttp.NewHandler(svc, st, indexerhttp.Options{
		Version:          cfg.App.Version,
		GeminiConfigured: cfg.Gemini.APIKey != "",
		DefaultBatchSize: cfg.Indexer.BatchSize,
		DefaultRetries:   cfg.Indexer.MaxRetries,
		DefaultTopK:      cfg.Indexer.TopK,
	})
	handler.Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Indexer.Port,
		Handler: r,
	}

	go func() {
		logger.Info().Str("port", cfg.Indexer.Port).Str("env", cfg.App.Environment).Msg("indexer listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
