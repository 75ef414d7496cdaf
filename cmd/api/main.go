package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tutorai/tutorai-backend/config"
	"github.com/tutorai/tutorai-backend/internal/bootstrap"
	"github.com/tutorai/tutorai-backend/internal/indexerclient"
	"github.com/tutorai/tutorai-backend/internal/llm"
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

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	generator, err := llm.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.ChatModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("create gemini generator")
	}

	indexer := indexerclient.New(cfg.Indexer.BaseURL)

	if err := os.MkdirAll(cfg.Indexer.UploadDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Indexer.UploadDir).Msg("create upload dir")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "tutorai-api",
		Cfg:         cfg,
		DB:          db,
		Redis:       rdb,
		Retriever:   indexer,
		Generator:   generator,
		Indexer:     indexer,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("env", cfg.App.Environment).Msg("api listening")
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
