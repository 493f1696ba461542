package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/walletlens/wallet-analyzer/internal/analyzer"
	"github.com/walletlens/wallet-analyzer/internal/config"
	"github.com/walletlens/wallet-analyzer/internal/helius"
	"github.com/walletlens/wallet-analyzer/internal/pricing"
	"github.com/walletlens/wallet-analyzer/internal/server"
	"github.com/walletlens/wallet-analyzer/internal/summary"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var cache pricing.PriceCache = pricing.NewMemoryCache()
	if cfg.RedisAddr != "" {
		cache = pricing.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		logger.Info("using redis price cache", zap.String("addr", cfg.RedisAddr))
	}

	oracle := pricing.NewOracle(cfg.BirdeyeAPIKey, cfg.BirdeyeBaseURL, cache, logger)
	txSource := helius.NewClient(cfg.HeliusAPIKey, cfg.HeliusBaseURL, cfg.HeliusRPCURL, logger)
	service := analyzer.New(txSource, oracle, cfg.ExecutionDelay, logger)

	var summarizer server.ResultSummarizer
	if cfg.OpenAIAPIKey != "" {
		summarizer = summary.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("analysis summarizer enabled", zap.String("model", cfg.OpenAIModel))
	}

	handler := server.NewHandler(service, summarizer, logger)
	router := server.NewRouter(handler, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "time"

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}
