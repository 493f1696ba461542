// Command analyze runs a single wallet analysis from the command line and
// prints the result as JSON. Useful for poking at the pipeline without the
// HTTP layer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/walletlens/wallet-analyzer/internal/analyzer"
	"github.com/walletlens/wallet-analyzer/internal/config"
	"github.com/walletlens/wallet-analyzer/internal/helius"
	"github.com/walletlens/wallet-analyzer/internal/pricing"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: analyze <wallet_address>")
	}
	wallet := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	oracle := pricing.NewOracle(cfg.BirdeyeAPIKey, cfg.BirdeyeBaseURL, pricing.NewMemoryCache(), logger)
	txSource := helius.NewClient(cfg.HeliusAPIKey, cfg.HeliusBaseURL, cfg.HeliusRPCURL, logger)
	service := analyzer.New(txSource, oracle, cfg.ExecutionDelay, logger)

	result, err := service.AnalyzeWallet(context.Background(), wallet)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}
