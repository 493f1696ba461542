// Package analyzer orchestrates one wallet-analysis request end to end:
// fetch raw transactions, parse swaps, resolve prices, run the PnL engine.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletlens/wallet-analyzer/internal/engine"
	"github.com/walletlens/wallet-analyzer/internal/helius"
	"github.com/walletlens/wallet-analyzer/internal/parser"
)

// rpcFallbackLimit caps the per-signature RPC fan-out when the enhanced
// history yields no swaps.
const rpcFallbackLimit = 100

// DefaultExecutionDelay models the latency between observing a trade and
// replicating it: the to-token is priced this long after the swap.
const DefaultExecutionDelay = 60 * time.Second

// TransactionSource lists a wallet's transactions and resolves single ones
// by id.
type TransactionSource interface {
	RecentTransactions(ctx context.Context, address string) ([]helius.Transaction, error)
	ParsedTransaction(ctx context.Context, signature string) (*helius.Transaction, error)
}

// PriceSource resolves historical and current token prices. Zero means
// unavailable.
type PriceSource interface {
	PriceAt(ctx context.Context, token string, ts int64) float64
	CurrentPrice(ctx context.Context, token string) float64
}

// Service wires the parser, price oracle and engine together.
type Service struct {
	txs       TransactionSource
	prices    PriceSource
	execDelay time.Duration
	log       *zap.Logger
}

// New creates an analyzer service. A non-positive execDelay falls back to
// DefaultExecutionDelay.
func New(txs TransactionSource, prices PriceSource, execDelay time.Duration, log *zap.Logger) *Service {
	if execDelay <= 0 {
		execDelay = DefaultExecutionDelay
	}
	return &Service{txs: txs, prices: prices, execDelay: execDelay, log: log}
}

// Analysis is the produced result for one wallet.
type Analysis struct {
	WalletAddress string                      `json:"wallet_address"`
	PnL           map[string]engine.WindowPnL `json:"pnl"`
	ChartData     []engine.ChartPoint         `json:"chart_data"`
	TradeLedger   []engine.LedgerEntry        `json:"trade_ledger"`
}

// AnalyzeWallet runs the full pipeline for one wallet. A transaction-source
// failure fails the whole request; price failures degrade to zero prices.
func (s *Service) AnalyzeWallet(ctx context.Context, wallet string) (*Analysis, error) {
	log := s.log.With(zap.String("request_id", uuid.NewString()), zap.String("wallet", wallet))

	swaps, err := s.collectSwaps(ctx, wallet, log)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions for %s: %w", wallet, err)
	}

	if len(swaps) == 0 {
		log.Info("no swaps found")
		return &Analysis{
			WalletAddress: wallet,
			PnL:           map[string]engine.WindowPnL{},
			ChartData:     []engine.ChartPoint{},
			TradeLedger:   []engine.LedgerEntry{},
		}, nil
	}

	for i := range swaps {
		swaps[i].Timestamp = engine.NormalizeTimestamp(swaps[i].Timestamp)
	}
	sort.SliceStable(swaps, func(i, j int) bool {
		return swaps[i].Timestamp < swaps[j].Timestamp
	})

	priced := s.resolvePrices(ctx, swaps)
	log.Info("priced swaps", zap.Int("count", len(priced)))

	result := engine.New(s.prices, s.log).Run(ctx, priced)

	return &Analysis{
		WalletAddress: wallet,
		PnL:           result.Summary,
		ChartData:     result.Chart,
		TradeLedger:   result.Ledger,
	}, nil
}

// collectSwaps parses the enhanced history; if it yields nothing, a bounded
// per-signature RPC fan-out takes over. Individual RPC failures are logged
// and skipped.
func (s *Service) collectSwaps(ctx context.Context, wallet string, log *zap.Logger) ([]parser.Swap, error) {
	txns, err := s.txs.RecentTransactions(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var swaps []parser.Swap
	for i := range txns {
		if swap := parser.Parse(&txns[i], wallet); swap != nil {
			swaps = append(swaps, *swap)
		}
	}
	if len(swaps) > 0 {
		log.Info("parsed swaps from enhanced history", zap.Int("count", len(swaps)))
		return swaps, nil
	}

	signatures := make([]string, 0, rpcFallbackLimit)
	for i := range txns {
		if sig := txns[i].ID(); sig != "" {
			signatures = append(signatures, sig)
			if len(signatures) == rpcFallbackLimit {
				break
			}
		}
	}

	results := make([]*parser.Swap, len(signatures))
	var wg sync.WaitGroup
	for i, sig := range signatures {
		wg.Add(1)
		go func(i int, sig string) {
			defer wg.Done()
			tx, err := s.txs.ParsedTransaction(ctx, sig)
			if err != nil {
				log.Warn("fetching parsed transaction failed", zap.String("signature", sig), zap.Error(err))
				return
			}
			if tx != nil {
				results[i] = parser.Parse(tx, wallet)
			}
		}(i, sig)
	}
	wg.Wait()

	for _, swap := range results {
		if swap != nil {
			swaps = append(swaps, *swap)
		}
	}
	log.Info("parsed swaps via RPC fallback", zap.Int("count", len(swaps)))
	return swaps, nil
}

// resolvePrices fans out both lookups of every swap concurrently and
// barriers until all resolve. True upstream concurrency stays bounded by
// the oracle's admission gate.
func (s *Service) resolvePrices(ctx context.Context, swaps []parser.Swap) []engine.PricedSwap {
	delay := int64(s.execDelay / time.Second)

	priced := make([]engine.PricedSwap, len(swaps))
	var wg sync.WaitGroup
	for i := range swaps {
		priced[i].Swap = swaps[i]

		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			priced[i].FromPrice = s.prices.PriceAt(ctx, swaps[i].FromToken, swaps[i].Timestamp)
		}(i)
		go func(i int) {
			defer wg.Done()
			priced[i].ToPrice = s.prices.PriceAt(ctx, swaps[i].ToToken, swaps[i].Timestamp+delay)
		}(i)
	}
	wg.Wait()

	return priced
}
