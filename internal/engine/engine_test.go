package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/walletlens/wallet-analyzer/internal/parser"
)

const (
	mintSOL  = "So11111111111111111111111111111111111111112"
	mintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyB7uHod"
	mintTOK  = "TokenMint1111111111111111111111111111111111"
)

// staticPricer returns fixed current prices; missing tokens price at 0.
type staticPricer map[string]float64

func (p staticPricer) CurrentPrice(_ context.Context, token string) float64 {
	return p[token]
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func priced(sig string, ts int64, from string, fromAmt, fromPrice float64, to string, toAmt, toPrice float64) PricedSwap {
	return PricedSwap{
		Swap: parser.Swap{
			Signature:  sig,
			Timestamp:  ts,
			FromToken:  from,
			ToToken:    to,
			FromAmount: fromAmt,
			ToAmount:   toAmt,
		},
		FromPrice: fromPrice,
		ToPrice:   toPrice,
	}
}

func TestRun_WeightedAverageCostBasis(t *testing.T) {
	// Buy 10 units at 1.0, then 10 more at 3.0: basis must land on 2.0.
	swaps := []PricedSwap{
		priced("s1", 1000, mintUSDC, 10, 1.0, mintTOK, 10, 1.0),
		priced("s2", 2000, mintUSDC, 30, 1.0, mintTOK, 10, 3.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	pos, ok := result.Positions[mintTOK]
	if !ok {
		t.Fatal("expected a position in the bought token")
	}
	if !approxEqual(pos.Amount, 20) {
		t.Errorf("amount held = %v, want 20", pos.Amount)
	}
	if !approxEqual(pos.AvgCostBasis, 2.0) {
		t.Errorf("average cost basis = %v, want 2.0", pos.AvgCostBasis)
	}
	if !approxEqual(pos.TotalCost, 40) {
		t.Errorf("total cost = %v, want 40", pos.TotalCost)
	}
}

func TestRun_OversellResetsPosition(t *testing.T) {
	swaps := []PricedSwap{
		// Buy 5 TOK at 2.0.
		priced("buy", 1000, mintUSDC, 10, 1.0, mintTOK, 5, 2.0),
		// Sell 10 TOK, more than held.
		priced("sell", 2000, mintTOK, 10, 2.5, mintUSDC, 25, 1.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	pos := result.Positions[mintTOK]
	if pos.Amount != 0 || pos.TotalCost != 0 || pos.AvgCostBasis != 0 {
		t.Errorf("oversold position = %+v, want all zero", pos)
	}

	// Realized PnL is still recognized against the basis for the full
	// sell quantity before the reset.
	if got := result.Ledger[1].RealizedPnL; !approxEqual(got, (2.5-2.0)*10) {
		t.Errorf("realized pnl = %v, want 5", got)
	}
}

func TestRun_SellWithNoInventoryRealizesNothing(t *testing.T) {
	swaps := []PricedSwap{
		priced("s1", 1000, mintSOL, 2, 140, mintUSDC, 280, 1.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	if got := result.Ledger[0].RealizedPnL; got != 0 {
		t.Errorf("realized pnl = %v, want 0 for a sell without inventory", got)
	}
	if got := result.Ledger[0].ProfitOrLoss; !approxEqual(got, 0) {
		t.Errorf("immediate pnl = %v, want 0", got)
	}
}

func TestRun_HandComputedRoundTrip(t *testing.T) {
	now := time.Now().Unix()
	t0, t1 := now-3600, now-1800

	swaps := []PricedSwap{
		// Swap 1: 2 SOL -> 280 USDC, SOL at 140, USDC at 1.
		priced("s1", t0, mintSOL, 2, 140, mintUSDC, 280, 1.0),
		// Swap 2: 140 USDC -> 1 SOL, USDC now at 1.02, SOL at 145.
		priced("s2", t1, mintUSDC, 140, 1.02, mintSOL, 1, 145),
	}

	pricer := staticPricer{mintSOL: 150, mintUSDC: 1.0}
	result := New(pricer, zap.NewNop()).Run(context.Background(), swaps)

	// Ledger arithmetic.
	if got := result.Ledger[0].ProfitOrLoss; !approxEqual(got, 0) {
		t.Errorf("swap1 immediate pnl = %v, want 0", got)
	}
	if got := result.Ledger[1].RealizedPnL; !approxEqual(got, (1.02-1.0)*140) {
		t.Errorf("swap2 realized pnl = %v, want 2.8", got)
	}
	if got := result.Ledger[1].ProfitOrLoss; !approxEqual(got, 145-140*1.02) {
		t.Errorf("swap2 immediate pnl = %v, want 2.2", got)
	}

	// Final positions: 1 SOL at basis 145, 140 USDC at basis 1.
	sol := result.Positions[mintSOL]
	if !approxEqual(sol.Amount, 1) || !approxEqual(sol.AvgCostBasis, 145) {
		t.Errorf("SOL position = %+v, want amount 1 basis 145", sol)
	}
	usdc := result.Positions[mintUSDC]
	if !approxEqual(usdc.Amount, 140) || !approxEqual(usdc.AvgCostBasis, 1.0) {
		t.Errorf("USDC position = %+v, want amount 140 basis 1", usdc)
	}

	// Unrealized: (150-145)*1 + (1-1)*140 = 5.
	if !approxEqual(result.Unrealized, 5) {
		t.Errorf("unrealized pnl = %v, want 5", result.Unrealized)
	}

	// Both trades are recent, so every window carries the same numbers.
	for _, name := range []string{"7d", "30d", "90d", "all_time"} {
		wp := result.Summary[name]
		if !approxEqual(wp.Realized, 2.2) {
			t.Errorf("window %s realized = %v, want 2.2", name, wp.Realized)
		}
		if !approxEqual(wp.Unrealized, 5) {
			t.Errorf("window %s unrealized = %v, want 5", name, wp.Unrealized)
		}
	}

	// Chart: cumulative immediate PnL with the unrealized offset baked in.
	if len(result.Chart) != 2 {
		t.Fatalf("chart has %d points, want 2", len(result.Chart))
	}
	if !approxEqual(result.Chart[0].PnL, 0+5) {
		t.Errorf("chart[0] = %v, want 5", result.Chart[0].PnL)
	}
	if !approxEqual(result.Chart[1].PnL, 2.2+5) {
		t.Errorf("chart[1] = %v, want 7.2", result.Chart[1].PnL)
	}
}

func TestRun_WindowBoundaries(t *testing.T) {
	now := time.Now().Unix()
	const week = 7 * 24 * 3600

	swaps := []PricedSwap{
		// One second inside the 7d window.
		priced("in", now-week+1, mintSOL, 1, 100, mintUSDC, 110, 1.0),
		// One second outside.
		priced("out", now-week-1, mintSOL, 1, 100, mintUSDC, 105, 1.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	if got := result.Summary["7d"].Realized; !approxEqual(got, 10) {
		t.Errorf("7d realized = %v, want only the inside trade's 10", got)
	}
	if got := result.Summary["30d"].Realized; !approxEqual(got, 15) {
		t.Errorf("30d realized = %v, want 15", got)
	}
	if got := result.Summary["all_time"].Realized; !approxEqual(got, 15) {
		t.Errorf("all_time realized = %v, want 15", got)
	}
}

func TestRun_InvalidTimestampExcludedButKeepsLedgerSlot(t *testing.T) {
	now := time.Now().Unix()
	swaps := []PricedSwap{
		priced("zero-ts", 0, mintSOL, 1, 100, mintUSDC, 120, 1.0),
		priced("recent", now-60, mintSOL, 1, 100, mintUSDC, 130, 1.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	if len(result.Ledger) != 2 {
		t.Fatalf("ledger has %d entries, want 2", len(result.Ledger))
	}
	if got := result.Summary["all_time"].Realized; !approxEqual(got, 30) {
		t.Errorf("all_time realized = %v, want 30 (zero-ts trade excluded)", got)
	}

	if len(result.Chart) != 2 {
		t.Fatalf("chart has %d points, want 2", len(result.Chart))
	}
	if result.Chart[0].Date != "" {
		t.Errorf("chart label for zero timestamp = %q, want empty", result.Chart[0].Date)
	}
	// The invalid entry still participates in the cumulative series.
	if !approxEqual(result.Chart[1].PnL, 20+30) {
		t.Errorf("chart[1] = %v, want 50", result.Chart[1].PnL)
	}
}

func TestRun_UnrealizedGatedByWindowActivity(t *testing.T) {
	now := time.Now().Unix()
	// The only trade is ~20 days old and leaves an open USDC position.
	swaps := []PricedSwap{
		priced("old", now-20*24*3600, mintSOL, 1, 100, mintUSDC, 100, 1.0),
	}

	pricer := staticPricer{mintUSDC: 1.1}
	result := New(pricer, zap.NewNop()).Run(context.Background(), swaps)

	want := (1.1 - 1.0) * 100
	if !approxEqual(result.Unrealized, want) {
		t.Fatalf("unrealized = %v, want %v", result.Unrealized, want)
	}

	// No entry inside 7d: the figure is gated off there, but shown in the
	// windows the trade falls in. It is not itself window-scoped.
	if got := result.Summary["7d"].Unrealized; got != 0 {
		t.Errorf("7d unrealized = %v, want 0 (no activity in window)", got)
	}
	for _, name := range []string{"30d", "90d", "all_time"} {
		if got := result.Summary[name].Unrealized; !approxEqual(got, want) {
			t.Errorf("%s unrealized = %v, want %v", name, got, want)
		}
	}
}

func TestRun_ZeroPriceMeansUnavailableNotFree(t *testing.T) {
	// A zero from-price flows through the arithmetic untouched; the engine
	// does not special-case it.
	swaps := []PricedSwap{
		priced("s1", 1000, mintSOL, 2, 0, mintUSDC, 280, 1.0),
	}

	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), swaps)

	if got := result.Ledger[0].ProfitOrLoss; !approxEqual(got, 280) {
		t.Errorf("immediate pnl = %v, want 280 with the missing price as 0", got)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	result := New(staticPricer{}, zap.NewNop()).Run(context.Background(), nil)

	if len(result.Ledger) != 0 || len(result.Chart) != 0 {
		t.Error("empty input should produce empty ledger and chart")
	}
	for _, name := range []string{"7d", "30d", "90d", "all_time"} {
		wp, ok := result.Summary[name]
		if !ok {
			t.Errorf("summary missing window %s", name)
		}
		if wp.Realized != 0 || wp.Unrealized != 0 {
			t.Errorf("window %s = %+v, want zeros", name, wp)
		}
	}
}
