// Package engine turns an ordered swap stream into cost-basis positions,
// a trade ledger, windowed PnL summaries and a cumulative chart series.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CurrentPricer values open positions "as of now". A zero price means the
// price is unavailable and the position is valued at zero.
type CurrentPricer interface {
	CurrentPrice(ctx context.Context, token string) float64
}

// Engine computes PnL from priced swaps. Processing is strictly sequential:
// cost-basis correctness depends on swaps arriving in ascending normalized
// timestamp order, which is the caller's responsibility.
type Engine struct {
	pricer CurrentPricer
	log    *zap.Logger
}

// New creates a PnL engine backed by the given current-price source.
func New(pricer CurrentPricer, log *zap.Logger) *Engine {
	return &Engine{pricer: pricer, log: log}
}

var windows = []struct {
	name string
	dur  time.Duration
}{
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
	{"90d", 90 * 24 * time.Hour},
	{"all_time", 0},
}

// Run processes the swaps in order and assembles the full result.
func (e *Engine) Run(ctx context.Context, swaps []PricedSwap) *Result {
	positions := make(map[string]*Position)
	ledger := make([]LedgerEntry, 0, len(swaps))

	for _, s := range swaps {
		entry := LedgerEntry{
			Signature:  s.Signature,
			Timestamp:  s.Timestamp,
			Type:       "SWAP",
			FromToken:  s.FromToken,
			ToToken:    s.ToToken,
			FromAmount: s.FromAmount,
			ToAmount:   s.ToAmount,
			FromPrice:  s.FromPrice,
			ToPrice:    s.ToPrice,
		}

		// Sell leg: realize against the weighted-average cost basis, then
		// reduce the position. Over-selling clears the position rather than
		// going short.
		if pos, ok := positions[s.FromToken]; ok && pos.Amount > 0 {
			entry.RealizedPnL = (s.FromPrice - pos.AvgCostBasis) * s.FromAmount
			pos.TotalCost -= s.FromAmount * pos.AvgCostBasis
			pos.Amount -= s.FromAmount
			if pos.Amount <= 0 {
				*pos = Position{}
			}
		}

		// Buy leg: fold the acquisition into the average cost basis.
		pos, ok := positions[s.ToToken]
		if !ok {
			pos = &Position{}
			positions[s.ToToken] = pos
		}
		pos.Amount += s.ToAmount
		pos.TotalCost += s.ToAmount * s.ToPrice
		if pos.Amount > 0 {
			pos.AvgCostBasis = pos.TotalCost / pos.Amount
		} else {
			pos.AvgCostBasis = 0
		}

		entry.ProfitOrLoss = s.ToAmount*s.ToPrice - s.FromAmount*s.FromPrice
		ledger = append(ledger, entry)
	}

	unrealized := e.unrealizedPnL(ctx, positions)

	final := make(map[string]Position, len(positions))
	for token, pos := range positions {
		final[token] = *pos
	}

	return &Result{
		Ledger:     ledger,
		Positions:  final,
		Summary:    buildSummary(ledger, unrealized, time.Now()),
		Chart:      buildChart(ledger, unrealized),
		Unrealized: unrealized,
	}
}

// unrealizedPnL values every open position at the current price. This is a
// single "as of now" figure, not a windowed one.
func (e *Engine) unrealizedPnL(ctx context.Context, positions map[string]*Position) float64 {
	var total float64
	for token, pos := range positions {
		if pos.Amount <= 0 {
			continue
		}
		current := e.pricer.CurrentPrice(ctx, token)
		total += (current - pos.AvgCostBasis) * pos.Amount
		e.log.Debug("valued open position",
			zap.String("token", token),
			zap.Float64("amount", pos.Amount),
			zap.Float64("avg_cost_basis", pos.AvgCostBasis),
			zap.Float64("current_price", current))
	}
	return total
}

// buildSummary aggregates per-trade PnL into the trailing windows. A trade
// counts only when its timestamp is valid and inside the window. The
// unrealized figure is not window-scoped; a window merely shows it when at
// least one of its entries qualifies.
func buildSummary(ledger []LedgerEntry, unrealized float64, now time.Time) map[string]WindowPnL {
	summary := make(map[string]WindowPnL, len(windows))
	for _, w := range windows {
		var cutoff int64
		if w.dur > 0 {
			cutoff = now.Add(-w.dur).Unix()
		}

		var realized float64
		entries := 0
		for _, entry := range ledger {
			if entry.Timestamp <= 0 {
				continue
			}
			if w.dur > 0 && entry.Timestamp <= cutoff {
				continue
			}
			realized += entry.ProfitOrLoss
			entries++
		}

		wp := WindowPnL{Realized: realized}
		if entries > 0 {
			wp.Unrealized = unrealized
		}
		summary[w.name] = wp
	}
	return summary
}

// buildChart emits one cumulative point per ledger entry, with the total
// unrealized PnL applied as a constant offset to every point. Entries with
// an invalid timestamp keep their slot but carry an empty label.
func buildChart(ledger []LedgerEntry, unrealized float64) []ChartPoint {
	chart := make([]ChartPoint, 0, len(ledger))
	var cumulative float64
	for _, entry := range ledger {
		cumulative += entry.ProfitOrLoss
		label := ""
		if entry.Timestamp > 0 {
			label = time.Unix(entry.Timestamp, 0).UTC().Format("2006-01-02 15:04")
		}
		chart = append(chart, ChartPoint{Date: label, PnL: cumulative + unrealized})
	}
	return chart
}
