package engine

import "github.com/walletlens/wallet-analyzer/internal/parser"

// PricedSwap is a parsed swap with both legs priced: the from-token at swap
// time, the to-token at swap time plus the simulated execution delay.
type PricedSwap struct {
	parser.Swap
	FromPrice float64
	ToPrice   float64
}

// Position tracks the weighted-average cost basis of one held token.
// AvgCostBasis equals TotalCost / Amount whenever Amount is positive.
type Position struct {
	Amount       float64 `json:"amount"`
	TotalCost    float64 `json:"total_cost"`
	AvgCostBasis float64 `json:"avg_cost_basis"`
}

// LedgerEntry is one per-swap record of the trade ledger. ProfitOrLoss is
// the instantaneous value delta of the swap itself; RealizedPnL is the
// cost-basis profit recognized on the sell leg, zero when the wallet held
// no prior inventory.
type LedgerEntry struct {
	Signature    string  `json:"signature"`
	Timestamp    int64   `json:"timestamp"`
	Type         string  `json:"type"`
	FromToken    string  `json:"from_token"`
	ToToken      string  `json:"to_token"`
	FromAmount   float64 `json:"from_amount"`
	ToAmount     float64 `json:"to_amount"`
	FromPrice    float64 `json:"from_price"`
	ToPrice      float64 `json:"to_price"`
	ProfitOrLoss float64 `json:"profit_or_loss"`
	RealizedPnL  float64 `json:"realized_pnl"`
}

// WindowPnL is the realized/unrealized pair reported for one trailing
// window.
type WindowPnL struct {
	Realized   float64 `json:"realized"`
	Unrealized float64 `json:"unrealized"`
}

// ChartPoint is one cumulative-PnL sample per ledger entry.
type ChartPoint struct {
	Date string  `json:"date"`
	PnL  float64 `json:"pnl"`
}

// Result bundles everything the engine produces for one wallet.
type Result struct {
	Ledger     []LedgerEntry
	Positions  map[string]Position
	Summary    map[string]WindowPnL
	Chart      []ChartPoint
	Unrealized float64
}
