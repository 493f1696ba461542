// Package parser recognizes token swaps inside heterogeneous raw
// transaction records.
package parser

import (
	"math"
	"strconv"

	"github.com/walletlens/wallet-analyzer/internal/helius"
)

// Swap is a single token-for-token exchange performed by the analyzed
// wallet. It is created once by Parse and immutable afterwards, except for
// timestamp normalization applied before use.
type Swap struct {
	Signature  string  `json:"signature"`
	Timestamp  int64   `json:"timestamp"`
	FromToken  string  `json:"from_token"`
	ToToken    string  `json:"to_token"`
	FromAmount float64 `json:"from_amount"`
	ToAmount   float64 `json:"to_amount"`
}

// Parse extracts a swap from a raw transaction record for the given wallet.
// The record's shapes are probed in decreasing order of confidence; the
// first shape yielding a valid swap wins. Malformed or unrecognized input
// returns nil, never an error.
func Parse(tx *helius.Transaction, wallet string) *Swap {
	if tx == nil || wallet == "" {
		return nil
	}

	for _, format := range tx.Formats() {
		var swap *Swap
		switch format {
		case helius.FormatSwapEvent:
			swap = fromSwapEvent(tx, wallet)
		case helius.FormatTokenTransfers:
			swap = fromTokenTransfers(tx, wallet)
		case helius.FormatBalanceSnapshot:
			swap = fromBalanceSnapshot(tx, wallet)
		}
		if swap != nil {
			return swap
		}
	}

	return nil
}

// fromSwapEvent handles the decoded events.swap shape. Only the first
// wallet-owned entry per side is taken; additional matches are discarded,
// so multi-leg swaps collapse to their first leg.
func fromSwapEvent(tx *helius.Transaction, wallet string) *Swap {
	event := tx.Events.Swap

	fromToken, fromAmount := walletSide(event.TokenInputs, wallet)
	toToken, toAmount := walletSide(event.TokenOutputs, wallet)

	if fromToken == "" || toToken == "" || fromToken == toToken {
		return nil
	}
	if fromAmount <= 0 || toAmount <= 0 {
		return nil
	}

	return &Swap{
		Signature:  tx.ID(),
		Timestamp:  tx.UnixTime(),
		FromToken:  fromToken,
		ToToken:    toToken,
		FromAmount: fromAmount,
		ToAmount:   toAmount,
	}
}

// walletSide returns the mint and decimal-adjusted amount of the first
// entry owned by the wallet.
func walletSide(tokens []helius.SwapToken, wallet string) (string, float64) {
	for _, t := range tokens {
		if t.UserAccount != wallet {
			continue
		}
		return t.Mint, adjustedAmount(t.RawTokenAmount)
	}
	return "", 0
}

// adjustedAmount converts a raw integer amount and its declared decimal
// count into human-readable units.
func adjustedAmount(raw helius.RawTokenAmount) float64 {
	val, err := strconv.ParseFloat(raw.TokenAmount, 64)
	if err != nil {
		return 0
	}
	if raw.Decimals > 0 {
		val = val / math.Pow(10, float64(raw.Decimals))
	}
	return val
}

// fromTokenTransfers handles the flat token-transfer list shape. Transfers
// are grouped per mint into a decreased set (wallet is sender) and an
// increased set (wallet is receiver). Exactly one mint per side is accepted;
// anything else, including true multi-hop swaps, is rejected.
func fromTokenTransfers(tx *helius.Transaction, wallet string) *Swap {
	decreased := make(map[string]float64)
	increased := make(map[string]float64)

	for _, t := range tx.TokenTransfers {
		if t.FromUserAccount == wallet {
			decreased[t.Mint] += t.TokenAmount
		}
		if t.ToUserAccount == wallet {
			increased[t.Mint] += t.TokenAmount
		}
	}

	return swapFromSides(tx, decreased, increased)
}

// fromBalanceSnapshot handles the pre/post balance shape of RPC parsed
// transactions. Failed transactions are skipped.
func fromBalanceSnapshot(tx *helius.Transaction, wallet string) *Swap {
	meta := tx.Meta
	if meta.Failed() {
		return nil
	}

	pre := ownedBalances(meta.PreTokenBalances, wallet)
	post := ownedBalances(meta.PostTokenBalances, wallet)

	decreased := make(map[string]float64)
	increased := make(map[string]float64)

	for mint := range union(pre, post) {
		delta := post[mint] - pre[mint]
		switch {
		case delta < 0:
			decreased[mint] = -delta
		case delta > 0:
			increased[mint] = delta
		}
	}

	return swapFromSides(tx, decreased, increased)
}

// swapFromSides applies the single-decrease/single-increase acceptance rule
// shared by the transfer-list and balance-snapshot shapes.
func swapFromSides(tx *helius.Transaction, decreased, increased map[string]float64) *Swap {
	if len(decreased) != 1 || len(increased) != 1 {
		return nil
	}

	var fromToken, toToken string
	var fromAmount, toAmount float64
	for mint, amount := range decreased {
		fromToken, fromAmount = mint, amount
	}
	for mint, amount := range increased {
		toToken, toAmount = mint, amount
	}

	if fromToken == toToken || fromAmount <= 0 || toAmount <= 0 {
		return nil
	}

	return &Swap{
		Signature:  tx.ID(),
		Timestamp:  tx.UnixTime(),
		FromToken:  fromToken,
		ToToken:    toToken,
		FromAmount: fromAmount,
		ToAmount:   toAmount,
	}
}

func ownedBalances(balances []helius.TokenBalance, wallet string) map[string]float64 {
	owned := make(map[string]float64)
	for _, b := range balances {
		if b.Owner == wallet {
			owned[b.Mint] = b.UITokenAmount.UIAmount
		}
	}
	return owned
}

func union(a, b map[string]float64) map[string]struct{} {
	mints := make(map[string]struct{}, len(a)+len(b))
	for mint := range a {
		mints[mint] = struct{}{}
	}
	for mint := range b {
		mints[mint] = struct{}{}
	}
	return mints
}
