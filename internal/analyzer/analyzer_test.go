package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/walletlens/wallet-analyzer/internal/helius"
)

const (
	wallet   = "86xCnPeV69n6t3DnyGvkKobf9FdN2H9oiVDdaMpo2MMY"
	other    = "4Nd1mYvN9t4F8Xp2c1xkkeW2rCMiyPDzBzUJxoQ8Tqe1"
	mintSOL  = "So11111111111111111111111111111111111111112"
	mintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyB7uHod"
)

type fakeTxSource struct {
	txns    []helius.Transaction
	listErr error
	parsed  map[string]*helius.Transaction
}

func (f *fakeTxSource) RecentTransactions(_ context.Context, _ string) ([]helius.Transaction, error) {
	return f.txns, f.listErr
}

func (f *fakeTxSource) ParsedTransaction(_ context.Context, signature string) (*helius.Transaction, error) {
	tx, ok := f.parsed[signature]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

type priceCall struct {
	token string
	ts    int64
}

type fakePrices struct {
	mu     sync.Mutex
	calls  []priceCall
	prices map[string]float64
}

func (f *fakePrices) PriceAt(_ context.Context, token string, ts int64) float64 {
	f.mu.Lock()
	f.calls = append(f.calls, priceCall{token, ts})
	f.mu.Unlock()
	return f.prices[token]
}

func (f *fakePrices) CurrentPrice(_ context.Context, token string) float64 {
	return f.prices[token]
}

func (f *fakePrices) callsFor(token string) []priceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []priceCall
	for _, c := range f.calls {
		if c.token == token {
			out = append(out, c)
		}
	}
	return out
}

func transferTx(sig string, ts int64, from string, fromAmt float64, to string, toAmt float64) helius.Transaction {
	return helius.Transaction{
		Signature: sig,
		Timestamp: ts,
		TokenTransfers: []helius.TokenTransfer{
			{FromUserAccount: wallet, ToUserAccount: other, Mint: from, TokenAmount: fromAmt},
			{FromUserAccount: other, ToUserAccount: wallet, Mint: to, TokenAmount: toAmt},
		},
	}
}

func TestAnalyzeWallet_SourceFailureIsFatal(t *testing.T) {
	txs := &fakeTxSource{listErr: errors.New("upstream exploded")}
	svc := New(txs, &fakePrices{}, 0, zap.NewNop())

	_, err := svc.AnalyzeWallet(context.Background(), wallet)
	if err == nil {
		t.Fatal("expected a hard failure when the transaction source fails")
	}
}

func TestAnalyzeWallet_NoSwapsYieldsEmptyResult(t *testing.T) {
	txs := &fakeTxSource{} // no transactions at all
	svc := New(txs, &fakePrices{}, 0, zap.NewNop())

	result, err := svc.AnalyzeWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("AnalyzeWallet() error = %v", err)
	}
	if len(result.TradeLedger) != 0 || len(result.ChartData) != 0 || len(result.PnL) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if result.WalletAddress != wallet {
		t.Errorf("wallet address = %q, want %q", result.WalletAddress, wallet)
	}
}

func TestAnalyzeWallet_ExecutionDelayAppliedToBuyLeg(t *testing.T) {
	now := time.Now().Unix()
	txs := &fakeTxSource{txns: []helius.Transaction{
		transferTx("s1", now-3600, mintSOL, 2, mintUSDC, 280),
	}}
	prices := &fakePrices{prices: map[string]float64{mintSOL: 140, mintUSDC: 1}}

	svc := New(txs, prices, 60*time.Second, zap.NewNop())
	if _, err := svc.AnalyzeWallet(context.Background(), wallet); err != nil {
		t.Fatalf("AnalyzeWallet() error = %v", err)
	}

	fromCalls := prices.callsFor(mintSOL)
	if len(fromCalls) != 1 || fromCalls[0].ts != now-3600 {
		t.Errorf("from-leg priced at %+v, want swap time %d", fromCalls, now-3600)
	}
	// The buy leg is priced one execution delay after the swap. The USDC
	// position stays open, so CurrentPrice is also consulted; only PriceAt
	// calls are recorded here.
	toCalls := prices.callsFor(mintUSDC)
	if len(toCalls) != 1 || toCalls[0].ts != now-3600+60 {
		t.Errorf("to-leg priced at %+v, want swap time + 60s = %d", toCalls, now-3600+60)
	}
}

func TestAnalyzeWallet_SwapsProcessedInTimestampOrder(t *testing.T) {
	now := time.Now().Unix()
	// Listed newest-first, as transaction histories usually are.
	txs := &fakeTxSource{txns: []helius.Transaction{
		transferTx("newer", now-100, mintUSDC, 140, mintSOL, 1),
		transferTx("older", now-3600, mintSOL, 2, mintUSDC, 280),
	}}
	prices := &fakePrices{prices: map[string]float64{mintSOL: 140, mintUSDC: 1}}

	svc := New(txs, prices, 0, zap.NewNop())
	result, err := svc.AnalyzeWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("AnalyzeWallet() error = %v", err)
	}

	if len(result.TradeLedger) != 2 {
		t.Fatalf("ledger has %d entries, want 2", len(result.TradeLedger))
	}
	if result.TradeLedger[0].Signature != "older" || result.TradeLedger[1].Signature != "newer" {
		t.Errorf("ledger order = %s, %s; want older, newer",
			result.TradeLedger[0].Signature, result.TradeLedger[1].Signature)
	}
}

func TestAnalyzeWallet_MillisecondTimestampsNormalized(t *testing.T) {
	txs := &fakeTxSource{txns: []helius.Transaction{
		transferTx("ms", 1700000000000, mintSOL, 2, mintUSDC, 280),
	}}
	prices := &fakePrices{prices: map[string]float64{}}

	svc := New(txs, prices, 0, zap.NewNop())
	result, err := svc.AnalyzeWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("AnalyzeWallet() error = %v", err)
	}

	if got := result.TradeLedger[0].Timestamp; got != 1700000000 {
		t.Errorf("ledger timestamp = %d, want normalized 1700000000", got)
	}
	// Prices must be requested for the normalized instant, not the raw one.
	calls := prices.callsFor(mintSOL)
	if len(calls) != 1 || calls[0].ts != 1700000000 {
		t.Errorf("from-leg priced at %+v, want 1700000000", calls)
	}
}

func TestAnalyzeWallet_RPCFallbackWhenHistoryHasNoSwaps(t *testing.T) {
	now := time.Now().Unix()
	snapshot := helius.Transaction{
		BlockTime: now - 3600,
		Inner:     &helius.SignedTx{Signatures: []string{"sig-rpc"}},
		Meta: &helius.TxMeta{
			PreTokenBalances: []helius.TokenBalance{
				{Owner: wallet, Mint: mintSOL, UITokenAmount: helius.UITokenAmount{UIAmount: 10}},
			},
			PostTokenBalances: []helius.TokenBalance{
				{Owner: wallet, Mint: mintSOL, UITokenAmount: helius.UITokenAmount{UIAmount: 8}},
				{Owner: wallet, Mint: mintUSDC, UITokenAmount: helius.UITokenAmount{UIAmount: 280}},
			},
		},
	}

	txs := &fakeTxSource{
		// History entries carry signatures but no recognizable swap shape.
		txns: []helius.Transaction{
			{Signature: "sig-rpc"},
			{Signature: "sig-unknown"},
		},
		parsed: map[string]*helius.Transaction{"sig-rpc": &snapshot},
	}
	prices := &fakePrices{prices: map[string]float64{mintSOL: 140, mintUSDC: 1}}

	svc := New(txs, prices, 0, zap.NewNop())
	result, err := svc.AnalyzeWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("AnalyzeWallet() error = %v", err)
	}

	// sig-unknown's RPC fetch fails; the request still succeeds with the
	// one parseable swap.
	if len(result.TradeLedger) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(result.TradeLedger))
	}
	if result.TradeLedger[0].Signature != "sig-rpc" {
		t.Errorf("ledger signature = %q, want sig-rpc", result.TradeLedger[0].Signature)
	}
}
