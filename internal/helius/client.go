package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// pageSize is the maximum number of transactions per history API call.
	pageSize = 100
	// maxTransactions caps pagination so a hyperactive wallet cannot stall
	// the whole analysis request.
	maxTransactions = 500
)

// Client communicates with the Helius enhanced-transactions API and the
// JSON-RPC endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	rpcURL     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new Helius API client. rpcURL may be empty, in which
// case the shared endpoint derived from the API key is used for RPC calls.
func NewClient(apiKey, baseURL, rpcURL string, log *zap.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		rpcURL:  rpcURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// RecentTransactions retrieves the wallet's enhanced transaction history,
// paginating with the before-signature cursor up to maxTransactions records.
// Any upstream failure aborts the whole listing.
func (c *Client) RecentTransactions(ctx context.Context, address string) ([]Transaction, error) {
	var all []Transaction
	var beforeSig string

	for {
		batch, err := c.fetchPage(ctx, address, beforeSig)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		all = append(all, batch...)
		c.log.Debug("fetched transaction page",
			zap.String("address", address),
			zap.Int("batch", len(batch)),
			zap.Int("total", len(all)))

		if len(all) >= maxTransactions {
			break
		}

		beforeSig = batch[len(batch)-1].Signature
		if beforeSig == "" {
			break
		}
	}

	return all, nil
}

// fetchPage retrieves a single page of enhanced transactions.
func (c *Client) fetchPage(ctx context.Context, address, beforeSig string) ([]Transaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, address)

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("limit", fmt.Sprintf("%d", pageSize))
	if beforeSig != "" {
		params.Set("before", beforeSig)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("helius API returned status %d: %s", resp.StatusCode, string(body))
	}

	var txns []Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txns); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return txns, nil
}

// ParsedTransaction fetches a single transaction via the getParsedTransaction
// RPC. It tries the configured RPC URL first, then the shared endpoint.
func (c *Client) ParsedTransaction(ctx context.Context, signature string) (*Transaction, error) {
	candidates := c.rpcCandidates()

	var lastErr error
	for _, rpc := range candidates {
		tx, err := c.rpcGetParsedTransaction(ctx, rpc, signature)
		if err != nil {
			c.log.Warn("RPC candidate failed", zap.String("rpc", rpc), zap.Error(err))
			lastErr = err
			continue
		}
		return tx, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (c *Client) rpcCandidates() []string {
	shared := fmt.Sprintf("https://rpc.helius.xyz/?api-key=%s", c.apiKey)
	if c.rpcURL == "" || c.rpcURL == shared {
		return []string{shared}
	}
	return []string{c.rpcURL, shared}
}

func (c *Client) rpcGetParsedTransaction(ctx context.Context, rpc, signature string) (*Transaction, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "1",
		"method":  "getParsedTransaction",
		"params": []interface{}{
			signature,
			map[string]interface{}{"maxSupportedTransactionVersion": 0},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpc, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("RPC returned status %d: %s", resp.StatusCode, string(raw))
	}

	var rpcResp struct {
		Result *Transaction `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return rpcResp.Result, nil
}
