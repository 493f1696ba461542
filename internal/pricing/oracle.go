// Package pricing resolves token prices at points in time against the
// Birdeye API, with minute-bucket caching and bounded upstream concurrency.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// bucketSeconds is the cache granularity. Timestamps are floored to the
	// enclosing minute before any lookup, raising hit rate and bounding
	// upstream call volume.
	bucketSeconds = 60
	// windowSeconds is the width of the historical query window.
	windowSeconds = 120
	// maxAttempts bounds the historical-lookup retry loop.
	maxAttempts = 3
	// maxConcurrentCalls is the process-wide admission limit on outbound
	// upstream calls.
	maxConcurrentCalls = 2

	historyTimeout = 15 * time.Second
	spotTimeout    = 10 * time.Second
)

// Oracle resolves token prices. A zero result means "unavailable", not
// "free": callers must treat it as missing data. Network and rate-limit
// failures never escalate to the caller.
type Oracle struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      PriceCache
	gate       *semaphore.Weighted
	log        *zap.Logger
}

// NewOracle creates a price oracle client owning its cache and admission
// gate. Passing a shared cache lets independently configured clients reuse
// each other's lookups.
func NewOracle(apiKey, baseURL string, cache PriceCache, log *zap.Logger) *Oracle {
	return &Oracle{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: historyTimeout},
		cache:      cache,
		gate:       semaphore.NewWeighted(maxConcurrentCalls),
		log:        log,
	}
}

// PriceAt returns the token's price at the given unix timestamp, floored to
// its minute bucket. The historical endpoint is tried first with retries;
// on a definitive miss the current spot price stands in and is cached under
// the same bucket.
func (o *Oracle) PriceAt(ctx context.Context, token string, ts int64) float64 {
	bucket := (ts / bucketSeconds) * bucketSeconds

	if price, ok := o.cache.Get(ctx, token, bucket); ok {
		cacheHits.Inc()
		return price
	}
	cacheMisses.Inc()

	if err := o.gate.Acquire(ctx, 1); err != nil {
		return 0
	}
	defer o.gate.Release(1)

	if price, ok := o.historyPrice(ctx, token, bucket); ok {
		o.cache.Put(ctx, token, bucket, price)
		return price
	}

	if price, ok := o.spotPrice(ctx, token); ok {
		o.cache.Put(ctx, token, bucket, price)
		return price
	}

	return 0
}

// CurrentPrice returns the token's spot price, cached under the current
// minute bucket. Used to value open positions "as of now".
func (o *Oracle) CurrentPrice(ctx context.Context, token string) float64 {
	bucket := (time.Now().Unix() / bucketSeconds) * bucketSeconds

	if price, ok := o.cache.Get(ctx, token, bucket); ok {
		cacheHits.Inc()
		return price
	}
	cacheMisses.Inc()

	if err := o.gate.Acquire(ctx, 1); err != nil {
		return 0
	}
	defer o.gate.Release(1)

	if price, ok := o.spotPrice(ctx, token); ok {
		o.cache.Put(ctx, token, bucket, price)
		return price
	}
	return 0
}

// historyPrice queries the minute-candle history endpoint for the bucket's
// window. Rate limits and server errors are retried with backoff; any other
// client error or a well-formed empty response aborts immediately so the
// caller can fall back to the spot price.
func (o *Oracle) historyPrice(ctx context.Context, token string, bucket int64) (float64, bool) {
	params := url.Values{}
	params.Set("address", token)
	params.Set("type", "1m")
	params.Set("time_from", fmt.Sprintf("%d", bucket))
	params.Set("time_to", fmt.Sprintf("%d", bucket+windowSeconds))
	endpoint := o.baseURL + "/defi/history_price?" + params.Encode()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := o.doGet(ctx, endpoint)
		if err != nil {
			upstreamCalls.WithLabelValues("history", "transport_error").Inc()
			o.log.Warn("history price request failed",
				zap.String("token", token), zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(300 * time.Millisecond)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			upstreamCalls.WithLabelValues("history", "rate_limited").Inc()
			wait := time.Duration((0.5*float64(attempt) + rand.Float64()*0.5) * float64(time.Second))
			o.log.Warn("history price rate-limited",
				zap.String("token", token), zap.Int("attempt", attempt), zap.Duration("backoff", wait))
			time.Sleep(wait)
			continue

		case resp.StatusCode >= 500:
			resp.Body.Close()
			upstreamCalls.WithLabelValues("history", "server_error").Inc()
			time.Sleep(time.Duration(0.5*float64(attempt)*float64(time.Second)))
			continue

		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			upstreamCalls.WithLabelValues("history", "client_error").Inc()
			o.log.Warn("history price rejected",
				zap.String("token", token), zap.Int("status", resp.StatusCode))
			return 0, false
		}

		var body struct {
			Success bool `json:"success"`
			Data    struct {
				Items []struct {
					UnixTime int64   `json:"unixTime"`
					Value    float64 `json:"value"`
				} `json:"items"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			upstreamCalls.WithLabelValues("history", "transport_error").Inc()
			time.Sleep(300 * time.Millisecond)
			continue
		}

		if body.Success && len(body.Data.Items) > 0 {
			upstreamCalls.WithLabelValues("history", "success").Inc()
			return body.Data.Items[0].Value, true
		}

		// Well-formed response with no sample for this window.
		upstreamCalls.WithLabelValues("history", "no_data").Inc()
		return 0, false
	}

	return 0, false
}

// spotPrice issues a single current-price request. A rate limit here is
// terminal; so is any other failure.
func (o *Oracle) spotPrice(ctx context.Context, token string) (float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, spotTimeout)
	defer cancel()

	resp, err := o.doGet(ctx, o.baseURL+"/defi/price?address="+url.QueryEscape(token))
	if err != nil {
		upstreamCalls.WithLabelValues("spot", "transport_error").Inc()
		o.log.Warn("spot price request failed", zap.String("token", token), zap.Error(err))
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		upstreamCalls.WithLabelValues("spot", "rate_limited").Inc()
		o.log.Warn("spot price rate-limited, giving up", zap.String("token", token))
		return 0, false
	}
	if resp.StatusCode != http.StatusOK {
		upstreamCalls.WithLabelValues("spot", "error").Inc()
		return 0, false
	}

	var body struct {
		Success bool `json:"success"`
		Data    *struct {
			Value float64 `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		upstreamCalls.WithLabelValues("spot", "error").Inc()
		return 0, false
	}

	if !body.Success || body.Data == nil {
		upstreamCalls.WithLabelValues("spot", "no_data").Inc()
		return 0, false
	}

	upstreamCalls.WithLabelValues("spot", "success").Inc()
	return body.Data.Value, true
}

func (o *Oracle) doGet(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", o.apiKey)
	req.Header.Set("x-chain", "solana")
	return o.httpClient.Do(req)
}
