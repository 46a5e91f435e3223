package primitives

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// fetchConfig mirrors the teacher's RetryConfig shape
// (notifications/retry.go) generalized from notification delivery to
// outbound page/image fetches.
type fetchConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// FetchClient wraps *http.Client with per-host rate limiting
// (golang.org/x/time/rate) and bounded retry with exponential backoff,
// shared by the crawler, screenshot, and blur-image adapters so none of
// them hammer the same target independently.
type FetchClient struct {
	client  *http.Client
	cfg     fetchConfig
	mu      sync.Mutex
	limiter map[string]*rate.Limiter
	perHost rate.Limit
	burst   int
}

// NewFetchClient returns a client allowing ratePerSecond requests per
// host, bursting up to burst.
func NewFetchClient(ratePerSecond float64, burst int) *FetchClient {
	return &FetchClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		cfg:     defaultFetchConfig(),
		limiter: make(map[string]*rate.Limiter),
		perHost: rate.Limit(ratePerSecond),
		burst:   burst,
	}
}

func (f *FetchClient) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiter[host]
	if !ok {
		l = rate.NewLimiter(f.perHost, f.burst)
		f.limiter[host] = l
	}
	return l
}

// Get performs a rate-limited, retried GET, returning the response body
// and content type. Retries on body read errors, on transport errors
// whose message names a timeout, a refused connection or a temporary
// failure, and on 5xx/429 responses; gives up immediately on any other
// transport error and on 4xx other than 429.
func (f *FetchClient) Get(ctx context.Context, url string, host string) ([]byte, string, error) {
	limiter := f.limiterFor(host)

	var lastErr error
	delay := f.cfg.InitialDelay
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			if !shouldRetry(err, 0) {
				break
			}
			time.Sleep(backoff(delay, attempt, f.cfg))
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(backoff(delay, attempt, f.cfg))
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, resp.Header.Get("Content-Type"), nil
		}
		if !shouldRetry(nil, resp.StatusCode) {
			return nil, "", fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
		}
		lastErr = fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
		time.Sleep(backoff(delay, attempt, f.cfg))
	}
	return nil, "", lastErr
}

func shouldRetry(err error, statusCode int) bool {
	if err != nil {
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "temporary")
	}
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func backoff(initial time.Duration, attempt int, cfg fetchConfig) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}
