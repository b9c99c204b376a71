// Package httpx provides the outbound HTTP client used for example-page
// fetching and HTTP-backed LLM providers: resty on a retryable
// transport, rate limited, guarded by a circuit breaker.
package httpx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/planwright/planwright/internal/resilience"
)

const defaultUserAgent = "planwright/1.0 (+https://github.com/planwright/planwright)"

// Client wraps resty with rate limiting and circuit breaker protection.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	mu      sync.RWMutex
}

// Options configures a Client.
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	MinWait     time.Duration
	MaxWait     time.Duration
	RatePerSec  float64 // <=0 means unlimited
	BreakerName string
}

// DefaultOptions mirrors the retry policy attached to plans: 3 retries,
// 1s to 30s backoff.
func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		MinWait:     1 * time.Second,
		MaxWait:     30 * time.Second,
		RatePerSec:  0,
		BreakerName: "http-external",
	}
}

// New creates a production-ready client.
func New(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = opts.MinWait
	retryClient.RetryWaitMax = opts.MaxWait
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)+1)
	}

	breaker := resilience.New(opts.BreakerName, resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// External hosts vary in reliability; trip only on sustained failure.
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// Request creates a new request after passing the rate limiter and the
// breaker's admission check.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if c.breaker.State() == resilience.StateOpen {
		return nil, resilience.ErrCircuitOpen
	}

	// Snapshot the limiter; SetRateLimit may swap it concurrently and
	// the wait must not hold the lock.
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resty.R().SetContext(ctx), nil
}

// FetchHTML retrieves a page body as a string. Non-2xx responses are
// errors so batch fetchers can record per-URL failures.
func (c *Client) FetchHTML(ctx context.Context, url string) (string, error) {
	req, err := c.Request(ctx)
	if err != nil {
		return "", err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := req.Get(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// SetRateLimit reconfigures the request rate (requests per second).
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

// SetHeader adds a default header to every request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resty.SetHeader(key, value)
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
