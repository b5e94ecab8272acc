package solanarpc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

const (
	defaultCallTimeout    = 30 * time.Second
	connectionTestTimeout = 5 * time.Second
	latencyWindow         = 10
)

// Health is the endpoint's current classification, per spec §3.
type Health string

const (
	HealthHealthy     Health = "healthy"
	HealthDegraded    Health = "degraded"
	HealthUnreachable Health = "unreachable"
)

// EndpointConfig seeds one pool client, mirroring the Python EndpointConfig
// dataclass in original_source/backend/app/utils/solana_response.py.
type EndpointConfig struct {
	URL               string
	RequestsPerSecond float64
	BurstLimit        int
	MaxRetries        int
	RetryDelay        time.Duration
	Priority          int
}

// Client owns the transport for one configured endpoint (C2). It exposes a
// single primitive, Call, and tracks rolling latency and error counts the
// pool uses to rank it.
type Client struct {
	cfg       EndpointConfig
	transport *rpc.Client
	rateLimit *rateLimitState

	mu         sync.Mutex
	health     Health
	errorCount int
	latencies  []time.Duration
	lastUsed   time.Time
}

// NewClient dials the endpoint's JSON-RPC transport over an HTTP client
// wrapped in headerCapturingTransport, so the Rate-Limit Tracker's
// header-derived counters (§4.1) are kept current on every live call instead
// of only in tests. Dialing establishes the HTTP round-tripper only; Connect
// performs the liveness probe required before the pool admits the client to
// its healthy set.
func NewClient(ctx context.Context, cfg EndpointConfig) (*Client, error) {
	rateLimit := newRateLimitStateWithBudget(cfg.RequestsPerSecond, cfg.BurstLimit)

	httpClient := &http.Client{
		Transport: &headerCapturingTransport{base: http.DefaultTransport, rateLimit: rateLimit},
	}
	transport, err := rpc.DialHTTPWithClient(cfg.URL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		rateLimit: rateLimit,
		health:    HealthDegraded,
	}, nil
}

// headerCapturingTransport applies every response's x-ratelimit-* and
// retry-after headers to the endpoint's rate-limit state. go-ethereum's
// rpc.Client never surfaces the underlying HTTP response to its caller, so
// this is the only point where the header-driven half of the Rate-Limit
// Tracker (C1) can observe them.
type headerCapturingTransport struct {
	base      http.RoundTripper
	rateLimit *rateLimitState
}

func (t *headerCapturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	t.rateLimit.UpdateFromHeaders(resp.Header)
	if resp.StatusCode == http.StatusTooManyRequests {
		t.rateLimit.noteRetryAfterHint(resp.Header)
	}
	return resp, err
}

// Connect runs a cheap liveness probe (getSlot with a short timeout).
// Success is a prerequisite for admission to the pool's healthy set.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	if _, err := c.GetSlot(ctx, solana.CommitmentProcessed); err != nil {
		c.setHealth(HealthUnreachable)
		return fmt.Errorf("connect probe against %s: %w", c.cfg.URL, err)
	}
	c.setHealth(HealthHealthy)
	return nil
}

// Call issues one JSON-RPC request and records latency/error bookkeeping.
// On HTTP 429 it raises RateLimited carrying the retry-after hint; on
// transport/timeout it raises a retryable TransportError; JSON-RPC error
// objects are handed to Classify by the caller (the Query Layer), since
// classification needs call-specific context (e.g. which program a
// simulation failure refers to).
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	if c.rateLimit.ShouldBackoff(time.Now()) {
		return &solana.RPCError{Kind: solana.ErrRateLimited, Message: "endpoint in cooldown"}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	if err := c.rateLimit.WaitLocal(ctx); err != nil {
		return &solana.RPCError{Kind: solana.ErrRateLimited, Message: "local rate budget exhausted"}
	}

	id := uuid.NewString()
	start := time.Now()
	err := c.transport.CallContext(ctx, result, method, params...)
	elapsed := time.Since(start)

	c.recordLatency(elapsed)

	if err != nil {
		c.recordError()
		classified := classifyTransportErr(err, id)
		if classified.Kind == solana.ErrRateLimited {
			if hint := c.rateLimit.takeRetryAfterHint(); hint > 0 {
				classified.RetryAfter = hint.Seconds()
			}
		}
		return classified
	}
	return nil
}

func (c *Client) recordLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, d)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[len(c.latencies)-latencyWindow:]
	}
	c.lastUsed = time.Now()
}

func (c *Client) recordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}

func (c *Client) setHealth(h Health) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health = h
}

// AverageLatency is the arithmetic mean over the bounded sample window.
func (c *Client) AverageLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range c.latencies {
		sum += d
	}
	return sum / time.Duration(len(c.latencies))
}

// ErrorCount is the cumulative error counter used by the pool's selection
// rule (§4.3: fewest errors first, latency as tiebreaker).
func (c *Client) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorCount
}

// Health reports the endpoint's current health classification.
func (c *Client) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

// LastUsed reports the timestamp of the most recent completed call.
func (c *Client) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// touch records this client as just selected, ahead of the call that
// recordLatency will account for once it completes (spec §4.3 step 3: the
// pool's selection step itself updates last_used, not only a call's
// completion).
func (c *Client) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUsed = time.Now()
}

// URL returns the endpoint's configured URL, used as its pool key.
func (c *Client) URL() string { return c.cfg.URL }

// CooldownUntil reports when the endpoint becomes eligible for selection
// again, used by the pool's filtering step.
func (c *Client) CooldownUntil() time.Time {
	c.rateLimit.mu.Lock()
	defer c.rateLimit.mu.Unlock()
	return c.rateLimit.cooldownUntil
}

// MarkRateLimited forces a cooldown window on this client.
func (c *Client) MarkRateLimited(retryAfter time.Duration) {
	c.rateLimit.MarkCooldown(retryAfter)
	log.Warn("endpoint rate limited", "url", c.cfg.URL, "retryAfter", retryAfter)
}

// GetSlot is the one C5 operation implemented directly on Client because
// Connect's liveness probe needs it before a Client is wrapped by the pool.
func (c *Client) GetSlot(ctx context.Context, commitment solana.Commitment) (uint64, error) {
	var raw rawSlotResult
	if err := c.Call(ctx, &raw, "getSlot", map[string]any{"commitment": string(commitment)}); err != nil {
		return 0, err
	}
	return raw.slot()
}

func (c *Client) Close() {
	c.transport.Close()
}
