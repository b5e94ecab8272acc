package solanarpc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/shubhamdubey02/solana-telemetry/internal/metrics"
)

// DefaultMinHealthy is the minimum number of endpoints Initialize requires
// before it considers the pool ready, per spec §4.3.
const DefaultMinHealthy = 2

// DefaultMaxInFlight bounds the pool's total concurrent outstanding calls
// across all endpoints, independent of any single endpoint's own rate
// budget. Mirrors the teacher's activeAppRequests bound in
// peer/network.go, generalized from per-peer to per-pool.
const DefaultMaxInFlight = 64

// Pool maintains the set of configured endpoints and selects the best
// client for each caller. Selection is serialized by mu; the chosen
// client's own I/O is never performed while mu is held (spec §5: "guarded
// ... only during selection and bookkeeping updates, never across I/O").
type Pool struct {
	mu         sync.Mutex
	clients    []*Client // priority order, as configured
	minHealthy int

	inFlight *semaphore.Weighted
	metrics  *metrics.Registry
}

// SetMetrics attaches a Prometheus registry for endpoint selection/error
// counters and the healthy-endpoint gauge. Optional; a Pool never bound to
// one behaves exactly as before.
func (p *Pool) SetMetrics(reg *metrics.Registry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = reg
}

// NewPool constructs an (uninitialized) pool over the given endpoint
// configs, preserving the caller's priority order.
func NewPool(minHealthy int) *Pool {
	return NewPoolWithConcurrency(minHealthy, DefaultMaxInFlight)
}

// NewPoolWithConcurrency is NewPool with an explicit in-flight bound.
func NewPoolWithConcurrency(minHealthy, maxInFlight int) *Pool {
	if minHealthy <= 0 {
		minHealthy = DefaultMinHealthy
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Pool{minHealthy: minHealthy, inFlight: semaphore.NewWeighted(int64(maxInFlight))}
}

// Acquire blocks until a slot under the pool's concurrency bound is free,
// or ctx is done. Release must be called exactly once per successful
// Acquire.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.inFlight.Acquire(ctx, 1)
}

// Release frees a slot acquired via Acquire.
func (p *Pool) Release() {
	p.inFlight.Release(1)
}

// Initialize dials and probes each configured endpoint sequentially until at
// least minHealthy are admitted, failing hard if none succeed.
func (p *Pool) Initialize(ctx context.Context, configs []EndpointConfig) error {
	var healthy int
	for _, cfg := range configs {
		client, err := NewClient(ctx, cfg)
		if err != nil {
			log.Warn("pool: dial failed", "url", cfg.URL, "err", err)
			continue
		}
		if err := client.Connect(ctx); err != nil {
			log.Warn("pool: probe failed", "url", cfg.URL, "err", err)
			continue
		}

		p.mu.Lock()
		p.clients = append(p.clients, client)
		p.mu.Unlock()

		healthy++
		log.Info("pool: endpoint admitted", "url", cfg.URL)
	}

	if healthy == 0 {
		return fmt.Errorf("solanarpc: no endpoints could be initialized out of %d configured", len(configs))
	}
	if healthy < p.minHealthy {
		log.Warn("pool: fewer healthy endpoints than requested", "healthy", healthy, "min", p.minHealthy)
	}
	return nil
}

// GetClient selects the best eligible client: endpoints in cooldown are
// filtered out, then the remainder is ranked by (error_count,
// average_latency) ascending, per spec §4.3.
func (p *Pool) GetClient() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var eligible []*Client
	for _, c := range p.clients {
		if now.Before(c.CooldownUntil()) {
			continue
		}
		eligible = append(eligible, c)
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("solanarpc: no healthy endpoints")
	}

	sort.Slice(eligible, func(i, j int) bool {
		ei, ej := eligible[i], eligible[j]
		ci, cj := ei.ErrorCount(), ej.ErrorCount()
		if ci != cj {
			return ci < cj
		}
		return ei.AverageLatency() < ej.AverageLatency()
	})

	chosen := eligible[0]
	chosen.touch()
	if p.metrics != nil {
		p.metrics.PoolEndpointSelections.WithLabelValues(chosen.URL()).Inc()
	}
	return chosen, nil
}

// MarkRateLimited sets the given endpoint's cooldown, per spec §4.3.
func (p *Pool) MarkRateLimited(client *Client, retryAfter time.Duration) {
	client.MarkRateLimited(retryAfter)
	p.mu.Lock()
	reg := p.metrics
	p.mu.Unlock()
	if reg != nil {
		reg.PoolEndpointErrors.WithLabelValues(client.URL()).Inc()
	}
}

// Size reports the number of endpoints the pool holds (healthy or not); an
// unreachable endpoint is quarantined via cooldown, never deleted.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Healthy reports the number of endpoints currently eligible for selection.
func (p *Pool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	var n int
	for _, c := range p.clients {
		if !now.Before(c.CooldownUntil()) {
			n++
		}
	}
	if p.metrics != nil {
		p.metrics.PoolHealthyEndpoints.Set(float64(n))
	}
	return n
}

// Close shuts down every client's transport.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Close()
	}
}
