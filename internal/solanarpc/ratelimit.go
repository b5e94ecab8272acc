// Package solanarpc implements the multi-endpoint RPC connection pool: the
// Rate-Limit Tracker (C1), RPC Endpoint Client (C2), Connection Pool (C3),
// Response Classifier (C4), and Query Layer (C5) of spec §4.
package solanarpc

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rate-limit thresholds below which should_backoff reports true, per §4.1.
const (
	methodRemainingFloor = 5
	rpsRemainingFloor    = 10
	connRemainingFloor   = 3

	maxBackoff = 30 * time.Second
)

// rateLimitState is the per-endpoint counters derived purely from the
// server's own rate-limit headers, per spec §3/§4.1. Updated atomically
// under its own mutex; readers of ShouldBackoff take the lock only for the
// check, never across I/O.
type rateLimitState struct {
	mu sync.Mutex

	methodLimit, methodRemaining int
	rpsLimit, rpsRemaining       int
	connLimit, connRemaining     int
	cooldownUntil                time.Time
	lastUpdate                   time.Time

	// retryAfterHint is the Retry-After duration observed on the most
	// recent 429 response, taken (and cleared) once by Call's error path
	// so MarkCooldown can honor the server's actual hint instead of
	// falling back to its 60s default.
	retryAfterHint time.Duration

	// local is a client-side token bucket seeded from the endpoint's
	// configured budget. It sits under the header-derived counters above:
	// those react to what the server has already told us, this caps what
	// we send before a response ever comes back.
	local *rate.Limiter
}

func newRateLimitState() *rateLimitState {
	return newRateLimitStateWithBudget(0, 0)
}

// newRateLimitStateWithBudget seeds the local token bucket from the
// endpoint's configured requests-per-second and burst. A non-positive rps
// disables the local limiter (rate.Inf), relying on header-derived
// counters alone.
func newRateLimitStateWithBudget(rps float64, burst int) *rateLimitState {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	// Absent headers leave prior values intact; start permissive so a
	// freshly admitted endpoint isn't immediately throttled.
	return &rateLimitState{
		methodRemaining: methodRemainingFloor + 1,
		rpsRemaining:    rpsRemainingFloor + 1,
		connRemaining:   connRemainingFloor + 1,
		local:           rate.NewLimiter(limit, burst),
	}
}

// WaitLocal blocks until the local token bucket admits one request, or ctx
// is done. This is the client-side half of §4.1's budget; the
// header-derived floors below are the server-reported half.
func (s *rateLimitState) WaitLocal(ctx context.Context) error {
	return s.local.Wait(ctx)
}

// UpdateFromHeaders extracts the ratelimit-* headers and retry-after,
// replacing only the counters that were present in the response. A bare
// HTTP 429 is always treated as a rate limit regardless of headers (spec
// §6), handled by the caller invoking MarkRateLimited directly.
func (s *rateLimitState) UpdateFromHeaders(h http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := parseIntHeader(h, "x-ratelimit-method-limit"); ok {
		s.methodLimit = v
	}
	if v, ok := parseIntHeader(h, "x-ratelimit-method-remaining"); ok {
		s.methodRemaining = v
	}
	if v, ok := parseIntHeader(h, "x-ratelimit-rps-limit"); ok {
		s.rpsLimit = v
	}
	if v, ok := parseIntHeader(h, "x-ratelimit-rps-remaining"); ok {
		s.rpsRemaining = v
	}
	if v, ok := parseIntHeader(h, "x-ratelimit-conn-limit"); ok {
		s.connLimit = v
	}
	if v, ok := parseIntHeader(h, "x-ratelimit-conn-remaining"); ok {
		s.connRemaining = v
	}
	if v, ok := parseFloatHeader(h, "retry-after"); ok {
		s.cooldownUntil = time.Now().Add(time.Duration(v * float64(time.Second)))
	}
	s.lastUpdate = time.Now()
}

// noteRetryAfterHint records a 429 response's Retry-After header for Call's
// error path to consume, independent of the cooldownUntil bookkeeping above
// (MarkCooldown needs the raw duration, not an already-computed deadline).
func (s *rateLimitState) noteRetryAfterHint(h http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := parseFloatHeader(h, "retry-after"); ok {
		s.retryAfterHint = time.Duration(v * float64(time.Second))
	}
}

// takeRetryAfterHint returns and clears the most recently noted hint, so a
// later successful call never sees a stale one.
func (s *rateLimitState) takeRetryAfterHint() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.retryAfterHint
	s.retryAfterHint = 0
	return v
}

// MarkCooldown forces a cooldown window, used on HTTP 429 or an explicit
// RateLimited classification, honoring retryAfter to the second.
func (s *rateLimitState) MarkCooldown(retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if retryAfter <= 0 {
		retryAfter = 60 * time.Second
	}
	until := time.Now().Add(retryAfter)
	if until.After(s.cooldownUntil) {
		s.cooldownUntil = until
	}
}

// ShouldBackoff reports whether the endpoint is currently in cooldown or any
// remaining budget has fallen below its floor.
func (s *rateLimitState) ShouldBackoff(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldBackoffLocked(now)
}

func (s *rateLimitState) shouldBackoffLocked(now time.Time) bool {
	if now.Before(s.cooldownUntil) {
		return true
	}
	return s.methodRemaining < methodRemainingFloor ||
		s.rpsRemaining < rpsRemainingFloor ||
		s.connRemaining < connRemainingFloor
}

// BackoffDuration returns the cooldown-remaining time if currently in
// cooldown, else a dynamic value that grows as any budget approaches zero,
// per the formula in spec §4.1, capped at 30s.
func (s *rateLimitState) BackoffDuration(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Before(s.cooldownUntil) {
		return s.cooldownUntil.Sub(now)
	}
	return dynamicBackoff(s.methodRemaining, s.rpsRemaining, s.connRemaining)
}

// dynamicBackoff implements base=1s + 0.5s*(5-method_remaining) +
// 0.2s*(10-rps_remaining) + 1s*(3-conn_remaining), each term floored at 0
// so a healthy budget never produces a negative contribution.
func dynamicBackoff(methodRemaining, rpsRemaining, connRemaining int) time.Duration {
	seconds := 1.0
	seconds += 0.5 * positive(float64(methodRemainingFloor-methodRemaining))
	seconds += 0.2 * positive(float64(rpsRemainingFloor-rpsRemaining))
	seconds += 1.0 * positive(float64(connRemainingFloor-connRemaining))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func parseIntHeader(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloatHeader(h http.Header, key string) (float64, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
