package solanarpc

import (
	"context"
	"time"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// RetryPolicy is the exponential backoff policy of spec §4.5:
// delay_n = min(max, initial * factor^n).
type RetryPolicy struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
	Retries int
}

// DefaultRetryPolicy matches the defaults named in spec §4.5.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Initial: time.Second,
		Factor:  2,
		Max:     8 * time.Second,
		Retries: 3,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.Initial
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d > p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// withRetry runs fn under the policy, retrying only errors the classifier
// marked retryable. The final error (whatever it was) is returned once
// retries are exhausted; the caller is never blocked indefinitely since the
// context's own deadline still applies across every attempt.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.delay(attempt - 1)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var rpcErr *solana.RPCError
		if !asRPCError(lastErr, &rpcErr) || !rpcErr.Retryable() {
			return lastErr
		}
	}
	return lastErr
}

func asRPCError(err error, target **solana.RPCError) bool {
	rpcErr, ok := err.(*solana.RPCError)
	if !ok {
		return false
	}
	*target = rpcErr
	return true
}
