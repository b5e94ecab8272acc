package solanarpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// newRateLimitedEndpoint answers getSlot successfully once, then every
// subsequent call with HTTP 429 carrying the given headers, mirroring a
// Solana RPC provider that starts throttling mid-session.
func newRateLimitedEndpoint(t *testing.T, retryAfterSeconds string, methodRemaining string) *httptest.Server {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: uint64(1000)})
			return
		}
		w.Header().Set("x-ratelimit-method-remaining", methodRemaining)
		w.Header().Set("retry-after", retryAfterSeconds)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCallAppliesRetryAfterHeaderToRPCError(t *testing.T) {
	srv := newRateLimitedEndpoint(t, "10", "1")
	client, err := NewClient(context.Background(), EndpointConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.GetSlot(context.Background(), solana.CommitmentProcessed); err != nil {
		t.Fatalf("priming GetSlot: %v", err)
	}

	_, err = client.GetSlot(context.Background(), solana.CommitmentProcessed)
	if err == nil {
		t.Fatal("expected a rate-limited error on the second call")
	}
	rpcErr, ok := err.(*solana.RPCError)
	if !ok {
		t.Fatalf("err = %T, want *solana.RPCError", err)
	}
	if rpcErr.Kind != solana.ErrRateLimited {
		t.Fatalf("Kind = %v, want ErrRateLimited", rpcErr.Kind)
	}
	if rpcErr.RetryAfter != 10 {
		t.Fatalf("RetryAfter = %v, want 10 (from the Retry-After header, not the 60s default)", rpcErr.RetryAfter)
	}
}

func TestClientCallUpdatesHeaderDerivedBudgetFromLiveResponses(t *testing.T) {
	srv := newRateLimitedEndpoint(t, "10", "1")
	client, err := NewClient(context.Background(), EndpointConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.GetSlot(context.Background(), solana.CommitmentProcessed); err != nil {
		t.Fatalf("priming GetSlot: %v", err)
	}
	if _, err := client.GetSlot(context.Background(), solana.CommitmentProcessed); err == nil {
		t.Fatal("expected the second call to fail with a 429")
	}

	if !client.rateLimit.ShouldBackoff(time.Now()) {
		t.Fatal("a live x-ratelimit-method-remaining below the floor must trip ShouldBackoff")
	}
}

func TestClientMarkRateLimitedHonorsAccurateRetryAfter(t *testing.T) {
	srv := newRateLimitedEndpoint(t, "10", "1")
	client, err := NewClient(context.Background(), EndpointConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.GetSlot(context.Background(), solana.CommitmentProcessed); err != nil {
		t.Fatalf("priming GetSlot: %v", err)
	}
	_, err = client.GetSlot(context.Background(), solana.CommitmentProcessed)
	rpcErr := err.(*solana.RPCError)

	before := time.Now()
	client.MarkRateLimited(time.Duration(rpcErr.RetryAfter * float64(time.Second)))
	until := client.CooldownUntil()

	if until.Sub(before) > 15*time.Second {
		t.Fatalf("cooldown window %v is far longer than the 10s Retry-After hint", until.Sub(before))
	}
}
