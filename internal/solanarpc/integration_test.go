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

// rpcRequest/rpcResponse mirror the JSON-RPC 2.0 envelope go-ethereum's
// rpc.Client speaks, just enough to drive a fake Solana endpoint in tests.
type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

func newFakeEndpoint(t *testing.T, handle func(method string, params []json.RawMessage) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := handle(req.Method, req.Params)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryGetSlotBareInteger(t *testing.T) {
	srv := newFakeEndpoint(t, func(method string, params []json.RawMessage) any {
		if method == "getSlot" {
			return 42
		}
		return nil
	})

	pool := NewPool(1)
	if err := pool.Initialize(context.Background(), []EndpointConfig{{URL: srv.URL}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer pool.Close()

	query := NewQuery(pool)
	slot, err := query.GetSlot(context.Background(), solana.CommitmentConfirmed)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 42 {
		t.Fatalf("slot = %d, want 42", slot)
	}
}

func TestQueryGetBlockReturnsNilWhenSlotSkipped(t *testing.T) {
	srv := newFakeEndpoint(t, func(method string, params []json.RawMessage) any {
		switch method {
		case "getSlot":
			return 100
		case "getBlock":
			return nil // slot never produced a block
		}
		return nil
	})

	pool := NewPool(1)
	if err := pool.Initialize(context.Background(), []EndpointConfig{{URL: srv.URL}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer pool.Close()

	query := NewQuery(pool)
	block, err := query.GetBlock(context.Background(), 99, defaultBlockParams(solana.CommitmentConfirmed))
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if block != nil {
		t.Fatal("expected a nil block for a skipped slot")
	}
}

func TestQueryGetLatestAvailableBlockProbesBackward(t *testing.T) {
	const tip = 1000
	// Only slot tip-20-3 actually produced a block; every closer slot is
	// reported skipped, exercising the rearward probe.
	producedSlot := uint64(tip - latestBlockStartOffset - 3)

	srv := newFakeEndpoint(t, func(method string, params []json.RawMessage) any {
		switch method {
		case "getSlot":
			return tip
		case "getBlock":
			var slot uint64
			_ = json.Unmarshal(params[0], &slot)
			if slot != producedSlot {
				return nil
			}
			return wireBlock{BlockTime: nil}
		}
		return nil
	})

	pool := NewPool(1)
	if err := pool.Initialize(context.Background(), []EndpointConfig{{URL: srv.URL}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer pool.Close()

	query := NewQuery(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	block, err := query.GetLatestAvailableBlock(ctx)
	if err != nil {
		t.Fatalf("GetLatestAvailableBlock: %v", err)
	}
	if block.Slot != producedSlot {
		t.Fatalf("Slot = %d, want %d", block.Slot, producedSlot)
	}
}

func TestQueryGetMultipleBlocksCapturesPerSlotErrors(t *testing.T) {
	srv := newFakeEndpoint(t, func(method string, params []json.RawMessage) any {
		switch method {
		case "getSlot":
			return 10
		case "getBlock":
			var slot uint64
			_ = json.Unmarshal(params[0], &slot)
			if slot%2 == 0 {
				return wireBlock{}
			}
			return nil
		}
		return nil
	})

	pool := NewPool(1)
	if err := pool.Initialize(context.Background(), []EndpointConfig{{URL: srv.URL}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer pool.Close()

	query := NewQuery(pool)
	results := query.GetMultipleBlocks(context.Background(), 1, 4, 10, solana.CommitmentConfirmed)
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	for _, r := range results {
		wantSuccess := r.Slot%2 == 0
		if r.Success != wantSuccess {
			t.Errorf("slot %d: Success = %v, want %v", r.Slot, r.Success, wantSuccess)
		}
	}
}
