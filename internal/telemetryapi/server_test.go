package telemetryapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhamdubey02/solana-telemetry/internal/netstatus"
	"github.com/shubhamdubey02/solana-telemetry/internal/pipeline"
	"github.com/shubhamdubey02/solana-telemetry/internal/solanarpc"
)

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

// newFakeSolanaEndpoint answers every method this test exercises with a
// minimal plausible fixture, enough to drive the HTTP adapter end to end
// without a live cluster.
func newFakeSolanaEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "getSlot":
			result = uint64(1000)
		case "getBlock":
			result = map[string]any{"transactions": []any{}}
		case "getTokenSupply":
			result = map[string]any{"value": map[string]any{"amount": "1000000", "decimals": 6}}
		case "getAccountInfo":
			result = map[string]any{"value": map[string]any{"lamports": 123, "owner": "ownerX", "executable": false, "rentEpoch": 1, "data": []string{"", "base64"}}}
		case "getClusterNodes":
			result = []any{}
		case "getVersion":
			result = map[string]any{"solana-core": "1.18.0", "feature-set": 1}
		case "getEpochInfo":
			result = map[string]any{"epoch": 1, "slotIndex": 1, "slotsInEpoch": 100, "absoluteSlot": 1000, "blockHeight": 1000}
		case "getRecentPerformanceSamples":
			result = []any{}
		case "getVoteAccounts":
			result = map[string]any{"current": []any{}, "delinquent": []any{}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	rpcSrv := newFakeSolanaEndpoint(t)
	pool := solanarpc.NewPool(1)
	require.NoError(t, pool.Initialize(context.Background(), []solanarpc.EndpointConfig{{URL: rpcSrv.URL}}))
	t.Cleanup(pool.Close)

	query := solanarpc.NewQuery(pool)
	return NewServer(pipeline.NewOrchestrator(query), netstatus.NewAggregator(query), query)
}

func TestHandleRecentMintsDefaultsToOneBlock(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/recent", nil)

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
}

func TestHandleRecentMintsRejectsOutOfRangeBlocks(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/recent?blocks=21", nil)

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "between 1 and 20")
}

func TestHandleRecentMintsRejectsNonNumericBlocks(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/recent?blocks=abc", nil)

	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyzeMintRequiresPathSegment(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/analyze/SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt", nil)

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ownerX", body["owner"])
}

func TestHandleMintStatsValidatesTimeframe(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/stats?timeframe=1y", nil)

	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMintStatsAcceptsKnownTimeframe(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analytics/mints/stats?timeframe=24h", nil)

	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "24h", body["timeframe"])
}

func TestHandleNetworkStatusSummaryOnlyOmitsRawFields(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/network-status?summary_only=true", nil)

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	_, hasNodes := body["nodes"]
	assert.False(t, hasNodes)
}

func TestHandleNetworkStatusFullIncludesRawFields(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/network-status", nil)

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, hasNodes := body["nodes"]
	assert.True(t, hasNodes)
}
