package solanarpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeAccountEndpoint(t *testing.T, handle func(method string, params []json.RawMessage) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := handle(req.Method, req.Params)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestQuery(t *testing.T, srv *httptest.Server) *Query {
	t.Helper()
	pool := NewPool(1)
	require.NoError(t, pool.Initialize(context.Background(), []EndpointConfig{{URL: srv.URL}}))
	t.Cleanup(pool.Close)
	return NewQuery(pool)
}

func TestGetTokenSupply(t *testing.T) {
	srv := newFakeAccountEndpoint(t, func(method string, params []json.RawMessage) any {
		if method != "getTokenSupply" {
			return nil
		}
		uiAmount := 1.0
		return map[string]any{"value": map[string]any{"amount": "1000000", "decimals": 6, "uiAmount": uiAmount}}
	})
	q := newTestQuery(t, srv)

	supply, err := q.GetTokenSupply(context.Background(), "someMint")
	require.NoError(t, err)
	assert.Equal(t, "1000000", supply.Amount)
	assert.EqualValues(t, 6, supply.Decimals)
	require.NotNil(t, supply.UIAmount)
	assert.Equal(t, 1.0, *supply.UIAmount)
}

func TestGetAccountInfoReturnsNilForMissingAccount(t *testing.T) {
	srv := newFakeAccountEndpoint(t, func(method string, params []json.RawMessage) any {
		return map[string]any{"value": nil}
	})
	q := newTestQuery(t, srv)

	info, err := q.GetAccountInfo(context.Background(), "missingAccount")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetAccountInfoDecodesBase64Payload(t *testing.T) {
	srv := newFakeAccountEndpoint(t, func(method string, params []json.RawMessage) any {
		return map[string]any{"value": map[string]any{
			"lamports": 42, "owner": "ownerAddr", "executable": false, "rentEpoch": 5,
			"data": []string{"aGVsbG8=", "base64"},
		}}
	})
	q := newTestQuery(t, srv)

	info, err := q.GetAccountInfo(context.Background(), "acct")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.EqualValues(t, 42, info.Lamports)
	assert.Equal(t, "ownerAddr", info.Owner)

	decoded, err := info.DecodedData()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(decoded))
}

func TestGetTokenAccountsByOwnerParsesEachEntry(t *testing.T) {
	srv := newFakeAccountEndpoint(t, func(method string, params []json.RawMessage) any {
		return map[string]any{"value": []any{
			map[string]any{
				"pubkey": "pk1",
				"account": map[string]any{
					"data": map[string]any{
						"parsed": map[string]any{
							"info": map[string]any{
								"mint":        "mintAddr",
								"tokenAmount": map[string]any{"amount": "500"},
							},
						},
					},
				},
			},
		}}
	})
	q := newTestQuery(t, srv)

	accounts, err := q.GetTokenAccountsByOwner(context.Background(), "ownerAddr", "mintAddr")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "pk1", accounts[0].Pubkey)
	assert.Equal(t, "mintAddr", accounts[0].Mint)
	assert.Equal(t, "500", accounts[0].Amount)
}
