package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidstake/core"
	"liquidstake/crypto"
	"liquidstake/native/liquidswap"
	"liquidstake/native/staking"
	"liquidstake/native/validator"
	"liquidstake/storage"
)

const (
	testToken = "rpc-test-token"
	testDenom = "ulqs"
)

func testAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = 0x5E
	raw[19] = b
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

var (
	ownerAddr = testAddress(1)
	aliceAddr = testAddress(2)
	bobAddr   = testAddress(3)
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Options{
		Genesis: core.Genesis{
			Staking: staking.Config{Owner: ownerAddr, BondDenom: testDenom, LiquidToken: "STLQS", Validator: "val0"},
			Swap:    liquidswap.Config{FeeBps: liquidswap.DefaultFeeBps},
			Accounts: []core.GenesisAccount{
				{Address: aliceAddr, Amount: uint256.NewInt(1_000)},
				{Address: bobAddr, Amount: uint256.NewInt(1_000)},
			},
		},
		Validator: validator.Params{UnbondingBlocks: 2},
	})
	require.NoError(t, err)
	return NewServer(node, ServerConfig{AuthToken: testToken}).Handler()
}

func call(t *testing.T, h http.Handler, method string, params interface{}, authed bool) (int, rpcResponse) {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": jsonRPCVersion, "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func decodeResult(t *testing.T, resp rpcResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, out))
}
