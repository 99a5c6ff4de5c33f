package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidstake/native/staking"
)

func TestMutatingMethodsRequireBearerToken(t *testing.T) {
	h := newTestHandler(t)
	status, resp := call(t, h, "staking_stake", fundsParams{Caller: aliceAddr.String(), Amount: "10"}, false)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, _ = call(t, h, "staking_status", nil, false)
	require.Equal(t, http.StatusOK, status)
}

func TestStakeUnstakeFlow(t *testing.T) {
	h := newTestHandler(t)

	status, resp := call(t, h, "staking_stake", fundsParams{Caller: aliceAddr.String(), Amount: "100"}, true)
	require.Equal(t, http.StatusOK, status)
	var stakeTx struct {
		Height uint64       `json:"height"`
		Result AmountResult `json:"result"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	decodeResult(t, resp, &stakeTx)
	require.Equal(t, uint64(1), stakeTx.Height)
	require.Equal(t, "100", stakeTx.Result.Amount)
	require.NotEmpty(t, stakeTx.Events)

	_, resp = call(t, h, "staking_unstake", amountParams{Caller: aliceAddr.String(), Amount: "30"}, true)
	var unstakeTx struct {
		Result QueueIDResult `json:"result"`
	}
	decodeResult(t, resp, &unstakeTx)
	require.Equal(t, uint64(1), unstakeTx.Result.ID)

	_, resp = call(t, h, "staking_queue", pageParams{Limit: 10}, false)
	var page QueuePageResult
	decodeResult(t, resp, &page)
	require.Equal(t, uint64(1), page.Length)
	require.Len(t, page.Nodes, 1)
	require.Equal(t, aliceAddr.String(), page.Nodes[0].Owner)
	require.Equal(t, "30", page.Nodes[0].Value)

	_, resp = call(t, h, "staking_underUnstaking", addressParams{Address: aliceAddr.String()}, false)
	var under AmountResult
	decodeResult(t, resp, &under)
	require.Equal(t, "30", under.Amount)

	_, resp = call(t, h, "staking_status", nil, false)
	var st StakingStatusResult
	decodeResult(t, resp, &st)
	require.Equal(t, "70", st.Issued)
	require.Equal(t, "70", st.Native)
	require.Equal(t, "30", st.Unstakings)
	require.True(t, strings.HasPrefix(st.RatioDecimal, "1.0"))

	_, resp = call(t, h, "token_balance", tokenBalanceParams{Address: aliceAddr.String()}, false)
	var tokens AmountResult
	decodeResult(t, resp, &tokens)
	require.Equal(t, "70", tokens.Amount)

	_, resp = call(t, h, "audit_invariants", nil, false)
	var inv InvariantsResult
	decodeResult(t, resp, &inv)
	require.True(t, inv.Holds)
}

func TestSwapFlow(t *testing.T) {
	h := newTestHandler(t)
	_, resp := call(t, h, "staking_stake", fundsParams{Caller: aliceAddr.String(), Amount: "100"}, true)
	require.Nil(t, resp.Error)
	_, resp = call(t, h, "swap_add", fundsParams{Caller: bobAddr.String(), Amount: "50"}, true)
	require.Nil(t, resp.Error)

	_, resp = call(t, h, "swap_swap", amountParams{Caller: aliceAddr.String(), Amount: "10"}, true)
	var swapTx struct {
		Result SwapResult `json:"result"`
	}
	decodeResult(t, resp, &swapTx)
	require.Equal(t, "10", swapTx.Result.Native)
	require.Equal(t, "10", swapTx.Result.Credited)

	_, resp = call(t, h, "swap_claimable", addressParams{Address: bobAddr.String()}, false)
	var claimable AmountResult
	decodeResult(t, resp, &claimable)
	require.Equal(t, "10", claimable.Amount)

	_, resp = call(t, h, "swap_orderOf", addressParams{Address: bobAddr.String()}, false)
	var order OrderResult
	decodeResult(t, resp, &order)
	require.Equal(t, "40", order.Issued)

	_, resp = call(t, h, "swap_orderBook", nil, false)
	var book QueuePageResult
	decodeResult(t, resp, &book)
	require.Equal(t, uint64(1), book.Length)

	_, resp = call(t, h, "bank_balance", bankBalanceParams{Address: aliceAddr.String()}, false)
	var native AmountResult
	decodeResult(t, resp, &native)
	require.Equal(t, "910", native.Amount)
}

func TestDomainErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	status, resp := call(t, h, "staking_claim", callerParams{Caller: aliceAddr.String()}, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "nothing to claim", resp.Error.Message)

	status, resp = call(t, h, "module_setPaused", setPausedParams{Caller: aliceAddr.String(), Module: staking.ModuleName, Paused: true}, true)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeForbidden, resp.Error.Code)

	status, _ = call(t, h, "module_setPaused", setPausedParams{Caller: ownerAddr.String(), Module: staking.ModuleName, Paused: true}, true)
	require.Equal(t, http.StatusOK, status)
	status, resp = call(t, h, "staking_stake", fundsParams{Caller: aliceAddr.String(), Amount: "5"}, true)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, codeModulePaused, resp.Error.Code)

	status, resp = call(t, h, "swap_swap", amountParams{Caller: aliceAddr.String(), Amount: "5"}, true)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "insufficient liquidity", resp.Error.Message)

	status, resp = call(t, h, "swap_swap", amountParams{Caller: "cosmos1bad", Amount: "5"}, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = call(t, h, "swap_swap", amountParams{Caller: aliceAddr.String(), Amount: "0"}, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "amount must be positive", resp.Error.Message)
}

func TestEnvelopeAndAuxiliaryRoutes(t *testing.T) {
	h := newTestHandler(t)

	status, resp := call(t, h, "staking_nope", nil, false)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "liquidstake_block_height")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func sendFrom(h http.Handler, remoteAddr, realIP string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if realIP != "" {
		req.Header.Set("X-Real-IP", realIP)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	h := NewServer(nil, ServerConfig{AuthToken: testToken, RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 1}}).Handler()

	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "10.0.0.1:4000", ""))
	require.Equal(t, http.StatusTooManyRequests, sendFrom(h, "10.0.0.1:4001", ""))
	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "10.0.0.2:4000", ""))
}

func TestRateLimitIgnoresForwardedHeadersByDefault(t *testing.T) {
	h := NewServer(nil, ServerConfig{AuthToken: testToken, RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 1}}).Handler()

	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "192.0.2.1:1234", "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, sendFrom(h, "192.0.2.1:1234", "10.0.0.2"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "10.0.0.3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitKeysByProxyHeadersWhenTrusted(t *testing.T) {
	h := NewServer(nil, ServerConfig{AuthToken: testToken, RateLimit: RateLimit{
		RequestsPerMinute: 1,
		Burst:             1,
		TrustProxyHeaders: true,
	}}).Handler()

	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "192.0.2.1:1234", "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, sendFrom(h, "192.0.2.1:1234", "10.0.0.1"))
	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "192.0.2.1:1234", "10.0.0.2"))
	// unparsable header falls back to the connection address
	require.Equal(t, http.StatusMethodNotAllowed, sendFrom(h, "192.0.2.9:1234", "not-an-ip"))
}
