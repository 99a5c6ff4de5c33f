package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"liquidstake/crypto"
)

type capturedRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	Auth   string            `json:"-"`
}

func withStubNode(t *testing.T, respond func(req capturedRequest) string) *[]capturedRequest {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		req.Auth = r.Header.Get("Authorization")
		seen = append(seen, req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(req)))
	}))
	t.Cleanup(srv.Close)

	originalEndpoint, originalToken := rpcEndpoint, rpcAuthToken
	rpcEndpoint = srv.URL
	rpcAuthToken = "cli-token"
	t.Cleanup(func() {
		rpcEndpoint = originalEndpoint
		rpcAuthToken = originalToken
	})
	return &seen
}

func TestStakeSendsAuthenticatedRequest(t *testing.T) {
	seen := withStubNode(t, func(capturedRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"height":3,"events":[],"result":{"amount":"100"}}}`
	})
	var stdout, stderr bytes.Buffer
	if code := run([]string{"staking", "stake", "lqs1caller", "100"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if len(*seen) != 1 {
		t.Fatalf("expected one request, got %d", len(*seen))
	}
	req := (*seen)[0]
	if req.Method != "staking_stake" {
		t.Fatalf("unexpected method %q", req.Method)
	}
	if req.Auth != "Bearer cli-token" {
		t.Fatalf("unexpected auth header %q", req.Auth)
	}
	var params map[string]string
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if params["caller"] != "lqs1caller" || params["amount"] != "100" {
		t.Fatalf("unexpected params %v", params)
	}
	if !strings.Contains(stdout.String(), `"amount": "100"`) {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestQueriesDoNotSendToken(t *testing.T) {
	seen := withStubNode(t, func(capturedRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"length":0,"nodes":[]}}`
	})
	var stdout, stderr bytes.Buffer
	if code := run([]string{"swap", "book", "4", "10"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	req := (*seen)[0]
	if req.Auth != "" {
		t.Fatalf("query should not carry a token, got %q", req.Auth)
	}
	var params map[string]float64
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if params["cursor"] != 4 || params["limit"] != 10 {
		t.Fatalf("unexpected paging params %v", params)
	}
}

func TestNodeErrorIsReported(t *testing.T) {
	withStubNode(t, func(capturedRequest) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32003,"message":"module paused"}}`
	})
	var stdout, stderr bytes.Buffer
	if code := run([]string{"swap", "swap", "lqs1caller", "5"}, &stdout, &stderr); code == 0 {
		t.Fatalf("expected failure exit code")
	}
	if !strings.Contains(stderr.String(), "module paused (code -32003)") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestMutatingCallWithoutTokenFailsLocally(t *testing.T) {
	seen := withStubNode(t, func(capturedRequest) string { return `{}` })
	rpcAuthToken = ""
	var stdout, stderr bytes.Buffer
	if code := run([]string{"staking", "sync"}, &stdout, &stderr); code == 0 {
		t.Fatalf("expected failure exit code")
	}
	if len(*seen) != 0 {
		t.Fatalf("request should not reach the node")
	}
	if !strings.Contains(stderr.String(), rpcTokenEnv) {
		t.Fatalf("error should name %s, got %q", rpcTokenEnv, stderr.String())
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	original := rpcEndpoint
	defer func() { rpcEndpoint = original }()

	args, err := applyGlobalFlags([]string{"--rpc", "http://node:9000", "height"})
	if err != nil {
		t.Fatalf("apply flags: %v", err)
	}
	if rpcEndpoint != "http://node:9000" || len(args) != 1 || args[0] != "height" {
		t.Fatalf("unexpected result endpoint=%q args=%v", rpcEndpoint, args)
	}
	if _, err := applyGlobalFlags([]string{"--rpc"}); err == nil {
		t.Fatalf("expected error for missing --rpc value")
	}
}

func TestKeygenAndAddress(t *testing.T) {
	t.Setenv(keystorePassEnv, "correct horse")
	path := filepath.Join(t.TempDir(), "alice.keystore")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"keygen", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("keygen exit %d: %s", code, stderr.String())
	}
	key, err := crypto.LoadKeystore(path, "correct horse")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if !strings.Contains(stdout.String(), key.Address().String()) {
		t.Fatalf("keygen output %q missing address", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"address", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("address exit %d: %s", code, stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != key.Address().String() {
		t.Fatalf("unexpected address %q", stdout.String())
	}

	if code := run([]string{"keygen", path}, &stdout, &stderr); code == 0 {
		t.Fatalf("keygen must refuse to overwrite an existing keystore")
	}
}
