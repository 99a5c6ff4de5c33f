package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"liquidstake/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeForbidden      = -32002
	codeModulePaused   = -32003
	codeNotFound       = -32004
	codeInsufficient   = -32005
	codeArithmetic     = -32006
	codeRateLimited    = -32029
)

type requestIDKey struct{}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	AuthToken   string
	MetricsPath string
	ReadTimeout time.Duration
	RateLimit   RateLimit
	Logger      *slog.Logger
}

type Server struct {
	node      *core.Node
	authToken string
	logger    *slog.Logger
	cfg       ServerConfig
	limiter   *rateLimiter
	httpSrv   *http.Server
}

type handlerFunc func(s *Server, w http.ResponseWriter, r *http.Request, req *RPCRequest)

type method struct {
	handler  handlerFunc
	mutating bool
}

var methods = map[string]method{
	"staking_stake":          {handler: (*Server).handleStakingStake, mutating: true},
	"staking_unstake":        {handler: (*Server).handleStakingUnstake, mutating: true},
	"staking_claim":          {handler: (*Server).handleStakingClaim, mutating: true},
	"staking_sync":           {handler: (*Server).handleStakingSync, mutating: true},
	"staking_setLiquidToken": {handler: (*Server).handleStakingSetLiquidToken, mutating: true},
	"staking_status":         {handler: (*Server).handleStakingStatus},
	"staking_config":         {handler: (*Server).handleStakingConfig},
	"staking_queue":          {handler: (*Server).handleStakingQueue},
	"staking_claimable":      {handler: (*Server).handleStakingClaimable},
	"staking_underUnstaking": {handler: (*Server).handleStakingUnderUnstaking},
	"swap_add":               {handler: (*Server).handleSwapAdd, mutating: true},
	"swap_remove":            {handler: (*Server).handleSwapRemove, mutating: true},
	"swap_swap":              {handler: (*Server).handleSwapSwap, mutating: true},
	"swap_claim":             {handler: (*Server).handleSwapClaim, mutating: true},
	"swap_setFee":            {handler: (*Server).handleSwapSetFee, mutating: true},
	"swap_sweepRemainder":    {handler: (*Server).handleSwapSweepRemainder, mutating: true},
	"swap_status":            {handler: (*Server).handleSwapStatus},
	"swap_config":            {handler: (*Server).handleSwapConfig},
	"swap_orderBook":         {handler: (*Server).handleSwapOrderBook},
	"swap_orderOf":           {handler: (*Server).handleSwapOrderOf},
	"swap_claimable":         {handler: (*Server).handleSwapClaimable},
	"module_setPaused":       {handler: (*Server).handleModuleSetPaused, mutating: true},
	"bank_balance":           {handler: (*Server).handleBankBalance},
	"token_balance":          {handler: (*Server).handleTokenBalance},
	"audit_invariants":       {handler: (*Server).handleAuditInvariants},
	"node_height":            {handler: (*Server).handleNodeHeight},
}

func NewServer(node *core.Node, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.MetricsPath) == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(cfg.AuthToken),
		logger:    logger,
		cfg:       cfg,
		limiter:   newRateLimiter(cfg.RateLimit),
	}
}

// Handler returns the HTTP handler serving JSON-RPC on "/", Prometheus
// metrics and a liveness check.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Handle(s.cfg.MetricsPath, promhttp.Handler())
	r.Handle("/", s.limiter.middleware(otelhttp.NewHandler(http.HandlerFunc(s.handle), "jsonrpc")))
	return r
}

// Start serves until Shutdown is called, returning http.ErrServerClosed then.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      2 * s.cfg.ReadTimeout,
	}
	s.logger.Info("starting JSON-RPC server", slog.String("address", addr))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "height": s.node.Height()})
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "JSON-RPC requires POST", nil)
		return
	}
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	m, ok := methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if m.mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	m.handler(s, w, r, req)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// decodeParams unmarshals the single parameter object of req into out.
func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func writeParamError(w http.ResponseWriter, req *RPCRequest, rpcErr *RPCError) {
	writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}
