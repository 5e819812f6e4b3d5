package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediachain/core"
	coreerrors "mediachain/core/errors"
	"mediachain/core/types"
	"mediachain/indexer"
	"mediachain/native/common"
	"mediachain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeDomainError    = -32050
)

// EventLister serves events_list.
type EventLister interface {
	List(ctx context.Context, filter indexer.Filter) ([]types.EventRecord, error)
}

// ServerConfig wires the optional collaborators of a Server.
type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimit
	Events    EventLister
	Hub       *Hub
	Logger    *slog.Logger
}

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
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

// domainErrorData is attached to codeDomainError responses.
type domainErrorData struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type handlerFunc func(ctx context.Context, r *http.Request, req *RPCRequest) (interface{}, *RPCError)

type method struct {
	handle handlerFunc
	// mutating methods are authenticated when auth is enabled.
	mutating bool
}

type Server struct {
	node    *core.Node
	events  EventLister
	hub     *Hub
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
	methods map[string]method
}

func NewServer(node *core.Node, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		events:  cfg.Events,
		hub:     cfg.Hub,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger.With(slog.String("component", "rpc")),
	}
	s.methods = map[string]method{
		"token_transfer":         {s.handleTokenTransfer, true},
		"token_approve":          {s.handleTokenApprove, true},
		"token_approveRecurrent": {s.handleTokenApproveRecurrent, true},
		"token_transferFrom":     {s.handleTokenTransferFrom, true},
		"token_balanceOf":        {s.handleTokenBalanceOf, false},
		"token_allowance":        {s.handleTokenAllowance, false},
		"token_totalSupply":      {s.handleTokenTotalSupply, false},

		"identity_registerService":        {s.handleIdentityRegisterService, true},
		"identity_addUserVerification":    {s.handleIdentityAddUserVerification, true},
		"identity_revokeUserVerification": {s.handleIdentityRevokeUserVerification, true},
		"identity_isVerified":             {s.handleIdentityIsVerified, false},

		"promotion_register":                 {s.handlePromotionRegister, true},
		"promotion_addBudget":                {s.handlePromotionAddBudget, true},
		"promotion_addVerificationAuthority": {s.handlePromotionAddAuthority, true},
		"promotion_recordInteraction":        {s.handlePromotionRecordInteraction, true},
		"promotion_end":                      {s.handlePromotionEnd, true},
		"promotion_get":                      {s.handlePromotionGet, false},
		"promotion_list":                     {s.handlePromotionList, false},
		"promotion_buyContent":               {s.handlePromotionBuyContent, true},

		"delegation_proposeDelegation":  {s.handleDelegationProposeDelegation, true},
		"delegation_proposeMaster":      {s.handleDelegationProposeMaster, true},
		"delegation_withdrawDelegation": {s.handleDelegationWithdrawDelegation, true},
		"delegation_withdrawMaster":     {s.handleDelegationWithdrawMaster, true},
		"delegation_masterOf":           {s.handleDelegationMasterOf, false},

		"subscription_registerOffer": {s.handleSubscriptionRegisterOffer, true},
		"subscription_subscribe":     {s.handleSubscriptionSubscribe, true},
		"subscription_renew":         {s.handleSubscriptionRenew, true},
		"subscription_isSubscriber":  {s.handleSubscriptionIsSubscriber, false},

		"chain_height": {s.handleChainHeight, false},
		"chain_mine":   {s.handleChainMine, true},
		"events_list":  {s.handleEventsList, false},
	}
	return s
}

// Router returns the HTTP surface: JSON-RPC, health, metrics and the event
// stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.limiter.Middleware).Post("/rpc", s.handle)
	r.With(s.limiter.Middleware).Post("/", s.handle)
	if s.hub != nil {
		r.Get("/ws/events", s.hub.ServeHTTP)
	}
	return r
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

// handle decodes a JSON-RPC request and routes it to its method.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
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
	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	ctx := r.Context()
	if m.mutating {
		identity, authErr := s.auth.Authenticate(r)
		if authErr != nil {
			observability.ModuleMetrics().Observe(req.Method, "Unauthorized", 0)
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		ctx = withIdentity(ctx, identity)
	}

	start := time.Now()
	result, rpcErr := m.handle(ctx, r, req)
	outcome := ""
	if rpcErr != nil {
		outcome = "error"
		if data, ok := rpcErr.Data.(domainErrorData); ok {
			outcome = data.Kind
		}
	}
	observability.ModuleMetrics().Observe(req.Method, outcome, time.Since(start))
	if rpcErr != nil {
		status := http.StatusBadRequest
		switch rpcErr.Code {
		case codeServerError:
			status = http.StatusInternalServerError
		case codeUnauthorized:
			status = http.StatusUnauthorized
		case codeDomainError:
			status = http.StatusOK
		}
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

// decodeParams accepts either a params object or a single element array
// holding one.
func decodeParams(raw json.RawMessage, out interface{}) *RPCError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &RPCError{Code: codeInvalidParams, Message: "params required"}
	}
	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
		}
		if len(list) != 1 {
			return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
		}
		trimmed = bytes.TrimSpace(list[0])
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
	}
	return nil
}

// operationError maps an engine failure onto the JSON-RPC error space.
// Taxonomy failures keep their kind so clients can branch on it.
func operationError(err error) *RPCError {
	if err == nil {
		return nil
	}
	if kind := coreerrors.Kind(err); kind != "" {
		return &RPCError{Code: codeDomainError, Message: err.Error(), Data: domainErrorData{Kind: kind, Detail: err.Error()}}
	}
	switch {
	case errors.Is(err, common.ErrModulePaused):
		return &RPCError{Code: codeDomainError, Message: err.Error(), Data: domainErrorData{Kind: "ModulePaused", Detail: err.Error()}}
	case errors.Is(err, common.ErrReentrantCall):
		return &RPCError{Code: codeDomainError, Message: err.Error(), Data: domainErrorData{Kind: "ReentrantCall", Detail: err.Error()}}
	case strings.HasPrefix(err.Error(), "node:"):
		return &RPCError{Code: codeServerError, Message: "internal error", Data: err.Error()}
	}
	return &RPCError{Code: codeInvalidParams, Message: err.Error()}
}
