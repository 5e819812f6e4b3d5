package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"mediachain/core"
	"mediachain/core/genesis"
	"mediachain/core/types"
	"mediachain/crypto"
	"mediachain/indexer"
	"mediachain/storage"
)

const testJWTSecret = "rpc-test-secret-rpc-test-secret-0123"

var (
	testOperator = [20]byte{0xee}
	testAcc0     = [20]byte{0x10}
	testAcc1     = [20]byte{0x11}
)

type testResponse struct {
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func newTestNode(t *testing.T) *core.Node {
	t.Helper()
	spec := &genesis.Spec{Alloc: map[string]string{
		crypto.FormatAccount(testAcc0): "1000000",
	}}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Operator: testOperator, Genesis: spec, AutoMine: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })
	return node
}

func call(t *testing.T, handler http.Handler, token, method string, params interface{}) (int, testResponse) {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func domainKind(t *testing.T, rpcErr *RPCError) string {
	t.Helper()
	require.NotNil(t, rpcErr)
	require.Equal(t, codeDomainError, rpcErr.Code)
	data, ok := rpcErr.Data.(map[string]interface{})
	require.True(t, ok, "unexpected error data %#v", rpcErr.Data)
	kind, _ := data["kind"].(string)
	return kind
}

func TestHealthz(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestTransferAndBalance(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	router := srv.Router()

	status, resp := call(t, router, "", "token_transfer", map[string]string{
		"caller": crypto.FormatAccount(testAcc0),
		"to":     crypto.FormatAccount(testAcc1),
		"amount": "250",
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var receipt receiptResult
	require.NoError(t, json.Unmarshal(resp.Result, &receipt))
	require.Equal(t, uint64(1), receipt.Height)
	require.NotEmpty(t, receipt.Events)

	_, resp = call(t, router, "", "token_balanceOf", map[string]string{"account": crypto.FormatAccount(testAcc1)})
	require.Nil(t, resp.Error)
	var bal balanceResult
	require.NoError(t, json.Unmarshal(resp.Result, &bal))
	require.Equal(t, "250", bal.Balance)

	_, resp = call(t, router, "", "token_totalSupply", nil)
	require.Nil(t, resp.Error)
	require.Contains(t, string(resp.Result), "1000000")
}

func TestDomainErrorCarriesKind(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	router := srv.Router()

	status, resp := call(t, router, "", "token_transfer", map[string]string{
		"caller": crypto.FormatAccount(testAcc1),
		"to":     crypto.FormatAccount(testAcc0),
		"amount": "1",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "InsufficientBalance", domainKind(t, resp.Error))

	_, resp = call(t, router, "", "promotion_get", map[string]string{"contentId": "http://missing"})
	require.Equal(t, "UnknownCampaign", domainKind(t, resp.Error))
}

func TestInvalidParams(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	router := srv.Router()

	status, resp := call(t, router, "", "token_transfer", map[string]string{
		"caller": "not-an-account",
		"to":     crypto.FormatAccount(testAcc0),
		"amount": "1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	_, resp = call(t, router, "", "token_balanceOf", map[string]string{"account": crypto.FormatAccount(testAcc0), "extra": "x"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = call(t, router, "", "token_burn", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestPromotionRegisterRejectsOversizedWeights(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	_, resp := call(t, srv.Router(), "", "promotion_register", map[string]interface{}{
		"caller":      crypto.FormatAccount(testAcc0),
		"contentId":   "http://weights",
		"startHeight": 2,
		"duration":    5,
		"budget":      "1000",
		"likes":       true,
		"weights":     map[string]uint64{"like": 100_000_000_000_000_000, "comment": 1, "share": 1, "view": 1},
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "weight out of range")

	_, resp = call(t, srv.Router(), "", "promotion_get", map[string]string{"contentId": "http://weights"})
	require.Equal(t, "UnknownCampaign", domainKind(t, resp.Error))
}

func TestAuthGuardsMutatingMethods(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{Auth: AuthConfig{Enabled: true, HMACSecret: testJWTSecret}})
	router := srv.Router()
	params := map[string]string{
		"caller": crypto.FormatAccount(testAcc0),
		"to":     crypto.FormatAccount(testAcc1),
		"amount": "5",
	}

	status, resp := call(t, router, "", "token_transfer", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	wrong := signToken(t, jwt.MapClaims{"sub": crypto.FormatAccount(testAcc1)})
	status, resp = call(t, router, wrong, "token_transfer", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	owner := signToken(t, jwt.MapClaims{"sub": crypto.FormatAccount(testAcc0)})
	_, resp = call(t, router, owner, "token_transfer", params)
	require.Nil(t, resp.Error)

	status, resp = call(t, router, owner, "chain_mine", map[string]uint64{"blocks": 3})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	op := signToken(t, jwt.MapClaims{"scope": OperatorScope})
	_, resp = call(t, router, op, "chain_mine", map[string]uint64{"blocks": 3})
	require.Nil(t, resp.Error)
	var mined map[string]uint64
	require.NoError(t, json.Unmarshal(resp.Result, &mined))
	require.Equal(t, uint64(4), mined["height"])

	// reads stay anonymous
	_, resp = call(t, router, "", "chain_height", nil)
	require.Nil(t, resp.Error)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 1}})
	router := srv.Router()

	status, _ := call(t, router, "", "chain_height", nil)
	require.Equal(t, http.StatusOK, status)
	status, resp := call(t, router, "", "chain_height", nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestEventsListReadsIndexer(t *testing.T) {
	node := newTestNode(t)
	idx, err := indexer.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	node.AddSink(idx)

	_, _, err = node.Subscribe(context.Background(), testAcc0, "missing")
	require.Error(t, err)
	_, err = node.Transfer(context.Background(), testAcc0, testAcc1, big.NewInt(7))
	require.NoError(t, err)

	srv := NewServer(node, ServerConfig{Events: idx})
	_, resp := call(t, srv.Router(), "", "events_list", map[string]string{"type": "token.transfer"})
	require.Nil(t, resp.Error)
	var out struct {
		Events []types.EventRecord `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.Len(t, out.Events, 1)
	require.Equal(t, uint64(2), out.Events[0].Height)
	require.Equal(t, crypto.FormatAccount(testAcc1), out.Events[0].Event.Attributes["to"])
}

func TestEventsListWithoutIndexer(t *testing.T) {
	srv := NewServer(newTestNode(t), ServerConfig{})
	status, resp := call(t, srv.Router(), "", "events_list", nil)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, codeServerError, resp.Error.Code)
}

func TestHubStreamsFilteredEvents(t *testing.T) {
	node := newTestNode(t)
	hub := NewHub(nil)
	node.AddSink(hub)
	srv := httptest.NewServer(NewServer(node, ServerConfig{Hub: hub}).Router())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?type=token.transfer"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = node.Approve(ctx, testAcc0, testAcc1, big.NewInt(1))
	require.NoError(t, err)
	_, err = node.Transfer(ctx, testAcc0, testAcc1, big.NewInt(3))
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var rec types.EventRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "token.transfer", rec.Event.Type)
	require.Equal(t, uint64(2), rec.Height)
}
