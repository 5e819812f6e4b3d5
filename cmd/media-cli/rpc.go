package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = os.Getenv("MEDIA_RPC_TOKEN")
	httpClient   = &http.Client{Timeout: 15 * time.Second}
)

// rpcCall is swapped out in tests.
var rpcCall = callRPC

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("MEDIA_RPC_URL")); v != "" {
		return v
	}
	return "http://127.0.0.1:8545/rpc"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth && strings.TrimSpace(rpcAuthToken) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error, nil
	}
	return decoded.Result, nil, nil
}

func handleRPCCallError(stderr io.Writer, err error) int {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		fmt.Fprintf(stderr, "Error: request to %s timed out\n", rpcEndpoint)
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func handleRPCError(stderr io.Writer, rpcErr *rpcError) int {
	if len(rpcErr.Data) > 0 && string(rpcErr.Data) != "null" {
		fmt.Fprintf(stderr, "Error %d: %s (%s)\n", rpcErr.Code, rpcErr.Message, string(rpcErr.Data))
	} else {
		fmt.Fprintf(stderr, "Error %d: %s\n", rpcErr.Code, rpcErr.Message)
	}
	return 1
}

func writeRPCResult(stdout io.Writer, result json.RawMessage) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(stdout, string(result))
		return
	}
	fmt.Fprintln(stdout, pretty.String())
}

// invoke runs one RPC and renders the outcome as an exit code.
func invoke(stdout, stderr io.Writer, method string, param interface{}, requireAuth bool) int {
	result, rpcErr, err := rpcCall(method, param, requireAuth)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}
