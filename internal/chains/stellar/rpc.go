package stellar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// RPC is a minimal Soroban JSON-RPC client.
type RPC struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewRPC creates a Soroban RPC client.
func NewRPC(url string, httpClient *http.Client) *RPC {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RPC{url: url, httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SendResult is the answer to sendTransaction.
type SendResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	LatestLedger   int64  `json:"latestLedger"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
}

// SendTransaction submits a signed transaction envelope (base64 XDR).
func (c *RPC) SendTransaction(ctx context.Context, envelope string) (*SendResult, error) {
	var result SendResult
	if err := c.call(ctx, "sendTransaction", map[string]string{"transaction": envelope}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health is the answer to getHealth.
type Health struct {
	Status       string `json:"status"`
	LatestLedger int64  `json:"latestLedger"`
}

// GetHealth reports whether the RPC node is serving.
func (c *RPC) GetHealth(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.call(ctx, "getHealth", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RPC) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(msg))
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if err := json.Unmarshal(rr.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}
