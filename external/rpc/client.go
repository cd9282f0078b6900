// Package rpc implements the ledger client against the node's JSON-RPC
// endpoint: holding account lookup, account existence, asset precision and
// the submission of signed transactions.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/wagervs/go-token-distributor/entities"
)

type Client struct {
	httpClient *http.Client
	url        string
	requestID  atomic.Uint64
}

func NewClient(url string) *Client {
	return &Client{
		httpClient: http.DefaultClient,
		url:        url,
	}
}

type rpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JsonRpc: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshalling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling rpc method %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc method %s returned status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding response: %v", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc method %s failed: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("unmarshalling result: %v", err)
	}

	return nil
}

// GetHoldingAccount looks up the owner's existing holding account for an
// asset. Returns entities.ErrAccountNotFound when the owner holds none.
func (c *Client) GetHoldingAccount(ctx context.Context, ownerAddress, assetID string) (string, error) {
	var result struct {
		Value []struct {
			Pubkey string `json:"pubkey"`
		} `json:"value"`
	}

	params := []any{ownerAddress, map[string]string{"asset": assetID}}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return "", err
	}

	if len(result.Value) == 0 {
		return "", entities.ErrAccountNotFound
	}

	return result.Value[0].Pubkey, nil
}

func (c *Client) AccountExists(ctx context.Context, account string) (bool, error) {
	var result struct {
		Value *json.RawMessage `json:"value"`
	}

	if err := c.call(ctx, "getAccountInfo", []any{account}, &result); err != nil {
		return false, err
	}

	return result.Value != nil, nil
}

func (c *Client) GetAssetPrecision(ctx context.Context, assetID string) (int32, error) {
	var result struct {
		Value struct {
			Decimals int32 `json:"decimals"`
		} `json:"value"`
	}

	if err := c.call(ctx, "getTokenSupply", []any{assetID}, &result); err != nil {
		return 0, err
	}

	return result.Value.Decimals, nil
}

// Submit broadcasts a signed transaction and returns its settlement token.
func (c *Client) Submit(ctx context.Context, tx entities.SignedTransaction) (string, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("marshalling transaction: %v", err)
	}

	var token string
	encoded := base64.StdEncoding.EncodeToString(payload)
	if err := c.call(ctx, "sendTransaction", []any{encoded}, &token); err != nil {
		return "", err
	}

	return token, nil
}
