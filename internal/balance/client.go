package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ERC-20 function selectors.
const (
	selectorBalanceOf = "0x70a08231"
	selectorDecimals  = "0x313ce567"
)

const fetchAttempts = 3

// Client reads an ERC-20 token balance through an Ethereum JSON-RPC endpoint.
// Failures are transient from the caller's point of view; the client retries
// a few times with backoff inside a single Balance call and then gives up.
type Client struct {
	rpcURL     string
	token      string // token contract address, lowercase 0x-prefixed
	httpClient *http.Client
	log        *zap.Logger

	mu       sync.Mutex
	decimals int32
	haveDec  bool
}

// New creates a balance client for one token contract.
func New(rpcURL, tokenAddress string, log *zap.Logger) *Client {
	return &Client{
		rpcURL: rpcURL,
		token:  strings.ToLower(tokenAddress),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Balance returns the token balance of address as a human-unit decimal
// (raw integer amount scaled down by the token's decimals).
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	dec, err := c.tokenDecimals(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("token decimals: %w", err)
	}

	data := selectorBalanceOf + leftPadAddress(address)
	raw, err := c.ethCallRetry(ctx, data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf %s: %w", address, err)
	}
	return decimal.NewFromBigInt(raw, -dec), nil
}

// tokenDecimals fetches and caches the token's decimals value.
func (c *Client) tokenDecimals(ctx context.Context) (int32, error) {
	c.mu.Lock()
	if c.haveDec {
		d := c.decimals
		c.mu.Unlock()
		return d, nil
	}
	c.mu.Unlock()

	raw, err := c.ethCallRetry(ctx, selectorDecimals)
	if err != nil {
		return 0, err
	}
	if !raw.IsInt64() || raw.Int64() < 0 || raw.Int64() > 77 {
		return 0, fmt.Errorf("implausible decimals value %s", raw)
	}
	d := int32(raw.Int64())

	c.mu.Lock()
	c.decimals = d
	c.haveDec = true
	c.mu.Unlock()
	return d, nil
}

// ethCallRetry runs an eth_call with bounded retry: 1s, 2s backoff between
// attempts, aborting early if ctx is done.
func (c *Client) ethCallRetry(ctx context.Context, data string) (*big.Int, error) {
	var lastErr error
	for i := 0; i < fetchAttempts; i++ {
		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		res, err := c.ethCall(ctx, data)
		if err == nil {
			return res, nil
		}
		lastErr = err
		c.log.Warn("eth_call attempt failed",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

func (c *Client) ethCall(ctx context.Context, data string) (*big.Int, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": c.token, "data": data},
			"latest",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return parseHexQuantity(out.Result)
}

// parseHexQuantity decodes a 0x-prefixed hex string into a big.Int.
// An empty result ("0x") counts as zero.
func parseHexQuantity(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity %q", s)
	}
	return n, nil
}

// leftPadAddress encodes an address as a 32-byte ABI argument (no 0x prefix).
func leftPadAddress(addr string) string {
	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	return strings.Repeat("0", 64-len(addr)) + addr
}
