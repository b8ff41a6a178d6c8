// Package stellar implements the chains collaborators against Stellar:
// Horizon for reads, Soroban RPC and the stellar CLI for signed contract calls.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"golang.org/x/time/rate"

	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/observability/metrics"
)

// Horizon is a chains.Explorer backed by the SDK Horizon client, with a
// local rate limit and result cache in front of it.
type Horizon struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	txCache    *expirable.LRU[string, chains.Transaction]
	opsCache   *expirable.LRU[string, []chains.Operation]
}

// HorizonOption configures a Horizon explorer.
type HorizonOption func(*Horizon)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HorizonOption {
	return func(h *Horizon) {
		h.httpClient = c
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(rps int) HorizonOption {
	return func(h *Horizon) {
		if rps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// WithCache caches transactions and their operations. Ledger history is
// immutable, so entries only expire to bound memory.
func WithCache(size int, ttl time.Duration) HorizonOption {
	return func(h *Horizon) {
		if size > 0 {
			h.txCache = expirable.NewLRU[string, chains.Transaction](size, nil, ttl)
			h.opsCache = expirable.NewLRU[string, []chains.Operation](size, nil, ttl)
		}
	}
}

// NewHorizon creates a Horizon explorer.
func NewHorizon(baseURL string, opts ...HorizonOption) *Horizon {
	h := &Horizon{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Transaction fetches a transaction by hash.
func (h *Horizon) Transaction(ctx context.Context, hash string) (*chains.Transaction, error) {
	if h.txCache != nil {
		if tx, ok := h.txCache.Get(hash); ok {
			metrics.ExplorerCache("hit")
			return &tx, nil
		}
		metrics.ExplorerCache("miss")
	}

	if err := h.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := h.client(ctx).TransactionDetail(hash)
	if err != nil {
		return nil, horizonError("transaction "+hash, err)
	}

	tx := chains.Transaction{
		Hash:          raw.Hash,
		SourceAccount: raw.Account,
		Memo:          raw.Memo,
		MemoType:      raw.MemoType,
		Successful:    raw.Successful,
		CreatedAt:     raw.LedgerCloseTime,
	}
	if h.txCache != nil {
		h.txCache.Add(hash, tx)
	}
	return &tx, nil
}

// Operations fetches the operations of a transaction.
func (h *Horizon) Operations(ctx context.Context, hash string) ([]chains.Operation, error) {
	if h.opsCache != nil {
		if ops, ok := h.opsCache.Get(hash); ok {
			metrics.ExplorerCache("hit")
			return ops, nil
		}
		metrics.ExplorerCache("miss")
	}

	if err := h.wait(ctx); err != nil {
		return nil, err
	}
	page, err := h.client(ctx).Operations(horizonclient.OperationRequest{
		ForTransaction: hash,
		Limit:          200,
	})
	if err != nil {
		return nil, horizonError("operations of "+hash, err)
	}

	ops := make([]chains.Operation, 0, len(page.Embedded.Records))
	for _, r := range page.Embedded.Records {
		ops = append(ops, chains.Operation{ID: r.GetID(), Type: r.GetType()})
	}
	if h.opsCache != nil {
		h.opsCache.Add(hash, ops)
	}
	return ops, nil
}

func (h *Horizon) wait(ctx context.Context) error {
	if h.limiter == nil {
		return nil
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

// client binds ctx to the SDK client, whose request methods take none.
func (h *Horizon) client(ctx context.Context) *horizonclient.Client {
	return &horizonclient.Client{
		HorizonURL: h.baseURL,
		HTTP:       ctxDoer{ctx: ctx, base: h.httpClient},
		AppName:    "zktrails",
	}
}

func horizonError(what string, err error) error {
	var hErr *horizonclient.Error
	if errors.As(err, &hErr) && hErr.Response != nil {
		if hErr.Response.StatusCode == http.StatusNotFound {
			return chains.ErrTxNotFound
		}
		return fmt.Errorf("horizon returned status %d for %s: %s", hErr.Response.StatusCode, what, hErr.Problem.Title)
	}
	return fmt.Errorf("requesting %s: %w", what, err)
}

// ctxDoer satisfies horizonclient.HTTP and runs every request under ctx.
type ctxDoer struct {
	ctx  context.Context
	base *http.Client
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.base.Do(req.WithContext(d.ctx))
}

func (d ctxDoer) Get(u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return d.base.Do(req)
}

func (d ctxDoer) PostForm(u string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return d.base.Do(req)
}
