package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/observability"
)

const maxResponseBodyBytes int64 = 1 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Gateway = (*HTTPClient)(nil)

// HTTPClient calls the ledger service over POST /mint, /list and /transfer.
type HTTPClient struct {
	baseURL string
	client  HTTPDoer
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHTTPClient builds a client whose every call is bounded by cfg.Timeout.
func NewHTTPClient(cfg config.LedgerConfig, logger *zap.Logger, metrics *observability.Metrics) *HTTPClient {
	return NewHTTPClientWithDoer(cfg.URL, &http.Client{Timeout: cfg.Timeout()}, logger, metrics)
}

// NewHTTPClientWithDoer is NewHTTPClient with a caller supplied transport.
func NewHTTPClientWithDoer(baseURL string, doer HTTPDoer, logger *zap.Logger, metrics *observability.Metrics) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  doer,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *HTTPClient) Mode() string {
	return ModeHTTP
}

type mintPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	EventDate   string          `json:"eventDate"`
	Seat        string          `json:"seat"`
	Price       decimal.Decimal `json:"price"`
	Owner       string          `json:"owner,omitempty"`
}

type listPayload struct {
	MintAddress string          `json:"mintAddress"`
	Price       decimal.Decimal `json:"price"`
}

type transferPayload struct {
	MintAddress string          `json:"mintAddress"`
	FromWallet  string          `json:"fromWallet"`
	ToWallet    string          `json:"toWallet"`
	Price       decimal.Decimal `json:"price"`
}

type ledgerResponse struct {
	Success                bool   `json:"success"`
	Error                  string `json:"error"`
	Kind                   string `json:"kind"`
	MintAddress            string `json:"mintAddress"`
	NFTSignature           string `json:"nftSignature"`
	SmartContractSignature string `json:"smartContractSignature"`
	Transaction            string `json:"transaction"`
}

func (r ledgerResponse) proof() string {
	switch {
	case r.SmartContractSignature != "":
		return r.SmartContractSignature
	case r.Transaction != "":
		return r.Transaction
	default:
		return r.NFTSignature
	}
}

func (c *HTTPClient) Mint(ctx context.Context, req MintRequest) (MintReceipt, error) {
	resp, err := c.post(ctx, "mint", "", mintPayload{
		Name:        req.Item.Name,
		Description: req.Item.Description,
		EventDate:   req.Item.EventDate,
		Seat:        req.Item.Seat,
		Price:       req.Item.Price,
		Owner:       req.Owner,
	})
	if err != nil {
		return MintReceipt{}, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	if !resp.Success {
		return MintReceipt{}, fmt.Errorf("%w: %s", ErrMintFailed, resp.Error)
	}
	if resp.MintAddress == "" {
		return MintReceipt{}, fmt.Errorf("%w: response carried no mint address", ErrMintFailed)
	}
	return MintReceipt{MintAddress: resp.MintAddress, Proof: resp.proof()}, nil
}

func (c *HTTPClient) List(ctx context.Context, mint string, price decimal.Decimal) (Receipt, error) {
	resp, err := c.post(ctx, "list", mint, listPayload{MintAddress: mint, Price: price})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := rejection("list", resp); err != nil {
		return Receipt{}, err
	}
	return Receipt{Proof: resp.proof()}, nil
}

func (c *HTTPClient) Transfer(ctx context.Context, mint, from, to string, price decimal.Decimal) (Receipt, error) {
	resp, err := c.post(ctx, "transfer", mint, transferPayload{
		MintAddress: mint,
		FromWallet:  from,
		ToWallet:    to,
		Price:       price,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := rejection("transfer", resp); err != nil {
		return Receipt{}, err
	}
	return Receipt{Proof: resp.proof()}, nil
}

// rejection turns an unsuccessful response into a RejectedError when the kind
// is recognised and ErrUnavailable otherwise.
func rejection(op string, resp ledgerResponse) error {
	if resp.Success {
		return nil
	}
	if kind, ok := parseKind(resp.Kind); ok {
		return &RejectedError{Op: op, Kind: kind}
	}
	if kind, ok := classify(resp.Error); ok {
		return &RejectedError{Op: op, Kind: kind}
	}
	return fmt.Errorf("%w: %s %s", ErrUnavailable, op, resp.Error)
}

func (c *HTTPClient) post(ctx context.Context, op, mint string, payload any) (ledgerResponse, error) {
	start := time.Now()
	resp, err := c.do(ctx, op, payload)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case !resp.Success:
		outcome = "rejected"
	}
	c.metrics.RecordLedgerCall(op, outcome)

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("mint", mint),
		zap.Duration("duration", time.Since(start)),
		zap.String("outcome", outcome),
	}
	if err != nil {
		c.logger.Warn("ledger call failed", append(fields, zap.Error(err))...)
	} else if !resp.Success {
		c.logger.Info("ledger call rejected", append(fields, zap.String("ledger_error", resp.Error))...)
	} else {
		c.logger.Info("ledger call", fields...)
	}
	return resp, err
}

func (c *HTTPClient) do(ctx context.Context, op string, payload any) (ledgerResponse, error) {
	if c.baseURL == "" || c.client == nil {
		return ledgerResponse{}, fmt.Errorf("ledger url not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ledgerResponse{}, fmt.Errorf("encode %s request: %w", op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return ledgerResponse{}, fmt.Errorf("create %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return ledgerResponse{}, fmt.Errorf("execute %s request: %w", op, err)
	}
	defer httpRes.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, maxResponseBodyBytes))
	if err != nil {
		return ledgerResponse{}, fmt.Errorf("read %s response: %w", op, err)
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return ledgerResponse{}, fmt.Errorf("%s returned status %d", op, httpRes.StatusCode)
	}

	var resp ledgerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ledgerResponse{}, fmt.Errorf("decode %s response: %w", op, err)
	}
	return resp, nil
}
