package openfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"spendsync/internal/domain/recurring"
	"spendsync/internal/domain/transaction"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultPageSize       = 500
	transactionsSyncPath  = "/transactions/sync"
	recurringStreamsPath  = "/transactions/recurring/get"
	maxErrorPayloadLength = 4096
)

// Config holds the provider credentials and client tuning.
type Config struct {
	BaseURL           string
	ClientID          string
	Secret            string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client handles communication with the provider API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	pageSize   int
	limiter    *rate.Limiter
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new provider API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// TransactionPage is one page of transaction deltas.
type TransactionPage struct {
	Added      []transaction.ProviderRecord
	Modified   []transaction.ProviderRecord
	Removed    []string
	NextCursor string
	HasMore    bool
}

// RecurringStreams is the provider's current snapshot of recurring streams.
type RecurringStreams struct {
	Inflow  []recurring.ProviderStream
	Outflow []recurring.ProviderStream
}

type syncOptions struct {
	IncludePersonalFinanceCategory bool `json:"include_personal_finance_category"`
}

type syncRequest struct {
	ClientID    string      `json:"client_id"`
	Secret      string      `json:"secret"`
	AccessToken string      `json:"access_token"`
	Cursor      string      `json:"cursor,omitempty"`
	Count       int         `json:"count"`
	Options     syncOptions `json:"options"`
}

type removedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

type syncResponse struct {
	Added      []transaction.ProviderRecord `json:"added"`
	Modified   []transaction.ProviderRecord `json:"modified"`
	Removed    []removedTransaction         `json:"removed"`
	NextCursor string                       `json:"next_cursor"`
	HasMore    bool                         `json:"has_more"`
	RequestID  string                       `json:"request_id"`
}

type recurringRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type recurringResponse struct {
	InflowStreams  []recurring.ProviderStream `json:"inflow_streams"`
	OutflowStreams []recurring.ProviderStream `json:"outflow_streams"`
	RequestID      string                     `json:"request_id"`
}

// ErrorResponse is the provider's error body.
type ErrorResponse struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

// FetchTransactionPage requests the deltas following cursor.
func (c *Client) FetchTransactionPage(ctx context.Context, accessToken, cursor string) (*TransactionPage, error) {
	reqBody := syncRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       c.pageSize,
		Options:     syncOptions{IncludePersonalFinanceCategory: true},
	}

	var resp syncResponse
	if err := c.post(ctx, transactionsSyncPath, reqBody, &resp); err != nil {
		return nil, err
	}

	page := &TransactionPage{
		Added:      resp.Added,
		Modified:   resp.Modified,
		Removed:    make([]string, 0, len(resp.Removed)),
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
	}
	for _, r := range resp.Removed {
		page.Removed = append(page.Removed, r.TransactionID)
	}
	return page, nil
}

// FetchRecurringStreams requests the owner's inflow and outflow streams.
func (c *Client) FetchRecurringStreams(ctx context.Context, accessToken string) (*RecurringStreams, error) {
	reqBody := recurringRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
	}

	var resp recurringResponse
	if err := c.post(ctx, recurringStreamsPath, reqBody, &resp); err != nil {
		return nil, err
	}

	return &RecurringStreams{
		Inflow:  resp.InflowStreams,
		Outflow: resp.OutflowStreams,
	}, nil
}

// post sends a JSON request and decodes a 200 response into out. Every
// failure is returned as a *ProviderRequestError.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderRequestError{Path: path, Err: err}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return &ProviderRequestError{Path: path, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ProviderRequestError{Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderRequestError{Path: path, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderRequestError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// Handle non-200 status codes
	if resp.StatusCode != http.StatusOK {
		perr := &ProviderRequestError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Payload:    truncate(body, maxErrorPayloadLength),
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			perr.ErrorType = errResp.ErrorType
			perr.ErrorCode = errResp.ErrorCode
			perr.Message = errResp.ErrorMessage
			perr.RequestID = errResp.RequestID
		}
		return perr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderRequestError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Payload:    truncate(body, maxErrorPayloadLength),
			Err:        fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
