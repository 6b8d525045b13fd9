// Package client is the Go client for the relay HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Outcome is the result of a submission. Error and Signature are mutually
// exclusive: a failed submission carries a reason, a live one carries a
// signature.
type Outcome struct {
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
	Slot      uint64 `json:"slot,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Submission is a journal row as returned by the server.
type Submission struct {
	ID        string    `json:"id"`
	Signature *string   `json:"signature"`
	Signer    string    `json:"signer"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Status    string    `json:"status"`
	Slot      *int64    `json:"slot"`
	Attempts  int32     `json:"attempts"`
	Error     *string   `json:"error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the live on-chain view of a signature.
type Status struct {
	Signature string `json:"signature"`
	State     string `json:"state"`
	Slot      uint64 `json:"slot"`
	Error     string `json:"error,omitempty"`
}

// WalletInfo describes the relay's signing wallet.
type WalletInfo struct {
	Configured bool   `json:"configured"`
	PublicKey  string `json:"public_key,omitempty"`
}

// Concentration describes how much of a token's supply sits with its
// largest holders. A nil value means the lookup could not be completed.
type Concentration struct {
	Top5Pct    float64 `json:"top5_pct"`
	Top10Pct   float64 `json:"top10_pct"`
	LargestPct float64 `json:"largest_pct"`
}

// Client is the HTTP client for the relay service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a relay client. The default timeout is 60s because a
// submission holds the request open through the server's confirmation poll
// budget.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Submit sends a base64-encoded transaction through the relay and waits for
// the outcome. A non-nil error means the request itself failed; a failed
// transaction comes back as an Outcome with its Error field set.
func (c *Client) Submit(ctx context.Context, base64Tx string) (*Outcome, error) {
	body, err := json.Marshal(map[string]string{"transaction": base64Tx})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var outcome Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("transaction submitted",
		"signature", outcome.Signature,
		"confirmed", outcome.Confirmed,
	)
	return &outcome, nil
}

// GetSubmission retrieves the journal row for a signature.
func (c *Client) GetSubmission(ctx context.Context, signature string) (*Submission, error) {
	u := fmt.Sprintf("%s/api/v1/submissions/%s", c.baseURL, url.PathEscape(signature))

	var sub Submission
	if err := c.getJSON(ctx, u, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions retrieves recent journal rows, newest first. limit <= 0
// uses the server default.
func (c *Client) ListSubmissions(ctx context.Context, limit int) ([]*Submission, error) {
	u := c.baseURL + "/api/v1/submissions"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	var response struct {
		Submissions []*Submission `json:"submissions"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return nil, err
	}
	return response.Submissions, nil
}

// Status runs a live one-shot status check for a signature.
func (c *Client) Status(ctx context.Context, signature string) (*Status, error) {
	u := fmt.Sprintf("%s/api/v1/submissions/%s/status", c.baseURL, url.PathEscape(signature))

	var status Status
	if err := c.getJSON(ctx, u, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Wallet retrieves the relay's signing wallet info.
func (c *Client) Wallet(ctx context.Context) (*WalletInfo, error) {
	var info WalletInfo
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/wallet", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Balance retrieves a wallet's lamport balance.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	u := fmt.Sprintf("%s/api/v1/wallets/%s/balance", c.baseURL, url.PathEscape(address))

	var response struct {
		Lamports uint64 `json:"lamports"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return 0, err
	}
	return response.Lamports, nil
}

// TokenBalance retrieves a wallet's raw token amount for a mint.
func (c *Client) TokenBalance(ctx context.Context, address, mint string) (uint64, error) {
	u := fmt.Sprintf("%s/api/v1/wallets/%s/tokens/%s/balance",
		c.baseURL, url.PathEscape(address), url.PathEscape(mint))

	var response struct {
		Amount uint64 `json:"amount"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return 0, err
	}
	return response.Amount, nil
}

// TokenAccount resolves a wallet's token account address for a mint.
func (c *Client) TokenAccount(ctx context.Context, address, mint string) (string, error) {
	u := fmt.Sprintf("%s/api/v1/wallets/%s/tokens/%s/account",
		c.baseURL, url.PathEscape(address), url.PathEscape(mint))

	var response struct {
		Account string `json:"account"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return "", err
	}
	return response.Account, nil
}

// Decimals retrieves a mint's decimal count.
func (c *Client) Decimals(ctx context.Context, mint string) (uint8, error) {
	u := fmt.Sprintf("%s/api/v1/tokens/%s/decimals", c.baseURL, url.PathEscape(mint))

	var response struct {
		Decimals uint8 `json:"decimals"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return 0, err
	}
	return response.Decimals, nil
}

// Concentration retrieves holder concentration for a mint. A nil result
// with a nil error means the server could not complete the lookup.
func (c *Client) Concentration(ctx context.Context, mint string) (*Concentration, error) {
	u := fmt.Sprintf("%s/api/v1/tokens/%s/concentration", c.baseURL, url.PathEscape(mint))

	var response struct {
		Concentration *Concentration `json:"concentration"`
	}
	if err := c.getJSON(ctx, u, &response); err != nil {
		return nil, err
	}
	return response.Concentration, nil
}

// getJSON performs a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
