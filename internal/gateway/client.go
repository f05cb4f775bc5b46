// Package gateway is the HTTP client for the remote update endpoint
// consumed by the dashboard reconciler.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"troupe/internal/core"
	"troupe/internal/dashboard"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 1 << 20
)

// Client talks to the troupe API server's finance endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ dashboard.Gateway = (*Client)(nil)

// NewClient creates a gateway client for the given base URL, e.g.
// "http://localhost:8081".
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, patch dashboard.Patch) (core.Invoice, error) {
	var out core.Invoice
	err := c.patchEntity(ctx, "invoices", id, patch, &out)
	return out, err
}

func (c *Client) UpdatePayment(ctx context.Context, id string, patch dashboard.Patch) (core.Payment, error) {
	var out core.Payment
	err := c.patchEntity(ctx, "payments", id, patch, &out)
	return out, err
}

func (c *Client) UpdateRefund(ctx context.Context, id string, patch dashboard.Patch) (core.Refund, error) {
	var out core.Refund
	err := c.patchEntity(ctx, "refunds", id, patch, &out)
	return out, err
}

func (c *Client) UpdateBudget(ctx context.Context, id string, patch dashboard.Patch) (core.Budget, error) {
	var out core.Budget
	err := c.patchEntity(ctx, "budget", id, patch, &out)
	return out, err
}

// Dashboard fetches the full aggregate from the server, expenses
// already derived.
func (c *Client) Dashboard(ctx context.Context) (core.DashboardAggregate, error) {
	var agg core.DashboardAggregate
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/dashboard", nil)
	if err != nil {
		return agg, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return agg, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return agg, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return agg, rejectionError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, &agg); err != nil {
		return agg, fmt.Errorf("decode dashboard: %w", err)
	}
	return agg, nil
}

// patchEntity sends a partial update carrying only the fields to
// change and decodes the full updated record from the response.
func (c *Client) patchEntity(ctx context.Context, path, id string, patch dashboard.Patch, out any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	url := c.baseURL + "/api/finance/" + path + "/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejectionError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode updated entity: %w", err)
	}
	return nil
}

// transportError keeps context cancellation visible so the reconciler
// can classify late responses as stale instead of unavailable.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", dashboard.ErrGatewayUnavailable, err)
}

// rejectionError surfaces the server's message; any 4xx/5xx is a
// rejection at this layer.
func rejectionError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s (status %d)", dashboard.ErrRemoteRejected, msg, status)
}
