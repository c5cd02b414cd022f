package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/domain"
)

// Client talks to the payment gateway. Only the cancellation orchestrator
// uses it; refunds are never issued outside the orchestrated path.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type Order struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type CancelRequest struct {
	OrderID       string `json:"orderId"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type CancelResponse struct {
	Cancellation struct {
		Status string `json:"status"`
	} `json:"cancellation"`
	Refund domain.RefundOutcome `json:"refund"`
}

// GetOrder looks up an order by the gateway-assigned id.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+id, nil, &order); err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &order, nil
}

// CancelWithRefund runs the combined provider-cancel plus refund/void flow
// on the gateway side. Any failure is reported as unreachable so the
// caller can fall back to an inventory-only cancellation.
func (c *Client) CancelWithRefund(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	var out CancelResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders/cancel-with-refund", req, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancellationUnreachable, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
