// Package orderclient provides the HTTP client for the remote order service.
package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creamcroissant/orderwatch/internal/order"
)

// Client talks to the order REST API. It owns no business logic.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a new order service client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  ContextToken(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CreateOrderRequest is the request body for creating an order.
type CreateOrderRequest struct {
	EventID      string `json:"eventId"`
	TicketTypeID string `json:"ticketTypeId,omitempty"`
	Quantity     int    `json:"quantity"`
	PromoCode    string `json:"promoCode,omitempty"`
}

// UpdateStatusRequest is the request body for changing an order's payment status.
type UpdateStatusRequest struct {
	PaymentStatus order.PaymentStatus `json:"paymentStatus"`
}

// GetOrderByID fetches a single order.
func (c *Client) GetOrderByID(ctx context.Context, id string) (*order.Order, error) {
	var result order.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOrders returns the orders visible to the current token.
func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var result []order.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateOrder places a new order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	var result order.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOrderStatus asks the backend to move an order to status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status order.PaymentStatus) (*order.Order, error) {
	var result order.Order
	body := UpdateStatusRequest{PaymentStatus: status}
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks if the order service is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) setAuth(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens.Token(req.Context()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
