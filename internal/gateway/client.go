package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Faraz011/virasat-backend/pkg/httpclient"
)

// Order is a payment order created on the gateway ahead of the client-side
// checkout widget. Amount is in minor units (paise).
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Client calls the payment gateway's server API. Requests go through a
// circuit breaker so a flapping gateway fails fast instead of tying up
// checkout requests.
type Client struct {
	http      *httpclient.CircuitBreakerClient
	baseURL   string
	keyID     string
	keySecret string
	logger    *slog.Logger
}

// NewClient creates a gateway API client authenticated with the key pair.
func NewClient(baseURL, keyID, keySecret string, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("payment-gateway"), logger)

	return &Client{
		http:      cb,
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logger,
	}
}

// KeyID returns the public key id the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

// CreateOrder creates a payment order on the gateway for the given amount in
// minor units.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gateway order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gateway create order: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "payment-gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode gateway order response: %w", err)
	}

	c.logger.InfoContext(ctx, "gateway order created",
		slog.String("gateway_order_id", order.ID),
		slog.Int64("amount", order.Amount),
		slog.String("currency", order.Currency),
	)

	return &order, nil
}
