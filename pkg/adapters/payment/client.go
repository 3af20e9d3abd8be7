// Package payment implements ports.PaymentClient against a PIX cash-in HTTP API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/drip/internal/logging"
	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 15 * time.Second

// Client talks to the provider's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.PaymentClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithLogger configures a logger for provider responses.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for baseURL authenticated with a bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cashInRequest struct {
	Value float64 `json:"value"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
}

type cashInResponse struct {
	QRCodeBase64 string `json:"qr_code_base64"`
	QRCode       string `json:"qr_code"`
	ID           string `json:"id"`
}

type transactionResponse struct {
	QRCodeStatus string `json:"qrcode_status"`
	Status       string `json:"status"`
}

// CreatePayment requests a PIX charge. The payer is an anonymous placeholder.
func (c *Client) CreatePayment(ctx context.Context, amount float64) (domain.PaymentRequest, error) {
	ref := uuid.NewString()[:8]
	body, err := json.Marshal(cashInRequest{
		Value: amount,
		Name:  "Customer " + ref,
		Email: "customer-" + ref + "@example.com",
	})
	if err != nil {
		return domain.PaymentRequest{}, err
	}

	var out cashInResponse
	if err := c.do(ctx, http.MethodPost, "/pix/cashIn", bytes.NewReader(body), &out); err != nil {
		return domain.PaymentRequest{}, fmt.Errorf("failed to create payment: %w", err)
	}
	if out.ID == "" {
		return domain.PaymentRequest{}, fmt.Errorf("failed to create payment: response without id")
	}

	c.logger.Debug("Payment created", "payment_id", out.ID, "amount", amount)
	return domain.PaymentRequest{QRImage: out.QRCodeBase64, QRText: out.QRCode, ID: out.ID}, nil
}

// CheckPaymentStatus fetches the transaction status.
func (c *Client) CheckPaymentStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	var out transactionResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(paymentID), nil, &out); err != nil {
		return domain.PaymentStatus{}, fmt.Errorf("failed to check payment %s: %w", paymentID, err)
	}

	// Either field may report settlement first.
	status := out.QRCodeStatus
	switch {
	case out.QRCodeStatus == domain.PaymentPaid || out.Status == domain.PaymentPaid:
		status = domain.PaymentPaid
	case status == "":
		status = out.Status
	}
	c.logger.Debug("Payment status", "payment_id", paymentID, "status", status)
	return domain.PaymentStatus{Status: status}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
