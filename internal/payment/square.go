// Package payment charges and refunds guest cards through the Square
// Payments API. The booking core treats payment as an opaque collaborator:
// a charge either yields a payment reference or fails.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
)

// Client talks to the Square Payments API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	locationID  string
}

// NewClient constructs a Square client. environment selects "production";
// anything else uses the sandbox.
func NewClient(accessToken, locationID, environment string) *Client {
	base := sandboxBaseURL
	if environment == "production" {
		base = productionBaseURL
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     base,
		accessToken: accessToken,
		locationID:  locationID,
	}
}

// newClientForTest is used by tests to point the client at a local server.
func newClientForTest(baseURL, accessToken, locationID string) *Client {
	c := NewClient(accessToken, locationID, "sandbox")
	c.baseURL = baseURL
	return c
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Charge captures amountCents from the card identified by sourceToken (the
// one-time token minted by Square's web payments SDK) and returns Square's
// payment id. Each call carries a fresh idempotency key, so a network-level
// retry cannot double-charge the guest.
func (c *Client) Charge(ctx context.Context, sourceToken string, amountCents int64, note string) (string, error) {
	reqBody := struct {
		SourceID       string `json:"source_id"`
		IdempotencyKey string `json:"idempotency_key"`
		AmountMoney    money  `json:"amount_money"`
		LocationID     string `json:"location_id"`
		Note           string `json:"note,omitempty"`
	}{
		SourceID:       sourceToken,
		IdempotencyKey: uuid.NewString(),
		AmountMoney:    money{Amount: amountCents, Currency: "USD"},
		LocationID:     c.locationID,
		Note:           note,
	}

	var respBody struct {
		Payment struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payment"`
	}
	if err := c.post(ctx, "/v2/payments", reqBody, &respBody); err != nil {
		return "", fmt.Errorf("payment.Client.Charge: %w", err)
	}

	if respBody.Payment.Status != "COMPLETED" {
		return "", fmt.Errorf("payment.Client.Charge: payment status %q", respBody.Payment.Status)
	}
	return respBody.Payment.ID, nil
}

// Refund reverses a captured payment in full. Used when a booking loses the
// commit race after its charge succeeded.
func (c *Client) Refund(ctx context.Context, paymentID string, amountCents int64) error {
	reqBody := struct {
		IdempotencyKey string `json:"idempotency_key"`
		PaymentID      string `json:"payment_id"`
		AmountMoney    money  `json:"amount_money"`
		Reason         string `json:"reason"`
	}{
		IdempotencyKey: uuid.NewString(),
		PaymentID:      paymentID,
		AmountMoney:    money{Amount: amountCents, Currency: "USD"},
		Reason:         "dates no longer available",
	}

	if err := c.post(ctx, "/v2/refunds", reqBody, &struct{}{}); err != nil {
		return fmt.Errorf("payment.Client.Refund: %w", err)
	}
	return nil
}

// squareError mirrors Square's error envelope.
type squareError struct {
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

// post sends a JSON request and decodes either the success body or Square's
// error envelope.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var sqErr squareError
		if json.NewDecoder(resp.Body).Decode(&sqErr) == nil && len(sqErr.Errors) > 0 {
			first := sqErr.Errors[0]
			return fmt.Errorf("square %s: %s (%s)", resp.Status, first.Detail, first.Code)
		}
		return fmt.Errorf("square %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
