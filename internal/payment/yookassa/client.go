package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.yookassa.ru"

// APIClient is a YooKassa REST client that implements the YooKassaClient interface.
type APIClient struct {
	httpClient *http.Client
	BaseURL    string
	shopID     string
	secretKey  string
}

// NewClient creates a client authenticated with the shop id and secret key.
func NewClient(shopID, secretKey string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    defaultBaseURL,
		shopID:     shopID,
		secretKey:  secretKey,
	}
}

// Ensure APIClient implements the YooKassaClient interface.
var _ YooKassaClient = (*APIClient)(nil)

// CreatePayment opens a redirect payment. Repeating a call with the same
// idempotence key returns the payment created by the first call.
func (c *APIClient) CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotenceKey string) (Payment, error) {
	body, err := json.Marshal(paymentRequest{
		Amount:       amount{Value: req.Amount.StringFixed(2), Currency: req.Currency},
		Capture:      true,
		Confirmation: confirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  req.Description,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return Payment{}, fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v3/payments", bytes.NewReader(body))
	if err != nil {
		return Payment{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Idempotence-Key", idempotenceKey)
	log.Debug("Creating payment", "amount", req.Amount, "currency", req.Currency, "idempotenceKey", idempotenceKey)
	return c.do(httpReq)
}

// GetPayment fetches the current state of a payment.
func (c *APIClient) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v3/payments/%s", c.BaseURL, paymentID), nil)
	if err != nil {
		return Payment{}, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(httpReq)
}

func (c *APIClient) do(req *http.Request) (Payment, error) {
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Payment{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			log.Error("Payment provider rejected request", "status", resp.StatusCode, "code", apiErr.Code, "description", apiErr.Description)
			return Payment{}, fmt.Errorf("payment provider error %s: %s", apiErr.Code, apiErr.Description)
		}
		log.Error("Received non-OK HTTP status from payment provider", "status", resp.StatusCode, "body", string(body))
		return Payment{}, fmt.Errorf("received non-OK HTTP status: %d", resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Payment{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return toPayment(pr)
}

func toPayment(pr paymentResponse) (Payment, error) {
	value, err := decimal.NewFromString(pr.Amount.Value)
	if err != nil {
		return Payment{}, fmt.Errorf("failed to parse amount %q: %w", pr.Amount.Value, err)
	}
	p := Payment{
		ID:       pr.ID,
		Status:   Status(pr.Status),
		Paid:     pr.Paid,
		Amount:   value,
		Currency: pr.Amount.Currency,
		Metadata: pr.Metadata,
	}
	if pr.Confirmation != nil {
		p.ConfirmationURL = pr.Confirmation.ConfirmationURL
	}
	return p, nil
}
