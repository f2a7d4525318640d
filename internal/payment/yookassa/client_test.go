package yookassa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	mockJSONResponse := `{
		"id": "2d5a1f3e-000f-5000-9000-1b68e7b15f3f",
		"status": "pending",
		"paid": false,
		"amount": { "value": "1500.00", "currency": "RUB" },
		"confirmation": { "type": "redirect", "confirmation_url": "https://yoomoney.ru/checkout/payments/v2/contract?orderId=2d5a" },
		"metadata": { "registration_id": "reg-1" }
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/payments", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)

		var body paymentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1500.00", body.Amount.Value)
		assert.Equal(t, "redirect", body.Confirmation.Type)
		assert.Equal(t, "https://app.example/return", body.Confirmation.ReturnURL)
		assert.True(t, body.Capture)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, mockJSONResponse)
	}))
	defer server.Close()

	client := NewClient("shop", "secret")
	client.httpClient = server.Client()
	client.BaseURL = server.URL

	p, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:    decimal.RequireFromString("1500"),
		Currency:  "RUB",
		ReturnURL: "https://app.example/return",
		Metadata:  map[string]string{"registration_id": "reg-1"},
	}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "2d5a1f3e-000f-5000-9000-1b68e7b15f3f", p.ID)
	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, decimal.RequireFromString("1500").Equal(p.Amount))
	assert.Contains(t, p.ConfirmationURL, "yoomoney.ru")
	assert.Equal(t, "reg-1", p.Metadata["registration_id"])
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/payments/pay-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"id":"pay-1","status":"succeeded","paid":true,"amount":{"value":"10.00","currency":"RUB"}}`)
	}))
	defer server.Close()

	client := NewClient("shop", "secret")
	client.httpClient = server.Client()
	client.BaseURL = server.URL

	p, err := client.GetPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, p.Status)
	assert.True(t, p.Paid)
	assert.Empty(t, p.ConfirmationURL)
}

func TestProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, `{"type":"error","id":"e1","code":"invalid_request","description":"Idempotence key is missing"}`)
	}))
	defer server.Close()

	client := NewClient("shop", "secret")
	client.httpClient = server.Client()
	client.BaseURL = server.URL

	_, err := client.GetPayment(context.Background(), "pay-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request")
}

func TestMockIsIdempotentPerKey(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()
	req := CreatePaymentRequest{Amount: decimal.NewFromInt(5), Currency: "RUB"}

	a, err := m.CreatePayment(ctx, req, "k")
	require.NoError(t, err)
	b, err := m.CreatePayment(ctx, req, "k")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	m.SetStatus(a.ID, StatusSucceeded)
	p, err := m.GetPayment(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, p.Paid)
}
