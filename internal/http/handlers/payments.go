package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/payment"
)

// SignatureHeader carries the hex HMAC-SHA256 of a gateway callback body.
const SignatureHeader = "X-Webhook-Signature"

// PaymentRequest optionally overrides where the gateway sends the user back.
type PaymentRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// CallbackRequest is the gateway notification about a payment outcome.
type CallbackRequest struct {
	ConfirmationToken string `json:"confirmationToken"`
	Outcome           string `json:"outcome"`
}

func CreatePaymentHandler(coord *payment.Coordinator, defaultReturnURL string) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		if coord == nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "PaymentsDisabled", Message: "payment gateway is not configured"})
			return
		}
		var req PaymentRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				WriteError(w, r, err)
				return
			}
		}
		if req.ReturnURL == "" {
			req.ReturnURL = defaultReturnURL
		}
		intent, err := coord.CreatePaymentIntent(r.Context(), actor, chi.URLParam(r, "id"), req.ReturnURL)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, intent)
	})
}

// PaymentCallbackHandler settles a payment. When secret is set the body must carry a valid signature.
func PaymentCallbackHandler(coord *payment.Coordinator, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if coord == nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "PaymentsDisabled", Message: "payment gateway is not configured"})
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		if secret != "" && !ValidSignature(secret, body, r.Header.Get(SignatureHeader)) {
			log.Warn("Rejected payment callback with bad signature", "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "invalid signature"})
			return
		}

		var req CallbackRequest
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		outcome, err := parseOutcome(req.Outcome)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		p, err := coord.OnGatewayCallback(r.Context(), req.ConfirmationToken, outcome)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// ValidSignature checks sig against the HMAC-SHA256 of body under secret.
func ValidSignature(secret string, body []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// parseOutcome accepts the service statuses as well as the gateway's own names.
func parseOutcome(s string) (lifecycle.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded":
		return lifecycle.PaymentSucceeded, nil
	case "failed":
		return lifecycle.PaymentFailed, nil
	case "cancelled", "canceled":
		return lifecycle.PaymentCancelled, nil
	case "pending":
		return lifecycle.PaymentPending, nil
	}
	return "", fmt.Errorf("unknown outcome %q: %w", s, lifecycle.ErrInvalidInput)
}
