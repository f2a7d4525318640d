package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/identity"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// ContextKey is a custom type to avoid key collisions in context.
type ContextKey string

const (
	DryRunKey ContextKey = "dryRun"
	ActorKey  ContextKey = "actor"
)

// IsDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func IsDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(DryRunKey).(bool)
	return ok && dryRun
}

// ActorFromContext returns the caller resolved by the auth middleware.
func ActorFromContext(r *http.Request) (lifecycle.Actor, bool) {
	actor, ok := r.Context().Value(ActorKey).(lifecycle.Actor)
	return actor, ok
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps a domain error to its API code and HTTP status.
func statusOf(err error) (string, int) {
	var transition *lifecycle.TransitionError
	switch {
	case errors.Is(err, lifecycle.ErrRankRangeUnset), errors.Is(err, lifecycle.ErrRankNotAllowed):
		return "RankNotAllowed", http.StatusForbidden
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		return "NotAuthorized", http.StatusForbidden
	case errors.Is(err, lifecycle.ErrEventFull):
		return "EventFull", http.StatusConflict
	case errors.Is(err, lifecycle.ErrEventClosed):
		return "EventClosed", http.StatusConflict
	case errors.As(err, &transition), errors.Is(err, lifecycle.ErrInvalidTransition):
		return "InvalidTransition", http.StatusConflict
	case errors.Is(err, lifecycle.ErrPaymentConflict):
		return "PaymentConflict", http.StatusConflict
	case errors.Is(err, lifecycle.ErrSlotsAvailable):
		return "SlotsAvailable", http.StatusConflict
	case errors.Is(err, lifecycle.ErrAlreadyParticipating):
		return "AlreadyParticipating", http.StatusConflict
	case errors.Is(err, lifecycle.ErrCapacityBelowOccupied):
		return "CapacityBelowOccupied", http.StatusConflict
	case errors.Is(err, lifecycle.ErrNotConfirmed):
		return "NotConfirmed", http.StatusConflict
	case errors.Is(err, lifecycle.ErrDuplicateRegistration):
		return "DuplicateRegistration", http.StatusConflict
	case errors.Is(err, lifecycle.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidPlacement):
		return "InvalidPlacement", http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrInvalidInput):
		return "InvalidInput", http.StatusBadRequest
	case errors.Is(err, identity.ErrExpiredToken), errors.Is(err, identity.ErrInvalidToken):
		return "Unauthorized", http.StatusUnauthorized
	default:
		return "Internal", http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse with the mapped status.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	} else {
		log.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Join(lifecycle.ErrInvalidInput, err)
	}
	return nil
}

// withActor runs fn with the resolved caller, or answers 401.
func withActor(fn func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r)
		if !ok {
			WriteError(w, r, identity.ErrInvalidToken)
			return
		}
		fn(w, r, actor)
	}
}
