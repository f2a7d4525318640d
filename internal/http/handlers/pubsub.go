package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
)

// PushRequest is the envelope of a GCP Pub/Sub push delivery.
type PushRequest struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}

// PushTokenParam is the query parameter carrying the shared push token.
// It is set on the push subscription endpoint URL.
const PushTokenParam = "token"

// PubSubPushHandler decodes a pushed lifecycle message and hands it to h.
// A non-2xx answer makes Pub/Sub redeliver. When pushToken is set, deliveries
// without a matching token are rejected.
func PubSubPushHandler(h pubsub.Handler, pubsubClient pubsub.PubSubClient, pushToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := chi.URLParam(r, "topic")
		if pushToken != "" && !validPushToken(r.URL.Query().Get(PushTokenParam), pushToken) {
			log.Warn("Rejected pubsub push with bad token", "topic", topic, "remote", r.RemoteAddr)
			http.Error(w, "Invalid push token", http.StatusUnauthorized)
			return
		}
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received pubsub push", "topic", topic, "body", string(bodyBytes))

		var push PushRequest
		if err := json.Unmarshal(bodyBytes, &push); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		rawData, err := base64.StdEncoding.DecodeString(push.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}
		var msg pubsub.LifecycleMessage
		if err := pubsubClient.ProcessMessage(rawData, &msg); err != nil {
			log.Error("Failed to decode lifecycle message", "error", err, "topic", topic)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}
		if msg.Type == "" {
			msg.Type = pubsub.EventType(topic)
		}
		if err := h(r.Context(), msg); err != nil {
			log.Error("Failed to process lifecycle message", "error", err, "type", msg.Type, "eventID", msg.EventID)
			http.Error(w, "Failed to process message", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

func validPushToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
