package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/slack-go/slack"
)

// SummaryFormatter renders event summaries as Slack messages.
type SummaryFormatter interface {
	FormatEventSummaryResponse(view *catalog.EventView) (any, error)
	FormatEventNotFoundResponse(query string) (any, error)
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// EventCommandHandler answers "/event <id>" with the event's status summary.
func EventCommandHandler(events *catalog.Service, formatter SummaryFormatter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		query := strings.TrimSpace(r.FormValue("text"))
		log.Info("Received event command", "query", query, "user", r.FormValue("user_name"))

		var msg any
		var err error
		view, getErr := events.Get(r.Context(), lifecycle.SystemActor, query)
		switch {
		case query == "", errors.Is(getErr, lifecycle.ErrNotFound):
			msg, err = formatter.FormatEventNotFoundResponse(query)
		case getErr != nil:
			log.Error("Failed to load event for slack command", "error", getErr, "query", query)
			http.Error(w, "Failed to load event", http.StatusInternalServerError)
			return
		default:
			msg, err = formatter.FormatEventSummaryResponse(view)
		}
		if err != nil {
			http.Error(w, "Failed to format event summary", http.StatusInternalServerError)
			log.Error("Failed to format event summary", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}
