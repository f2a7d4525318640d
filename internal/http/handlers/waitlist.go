package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/waitlist"
)

// WaitlistResponse is an event's queue.
type WaitlistResponse struct {
	Entries  []lifecycle.WaitlistEntry `json:"entries"`
	Position int                       `json:"position,omitempty"`
}

func JoinWaitlistHandler(wl *waitlist.Manager) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		entry, err := wl.Join(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	})
}

func LeaveWaitlistHandler(wl *waitlist.Manager) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		if err := wl.Leave(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
			WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// ListWaitlistHandler includes the caller's own position.
func ListWaitlistHandler(wl *waitlist.Manager) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		eventID := chi.URLParam(r, "id")
		entries, err := wl.List(r.Context(), eventID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		resp := WaitlistResponse{Entries: entries}
		if resp.Entries == nil {
			resp.Entries = []lifecycle.WaitlistEntry{}
		}
		for i, e := range entries {
			if e.UserID == actor.UserID {
				resp.Position = i + 1
				break
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func PromoteWaitlistHandler(wl *waitlist.Manager) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		reg, err := wl.Promote(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	})
}
