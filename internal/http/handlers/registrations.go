package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
)

type ownTransition func(ctx context.Context, actor lifecycle.Actor, eventID string) (*lifecycle.Registration, error)

type organizerTransition func(ctx context.Context, actor lifecycle.Actor, eventID, userID string) (*lifecycle.Registration, error)

// OwnRegistrationHandler runs a transition on the caller's own registration.
// Register answers 201, everything else 200.
func OwnRegistrationHandler(fn ownTransition, status int) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		reg, err := fn(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, status, reg)
	})
}

// OrganizerRegistrationHandler runs approve or reject on the registration of {userId}.
func OrganizerRegistrationHandler(fn organizerTransition) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		reg, err := fn(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	})
}

func ListRegistrationsHandler(regs registration.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		list, err := regs.ListForEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if list == nil {
			list = []lifecycle.Registration{}
		}
		writeJSON(w, http.StatusOK, list)
	})
}

func MyRegistrationsHandler(regs registration.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		list, err := regs.ListForUser(r.Context(), actor.UserID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if list == nil {
			list = []lifecycle.Registration{}
		}
		writeJSON(w, http.StatusOK, list)
	})
}
