package handlers

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// Placement is one podium place in an organizer edit. An empty UserID clears the place.
type Placement struct {
	Place  int    `json:"place"`
	UserID string `json:"userId"`
}

// EventPatchRequest is an organizer edit. Results arrive under data.result.leaderboard.
type EventPatchRequest struct {
	catalog.Patch
	Data *struct {
		Result *struct {
			Leaderboard []Placement `json:"leaderboard"`
		} `json:"result"`
	} `json:"data"`
}

func (p EventPatchRequest) leaderboard() ([]Placement, bool) {
	if p.Data == nil || p.Data.Result == nil || p.Data.Result.Leaderboard == nil {
		return nil, false
	}
	return p.Data.Result.Leaderboard, true
}

// toPlacements rejects a list naming the same place twice.
func toPlacements(list []Placement) (map[int]string, error) {
	out := make(map[int]string, len(list))
	for _, pl := range list {
		if _, dup := out[pl.Place]; dup {
			return nil, fmt.Errorf("place %d given twice: %w", pl.Place, lifecycle.ErrInvalidPlacement)
		}
		out[pl.Place] = pl.UserID
	}
	return out, nil
}

func CreateEventHandler(events *catalog.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		var in catalog.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			WriteError(w, r, err)
			return
		}
		e, err := events.Create(r.Context(), actor, in)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	})
}

func ListEventsHandler(events *catalog.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		views, err := events.List(r.Context(), actor)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if views == nil {
			views = []catalog.EventView{}
		}
		writeJSON(w, http.StatusOK, views)
	})
}

func GetEventHandler(events *catalog.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		view, err := events.Get(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})
}

// UpdateEventHandler applies the field patch and the podium in one
// transaction, so a single request can complete an event and publish its podium.
func UpdateEventHandler(events *catalog.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		eventID := chi.URLParam(r, "id")
		var req EventPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		var placements map[int]string
		if list, ok := req.leaderboard(); ok {
			var err error
			if placements, err = toPlacements(list); err != nil {
				WriteError(w, r, err)
				return
			}
		}
		if _, err := events.UpdateWithPlaces(r.Context(), actor, eventID, req.Patch, placements); err != nil {
			WriteError(w, r, err)
			return
		}
		if placements != nil {
			log.Info("Leaderboard updated from event edit", "eventID", eventID, "places", len(placements))
		}
		view, err := events.Get(r.Context(), actor, eventID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})
}

func CancelEventHandler(events *catalog.Service) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		e, err := events.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})
}
