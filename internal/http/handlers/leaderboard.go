package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/leaderboard"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

func GetLeaderboardHandler(board *leaderboard.Assigner) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		entries, err := board.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if entries == nil {
			entries = []lifecycle.LeaderboardEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})
}

// SetLeaderboardHandler takes a list of placements.
func SetLeaderboardHandler(board *leaderboard.Assigner) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		var req []Placement
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		placements, err := toPlacements(req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		entries, err := board.SetPlaces(r.Context(), actor, chi.URLParam(r, "id"), placements)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})
}
