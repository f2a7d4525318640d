package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// MemberRequest is the admin view of a member record.
type MemberRequest struct {
	Name       string  `json:"name"`
	Rank       float64 `json:"rank"`
	TelegramID *int64  `json:"telegramId"`
	IsAdmin    bool    `json:"isAdmin"`
}

func ListMembersHandler(store club.ClubStore) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		members, err := store.GetMembersSortedByRank(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if members == nil {
			members = []club.Member{}
		}
		writeJSON(w, http.StatusOK, members)
	})
}

// UpsertMemberHandler is admin only.
func UpsertMemberHandler(store club.ClubStore) http.HandlerFunc {
	return withActor(func(w http.ResponseWriter, r *http.Request, actor lifecycle.Actor) {
		if !actor.IsAdmin && !actor.System {
			WriteError(w, r, lifecycle.ErrNotAuthorized)
			return
		}
		var req MemberRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		id := chi.URLParam(r, "id")
		m := club.Member{ID: id, Name: req.Name, Rank: req.Rank, TelegramID: req.TelegramID, IsAdmin: req.IsAdmin}
		if err := store.AddMember(r.Context(), m); err != nil {
			WriteError(w, r, err)
			return
		}
		saved, err := store.GetMember(r.Context(), id)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	})
}
