package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/mowoo/SLG-Dashboard/internal/app"
)

// handleOverview handles GET /overview?group=.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_overview"
	ov, err := s.deps.Overview(r.Context(), s.groups(r))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// handleLeaderboard handles GET /leaderboard/{board}?limit=N&group=.
// A missing limit selects the configured default; oversized limits are capped.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n, err := queryInt(r, "limit", 0)
	if err != nil || n < 0 {
		s.writeFailure(w, r, op, NewKind(op, ErrBadRequest))
		return
	}
	board := service.Board(chi.URLParam(r, "board"))
	entries, err := s.deps.Leaderboard(r.Context(), board, n, s.groups(r))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
