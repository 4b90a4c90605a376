package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mowoo/SLG-Dashboard/pkg/logger"
)

// handleSearch handles GET /members?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_members"
	ids, err := s.deps.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// handleProfile handles GET /members/{id} and remembers the member as the
// session's last lookup.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.writeFailure(w, r, op, NewKind(op, ErrBadRequest))
		return
	}
	profile, err := s.deps.Profile(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	p := s.preferences(r)
	if p.LastMember != id {
		p.LastMember = id
		if _, err := s.deps.SavePrefs(r.Context(), SessionID(r.Context()), p); err != nil {
			s.logger.Warn(r.Context(), "remembering last member failed", logger.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, profile)
}
