package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
)

// handleVelocity handles GET /velocity/{scope}?key=.
func (s *Server) handleVelocity(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_velocity"
	key, err := model.ParseGroupKey(chi.URLParam(r, "scope"))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	records, err := s.deps.Velocity(r.Context(), key, r.URL.Query().Get("key"))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleExtrema handles GET /extrema.
func (s *Server) handleExtrema(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_extrema"
	ext, err := s.deps.Extrema(r.Context())
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}
