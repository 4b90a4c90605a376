package api

import (
	"encoding/json"
	"net/http"
)

const maxPrefsBytes = 64 << 10

// handleGetPrefs handles GET /prefs.
func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_prefs"
	p, err := s.deps.Prefs(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPrefs handles PUT /prefs. Fields left out of the body keep their
// current value.
func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_prefs"
	session := SessionID(r.Context())
	current, err := s.deps.Prefs(r.Context(), session)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	next := current
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPrefsBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		s.writeFailure(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	saved, err := s.deps.SavePrefs(r.Context(), session, next)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
