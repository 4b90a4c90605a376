package api

import "net/http"

// handleRegions handles GET /regions?frontline=&group=. Without ?frontline the
// session's frontline regions are used.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_regions"
	frontline, ok := queryList(r, "frontline")
	if !ok {
		frontline = s.preferences(r).FrontlineRegions
	}
	rep, err := s.deps.Regions(r.Context(), frontline, s.groups(r))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
