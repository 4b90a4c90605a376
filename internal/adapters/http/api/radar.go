package api

import (
	"net/http"
	"strings"

	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
)

// handleRadar handles GET /radar. A preset supplies the starting thresholds
// and any explicit operator or threshold parameter overrides it.
func (s *Server) handleRadar(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_radar"
	q, err := s.radarQuery(r)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	entries, err := s.deps.Radar(r.Context(), q, s.groups(r))
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handlePresets handles GET /radar/presets.
func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Presets())
}

func (s *Server) radarQuery(r *http.Request) (radar.Query, error) {
	const op = "api.radar_query"
	q := radar.Query{Preset: radar.Preset{MeritOp: radar.AtLeast, PowerOp: radar.AtLeast, EffOp: radar.AtLeast}}
	if name := strings.TrimSpace(r.URL.Query().Get("preset")); name != "" {
		p, err := s.deps.Preset(name)
		if err != nil {
			return q, err
		}
		q.Preset = p
	}

	overrides := []struct {
		opParam, valParam string
		op                *radar.Op
		val               *float64
	}{
		{"merit_op", "merit", &q.MeritOp, &q.Merit},
		{"power_op", "power", &q.PowerOp, &q.Power},
		{"eff_op", "eff", &q.EffOp, &q.Eff},
	}
	for _, o := range overrides {
		if v := r.URL.Query().Get(o.opParam); v != "" {
			parsed, err := radar.ParseOp(v)
			if err != nil {
				return q, err
			}
			*o.op = parsed
		}
		f, ok, err := queryFloat(r, o.valParam)
		if err != nil {
			return q, WrapKind(op, ErrBadRequest, err)
		}
		if ok {
			*o.val = f
		}
	}

	rank, err := queryInt(r, "rank", radar.DefaultRankLimit)
	if err != nil || rank < 1 {
		return q, NewKind(op, ErrBadRequest)
	}
	q.RankLimit = rank
	return q, nil
}
