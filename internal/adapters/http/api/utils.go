package api

import (
	"net/http"
	"strconv"
	"strings"
)

// queryList reads a comma separated or repeated query parameter. ok is false
// when the parameter is absent so callers can fall back to session state.
func queryList(r *http.Request, name string) ([]string, bool) {
	values, ok := r.URL.Query()[name]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out, true
}

// queryInt parses an optional integer parameter; absent yields def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// queryFloat parses an optional float parameter. ok is false when absent.
func queryFloat(r *http.Request, name string) (float64, bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, true, err
}
