// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/mowoo/SLG-Dashboard/internal/app"
	"github.com/mowoo/SLG-Dashboard/internal/adapters/prefs"
	"github.com/mowoo/SLG-Dashboard/internal/adapters/repository"
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
	"github.com/mowoo/SLG-Dashboard/internal/domain/report"
	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
)

const (
	defaultMaxUploadBytes = 16 << 20
	multipartMemory       = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Snapshot directory
	Status(ctx context.Context) (types.LoadStatus, error)
	Upload(ctx context.Context, name string, content []byte) types.UploadResult

	// Reports over the latest snapshot
	Overview(ctx context.Context, groups []string) (types.OverviewReport, error)
	Leaderboard(ctx context.Context, board service.Board, n int, groups []string) ([]types.Entry, error)
	Regions(ctx context.Context, frontline, groups []string) (types.RegionReport, error)
	Radar(ctx context.Context, q radar.Query, groups []string) ([]types.Entry, error)
	Preset(name string) (radar.Preset, error)
	Presets() []radar.Preset

	// Growth
	Velocity(ctx context.Context, key model.GroupKey, filter string) ([]model.VelocityRecord, error)
	Extrema(ctx context.Context) (model.Extrema, error)

	// Members
	Search(ctx context.Context, keyword string) ([]string, error)
	Profile(ctx context.Context, memberID string) (types.Profile, error)

	// Session preferences
	Prefs(ctx context.Context, session string) (model.Preferences, error)
	SavePrefs(ctx context.Context, session string, p model.Preferences) (model.Preferences, error)
}

// Option configures the Server.
type Option func(*Server)

// WithMaxUploadBytes caps the body of POST /snapshots.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithCORSOrigins sets the origins allowed by the CORS middleware.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	maxUploadBytes int64
	corsOrigins    []string
	logger         logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:             deps,
		maxUploadBytes:   defaultMaxUploadBytes,
		corsOrigins:      []string{"*"},
		logger:           logger.Nop(),
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		dashboardHandler: newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs the middleware stack on r and attaches all routes.
// It must run before any other route is added to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(Compress, s.cors(), Session)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/dashboard", s.dashboardHandler.HandleDashboard)

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleStatus, "snapshots"))
		r.Post("/", MetricsMiddleware(s.handleUpload, "upload"))
	})
	r.Get("/overview", MetricsMiddleware(s.handleOverview, "overview"))
	r.Get("/leaderboard/{board}", MetricsMiddleware(s.handleLeaderboard, "leaderboard"))
	r.Get("/velocity/{scope}", MetricsMiddleware(s.handleVelocity, "velocity"))
	r.Get("/extrema", MetricsMiddleware(s.handleExtrema, "extrema"))
	r.Route("/members", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleSearch, "members"))
		r.Get("/{id}", MetricsMiddleware(s.handleProfile, "profile"))
	})
	r.Route("/radar", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleRadar, "radar"))
		r.Get("/presets", MetricsMiddleware(s.handlePresets, "radar_presets"))
	})
	r.Get("/regions", MetricsMiddleware(s.handleRegions, "regions"))
	r.Route("/prefs", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.handleGetPrefs, "prefs"))
		r.Put("/", MetricsMiddleware(s.handlePutPrefs, "prefs"))
	})
}

// preferences loads the session state; a failure falls back to defaults so
// read endpoints keep working.
func (s *Server) preferences(r *http.Request) model.Preferences {
	p, err := s.deps.Prefs(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.logger.Warn(r.Context(), "session preferences unavailable", logger.Error(err))
		return model.DefaultPreferences()
	}
	return p
}

// groups returns ?group= when given, else the session's selected groups.
func (s *Server) groups(r *http.Request) []string {
	if g, ok := queryList(r, "group"); ok {
		return g
	}
	return s.preferences(r).SelectedGroups
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// schemaResponse tells the user which columns were expected and what the
// rejected file actually contained.
type schemaResponse struct {
	errorResponse
	Missing []string   `json:"missing"`
	Present []string   `json:"present"`
	Sample  [][]string `json:"sample"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a dependency error to its HTTP rendering.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		serr   *repository.SchemaError
		tagged *kindError
	)
	if !errors.As(err, &tagged) {
		err = Wrap(op, err)
	}
	switch {
	case errors.As(err, &serr):
		writeJSON(w, http.StatusUnprocessableEntity, schemaResponse{
			errorResponse: errorResponse{Code: "schema_error", Message: serr.Error()},
			Missing:       serr.Missing,
			Present:       serr.Present,
			Sample:        serr.Sample,
		})
	case errors.Is(err, service.ErrNoData):
		writeError(w, http.StatusNotFound, "no_data", err)
	case errors.Is(err, report.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrUnknownBoard),
		errors.Is(err, model.ErrUnknownGroupKey),
		errors.Is(err, radar.ErrUnknownPreset),
		errors.Is(err, radar.ErrInvalidOp),
		errors.Is(err, prefs.ErrEmptySession):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, prefs.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
