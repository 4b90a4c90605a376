// Package service ties the snapshot store, the computations and the
// per-session preferences together behind the methods the HTTP API needs.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mowoo/SLG-Dashboard/internal/adapters/cache"
	"github.com/mowoo/SLG-Dashboard/internal/adapters/prefs"
	"github.com/mowoo/SLG-Dashboard/internal/adapters/repository"
	"github.com/mowoo/SLG-Dashboard/internal/domain/dedupe"
	"github.com/mowoo/SLG-Dashboard/internal/domain/extrema"
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
	"github.com/mowoo/SLG-Dashboard/internal/domain/report"
	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
	"github.com/mowoo/SLG-Dashboard/internal/domain/velocity"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
	"github.com/mowoo/SLG-Dashboard/pkg/metrics"
)

// Board names a leaderboard.
type Board string

// Leaderboards served by Leaderboard.
const (
	BoardMerit      Board = "merit"
	BoardEfficiency Board = "efficiency"
	BoardLaggards   Board = "laggards"
)

const minBoardSize = 1

// loaded is one cached directory load.
type loaded struct {
	result repository.LoadResult
	latest model.Dataset
	key    string // dataset fingerprint
}

// components are built by Start and dropped by Stop. Callers take them once
// under mu and keep using that set, so a concurrent Stop never leaves a
// caller holding nil fields.
type components struct {
	store    repository.Store
	deduper  dedupe.Deduper
	catalog  *radar.Catalog
	prefs    *prefs.Store
	datasets *cache.Cache[*loaded]
	series   *cache.Cache[[]model.VelocityRecord]
	extremes *cache.Cache[model.Extrema]
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu       sync.RWMutex
	uploadMu sync.Mutex

	// Core components, nil until Start
	live *components

	// digest of the last accepted upload per file name
	current map[string]string

	// Configuration
	dataDir          string
	excludedGroups   []string
	cacheTTL         time.Duration
	cacheCapacity    int
	dedupeSize       int
	prefsDir         string
	presets          []radar.Preset
	minPower         float64
	defaultBoardSize int
	maxBoardSize     int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the snapshot directory.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithExcludedGroups sets the groups dropped at load time.
func WithExcludedGroups(groups []string) Option {
	return func(s *Service) {
		s.excludedGroups = groups
	}
}

// WithCache sets the expiry and size of every memoization cache.
func WithCache(ttl time.Duration, capacity int) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
		if capacity > 0 {
			s.cacheCapacity = capacity
		}
	}
}

// WithDedupeSize sets how many upload digests are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPrefsDir sets the preferences database directory. Empty keeps it in memory.
func WithPrefsDir(dir string) Option {
	return func(s *Service) {
		s.prefsDir = dir
	}
}

// WithPresets replaces the radar presets.
func WithPresets(presets []radar.Preset) Option {
	return func(s *Service) {
		if len(presets) > 0 {
			s.presets = presets
		}
	}
}

// WithEfficiencyMinPower sets the power floor of the efficiency board.
func WithEfficiencyMinPower(p float64) Option {
	return func(s *Service) {
		if p >= 0 {
			s.minPower = p
		}
	}
}

// WithBoardSize sets the default and maximum leaderboard length.
func WithBoardSize(def, max int) Option {
	return func(s *Service) {
		if def >= minBoardSize && max >= def {
			s.defaultBoardSize = def
			s.maxBoardSize = max
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:          "./snapshots",
		cacheTTL:         time.Minute,
		cacheCapacity:    64,
		dedupeSize:       1024,
		minPower:         10_000,
		defaultBoardSize: 10,
		maxBoardSize:     50,
		presets: []radar.Preset{
			{Name: "reset", MeritOp: radar.AtLeast, PowerOp: radar.AtLeast, EffOp: radar.AtLeast},
		},
		current: map[string]string{},
		logger:  nil, // replaced on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, caches and preference database.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting dashboard service...")

	c := &components{}
	c.store = repository.NewCSVStore(s.dataDir,
		repository.WithExcludedGroups(s.excludedGroups),
		repository.WithLogger(s.logger.Named("store")),
	)
	c.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	c.catalog = radar.NewCatalog(s.presets)

	var err error
	opts := []cache.Option{cache.WithTTL(s.cacheTTL), cache.WithCapacity(s.cacheCapacity)}
	if c.datasets, err = cache.New[*loaded]("dataset", opts...); err != nil {
		return err
	}
	if c.series, err = cache.New[[]model.VelocityRecord]("velocity", opts...); err != nil {
		c.closeCaches()
		return err
	}
	if c.extremes, err = cache.New[model.Extrema]("extrema", opts...); err != nil {
		c.closeCaches()
		return err
	}
	if c.prefs, err = prefs.Open(s.prefsDir); err != nil {
		c.closeCaches()
		return err
	}

	s.live = c
	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("dataDir", s.dataDir),
		logger.Int("cacheCapacity", s.cacheCapacity),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("presets", len(s.presets)),
	)
	return nil
}

// Stop closes the caches and the preference database.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping dashboard service...")
	s.live.closeCaches()
	if err := s.live.prefs.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing prefs store failed", logger.Error(err))
	}

	s.live = nil
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

func (c *components) closeCaches() {
	if c.datasets != nil {
		c.datasets.Close()
	}
	if c.series != nil {
		c.series.Close()
	}
	if c.extremes != nil {
		c.extremes.Close()
	}
}

// running returns the components of the current run, or ErrNotStarted.
func (s *Service) running() (*components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.live, nil
}

// load returns the Dataset of the current directory state, reusing the last
// load while the directory fingerprint is unchanged.
func (s *Service) load(ctx context.Context, c *components) (*loaded, error) {
	dirFP, err := c.store.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("fingerprint snapshot dir: %w", err)
	}
	return c.datasets.GetOrLoad(strconv.FormatUint(dirFP, 16), func() (*loaded, error) {
		res, err := c.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		metrics.UpdateSnapshotMembers(countMembers(res.Dataset))
		return &loaded{
			result: res,
			latest: res.Dataset.Latest(),
			key:    strconv.FormatUint(res.Dataset.Fingerprint(), 16),
		}, nil
	})
}

// nonEmpty returns the running components and the loaded Dataset, or
// ErrNoData when the Dataset is empty.
func (s *Service) nonEmpty(ctx context.Context) (*components, *loaded, error) {
	c, err := s.running()
	if err != nil {
		return nil, nil, err
	}
	l, err := s.load(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	if len(l.result.Dataset) == 0 {
		return nil, nil, ErrNoData
	}
	return c, l, nil
}

// Status describes the last directory load. A *repository.SchemaError is
// returned alongside the status when no file had the required columns.
func (s *Service) Status(ctx context.Context) (types.LoadStatus, error) {
	c, err := s.running()
	if err != nil {
		return types.LoadStatus{Files: []string{}, Skipped: []types.SkippedFile{}}, err
	}
	l, err := s.load(ctx, c)
	if err != nil {
		return types.LoadStatus{Files: []string{}, Skipped: []types.SkippedFile{}}, err
	}
	st := types.LoadStatus{
		Files:    l.result.Files,
		Rows:     len(l.result.Dataset),
		Members:  countMembers(l.result.Dataset),
		LatestAt: l.result.Dataset.LatestAt(),
		Skipped:  make([]types.SkippedFile, 0, len(l.result.Skipped)),
	}
	for _, fe := range l.result.Skipped {
		st.Skipped = append(st.Skipped, types.SkippedFile{File: fe.File, Reason: fe.Err.Error()})
	}
	return st, nil
}

// Overview returns the KPIs and group summary of the latest snapshot,
// restricted to groups when any are given.
func (s *Service) Overview(ctx context.Context, groups []string) (types.OverviewReport, error) {
	_, l, err := s.nonEmpty(ctx)
	if err != nil {
		return types.OverviewReport{}, err
	}
	defer observe("overview", time.Now())
	rows := l.latest.InGroups(groups)
	return types.OverviewReport{Overview: report.Overview(rows), Groups: report.Groups(rows)}, nil
}

// BoardSize clamps a requested leaderboard length. Zero or less selects the
// default.
func (s *Service) BoardSize(n int) int {
	switch {
	case n <= 0:
		return s.defaultBoardSize
	case n > s.maxBoardSize:
		return s.maxBoardSize
	default:
		return n
	}
}

// Leaderboard returns one board over the latest snapshot. Laggards are
// measured against the average power of the whole latest snapshot.
func (s *Service) Leaderboard(ctx context.Context, board Board, n int, groups []string) ([]types.Entry, error) {
	_, l, err := s.nonEmpty(ctx)
	if err != nil {
		return nil, err
	}
	defer observe("leaderboard", time.Now())

	n = s.BoardSize(n)
	rows := l.latest.InGroups(groups)
	switch board {
	case BoardMerit:
		return report.TopMerit(rows, n), nil
	case BoardEfficiency:
		return report.TopEfficiency(rows, n, s.minPower), nil
	case BoardLaggards:
		return report.Laggards(rows, n, report.MeanPower(l.latest)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
}

// Velocity returns the velocity series at one aggregation level. A non-empty
// filter keeps a single key.
func (s *Service) Velocity(ctx context.Context, key model.GroupKey, filter string) ([]model.VelocityRecord, error) {
	c, l, err := s.nonEmpty(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.series.GetOrLoad(l.key+"/"+key.String(), func() ([]model.VelocityRecord, error) {
		defer observe("velocity", time.Now())
		return velocity.Series(l.result.Dataset, key), nil
	})
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return records, nil
	}
	return velocity.Filter(records, filter), nil
}

// Extrema returns the global per-member velocity extrema.
func (s *Service) Extrema(ctx context.Context) (model.Extrema, error) {
	c, l, err := s.nonEmpty(ctx)
	if err != nil {
		return model.Extrema{}, err
	}
	return extremaOf(c, l)
}

func extremaOf(c *components, l *loaded) (model.Extrema, error) {
	return c.extremes.GetOrLoad(l.key, func() (model.Extrema, error) {
		defer observe("extrema", time.Now())
		records, err := c.series.GetOrLoad(l.key+"/"+model.ByMember.String(), func() ([]model.VelocityRecord, error) {
			return velocity.Series(l.result.Dataset, model.ByMember), nil
		})
		if err != nil {
			return model.Extrema{}, err
		}
		return extrema.Of(records), nil
	})
}

// Search returns member ids containing keyword across every snapshot.
func (s *Service) Search(ctx context.Context, keyword string) ([]string, error) {
	_, l, err := s.nonEmpty(ctx)
	if err != nil {
		return nil, err
	}
	return report.Search(l.result.Dataset, keyword), nil
}

// Profile returns the drill-down of one member.
func (s *Service) Profile(ctx context.Context, memberID string) (types.Profile, error) {
	c, l, err := s.nonEmpty(ctx)
	if err != nil {
		return types.Profile{}, err
	}
	ext, err := extremaOf(c, l)
	if err != nil {
		return types.Profile{}, err
	}
	defer observe("profile", time.Now())
	return report.Profile(l.result.Dataset, memberID, ext)
}

// Preset returns a configured radar preset.
func (s *Service) Preset(name string) (radar.Preset, error) {
	c, err := s.running()
	if err != nil {
		return radar.Preset{}, err
	}
	return c.catalog.Get(name)
}

// Presets lists the configured radar presets.
func (s *Service) Presets() []radar.Preset {
	c, err := s.running()
	if err != nil {
		return []radar.Preset{}
	}
	return c.catalog.List()
}

// Radar filters the latest snapshot with q.
func (s *Service) Radar(ctx context.Context, q radar.Query, groups []string) ([]types.Entry, error) {
	_, l, err := s.nonEmpty(ctx)
	if err != nil {
		return nil, err
	}
	defer observe("radar", time.Now())
	return radar.Filter(l.latest.InGroups(groups), q), nil
}

// Regions returns the region distribution and frontline split.
func (s *Service) Regions(ctx context.Context, frontline, groups []string) (types.RegionReport, error) {
	_, l, err := s.nonEmpty(ctx)
	if err != nil {
		return types.RegionReport{}, err
	}
	defer observe("regions", time.Now())
	rows := l.latest.InGroups(groups)
	return types.RegionReport{
		Regions:   report.Regions(rows, frontline),
		Frontline: report.Frontline(rows, frontline),
	}, nil
}

// Upload stores one snapshot file. Identical content already stored under the
// same name is acknowledged as a duplicate without rewriting.
func (s *Service) Upload(ctx context.Context, name string, content []byte) types.UploadResult {
	c, err := s.running()
	if err != nil {
		metrics.RecordUpload(types.UploadRejected)
		return types.UploadResult{File: name, Status: types.UploadRejected, Error: err.Error()}
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	base, err := repository.SanitizeName(name)
	if err != nil {
		return s.rejected(ctx, name, err)
	}
	if len(content) == 0 {
		return s.rejected(ctx, base, fmt.Errorf("%w: empty file", repository.ErrParse))
	}

	digest := dedupe.Digest(base, content)
	if c.deduper.SeenAndRecord(ctx, digest) && s.current[base] == digest {
		if ok, err := c.store.Has(ctx, base); err == nil && ok {
			metrics.RecordUpload(types.UploadDuplicate)
			s.logger.Info(ctx, "duplicate upload acknowledged", logger.String("file", base))
			return types.UploadResult{File: base, Status: types.UploadDuplicate}
		}
	}

	saved, err := c.store.Save(ctx, base, content)
	if err != nil {
		c.deduper.Unrecord(ctx, digest)
		return s.rejected(ctx, base, err)
	}
	s.current[saved] = digest
	c.invalidate()

	metrics.RecordUpload(types.UploadAccepted)
	s.logger.Info(ctx, "snapshot uploaded", logger.String("file", saved), logger.Int("bytes", len(content)))
	return types.UploadResult{File: saved, Status: types.UploadAccepted}
}

func (s *Service) rejected(ctx context.Context, name string, err error) types.UploadResult {
	metrics.RecordUpload(types.UploadRejected)
	s.logger.Warn(ctx, "snapshot upload rejected", logger.String("file", name), logger.Error(err))
	return types.UploadResult{File: name, Status: types.UploadRejected, Error: err.Error()}
}

// invalidate drops every derived result after the directory changed.
func (c *components) invalidate() {
	c.datasets.Clear()
	c.series.Clear()
	c.extremes.Clear()
}

// Prefs returns the preferences of a session.
func (s *Service) Prefs(ctx context.Context, session string) (model.Preferences, error) {
	c, err := s.running()
	if err != nil {
		return model.Preferences{}, err
	}
	return c.prefs.Get(ctx, session)
}

// SavePrefs stores the preferences of a session and returns what was kept.
func (s *Service) SavePrefs(ctx context.Context, session string, p model.Preferences) (model.Preferences, error) {
	c, err := s.running()
	if err != nil {
		return model.Preferences{}, err
	}
	return c.prefs.Put(ctx, session, p)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	c, err := s.running()
	started := err == nil

	stats := map[string]interface{}{
		"started":       started,
		"dataDir":       s.dataDir,
		"cacheCapacity": s.cacheCapacity,
		"cacheTTL":      s.cacheTTL.String(),
		"dedupeSize":    s.dedupeSize,
	}
	if !started {
		return stats
	}

	stats["dedupeEntries"] = c.deduper.Size()
	if l, err := s.load(context.Background(), c); err == nil {
		stats["files"] = len(l.result.Files)
		stats["skippedFiles"] = len(l.result.Skipped)
		stats["rows"] = len(l.result.Dataset)
		stats["members"] = countMembers(l.result.Dataset)
		if at := l.result.Dataset.LatestAt(); !at.IsZero() {
			stats["latestAt"] = at
		}
	} else {
		stats["loadError"] = err.Error()
	}
	return stats
}

// SplitList parses a comma separated query value into a trimmed list.
func SplitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func countMembers(ds model.Dataset) int {
	seen := make(map[string]struct{})
	for i := range ds {
		seen[ds[i].MemberID] = struct{}{}
	}
	return len(seen)
}

func observe(stage string, start time.Time) {
	metrics.RecordComputeDuration(stage, float64(time.Since(start).Microseconds())/1000)
}
