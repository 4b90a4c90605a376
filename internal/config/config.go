// Package config defines dashboard configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and the environment on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import "time"

// Comparison operators accepted by radar presets.
const (
	OpAtLeast = ">="
	OpAtMost  = "<="
)

// PresetConfig is one named radar filter: an operator and a threshold for
// merit, power and efficiency.
type PresetConfig struct {
	Description string  `koanf:"description"`
	MeritOp     string  `koanf:"merit_op"`
	Merit       float64 `koanf:"merit"`
	PowerOp     string  `koanf:"power_op"`
	Power       float64 `koanf:"power"`
	EffOp       string  `koanf:"eff_op"`
	Eff         float64 `koanf:"eff"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// LogFile enables a rotated log file next to stdout when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is the folder holding the CSV snapshots.
	DataDir string `koanf:"data_dir"`

	// ExcludedGroups are dropped from every load.
	ExcludedGroups []string `koanf:"excluded_groups"`

	// CacheTTL and CacheCapacity bound each memoization cache.
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	CacheCapacity int           `koanf:"cache_capacity"`

	// MaxUploadMB caps a multipart upload request.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// DedupeSize bounds the number of upload digests remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultBoardSize and MaxBoardSize govern leaderboard ?limit.
	DefaultBoardSize int `koanf:"default_board_size"`
	MaxBoardSize     int `koanf:"max_board_size"`

	// EfficiencyMinPower is the power floor for the efficiency board.
	EfficiencyMinPower float64 `koanf:"efficiency_min_power"`

	// PrefsDir is the badger directory; empty keeps preferences in memory.
	PrefsDir string `koanf:"prefs_dir"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// Presets maps preset names to radar filters.
	Presets map[string]PresetConfig `koanf:"presets"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		DataDir:            "./snapshots",
		ExcludedGroups:     []string{"小號", "未分組"},
		CacheTTL:           60 * time.Second,
		CacheCapacity:      64,
		MaxUploadMB:        16,
		DedupeSize:         1024,
		DefaultBoardSize:   10,
		MaxBoardSize:       50,
		EfficiencyMinPower: 10_000,
		CORSOrigins:        []string{"*"},
		Presets:            DefaultPresets(),
	}
}

// DefaultPresets returns the built-in radar presets.
func DefaultPresets() map[string]PresetConfig {
	return map[string]PresetConfig{
		"slave": {
			Description: "high power, little merit",
			MeritOp:     OpAtMost, Merit: 10_000,
			PowerOp: OpAtLeast, Power: 25_000,
			EffOp: OpAtMost, Eff: 2.0,
		},
		"elite": {
			Description: "top contributors",
			MeritOp:     OpAtLeast, Merit: 100_000,
			PowerOp: OpAtLeast, Power: 0,
			EffOp: OpAtLeast, Eff: 10,
		},
		"newbie": {
			Description: "new or small accounts",
			MeritOp:     OpAtMost, Merit: 5_000,
			PowerOp: OpAtMost, Power: 10_000,
			EffOp: OpAtLeast, Eff: 0,
		},
		"reset": {
			Description: "no filter",
			MeritOp:     OpAtLeast, Merit: 0,
			PowerOp: OpAtLeast, Power: 0,
			EffOp: OpAtLeast, Eff: 0,
		},
	}
}
