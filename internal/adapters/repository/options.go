// Package repository loads and stores CSV member snapshots on disk.
package repository

import (
	"time"

	"github.com/mowoo/SLG-Dashboard/pkg/logger"
)

// Option applies a configuration option to the CSVStore.
type Option func(*CSVStore)

// WithExcludedGroups replaces the set of groups dropped at load time.
func WithExcludedGroups(groups []string) Option {
	return func(s *CSVStore) {
		s.excluded = make(map[string]struct{}, len(groups))
		for _, g := range groups {
			s.excluded[g] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l logger.Logger) Option {
	return func(s *CSVStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the zone filename timestamps are read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *CSVStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}
