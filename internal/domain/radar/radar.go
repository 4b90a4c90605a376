// Package radar filters the latest snapshot with threshold presets.
package radar

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
)

// DefaultRankLimit keeps every rank of a typical alliance.
const DefaultRankLimit = 300

// Sentinel errors.
var (
	ErrUnknownPreset = errors.New("unknown radar preset")
	ErrInvalidOp     = errors.New("invalid comparison operator")
)

// Op compares a value against a threshold.
type Op string

// Supported operators.
const (
	AtLeast Op = ">="
	AtMost  Op = "<="
)

// ParseOp accepts ">=", "<=" and their word forms.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ">=", "gte", "ge", "min":
		return AtLeast, nil
	case "<=", "lte", "le", "max":
		return AtMost, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOp, s)
	}
}

// Match reports whether v satisfies the operator against threshold.
func (o Op) Match(v, threshold float64) bool {
	if o == AtMost {
		return v <= threshold
	}
	return v >= threshold
}

// Preset is a named set of thresholds.
type Preset struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MeritOp     Op      `json:"merit_op"`
	Merit       float64 `json:"merit"`
	PowerOp     Op      `json:"power_op"`
	Power       float64 `json:"power"`
	EffOp       Op      `json:"eff_op"`
	Eff         float64 `json:"eff"`
}

// Query is a preset plus a rank ceiling.
type Query struct {
	Preset
	RankLimit int `json:"rank_limit"`
}

// Filter returns rows meeting every threshold with rank <= RankLimit, by rank
// ascending. A RankLimit <= 0 means DefaultRankLimit.
func Filter(rows model.Dataset, q Query) []types.Entry {
	limit := q.RankLimit
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	out := make([]types.Entry, 0)
	for i := range rows {
		s := &rows[i]
		if !q.MeritOp.Match(s.Merit, q.Merit) ||
			!q.PowerOp.Match(s.Power, q.Power) ||
			!q.EffOp.Match(s.Efficiency, q.Eff) ||
			s.Rank > limit {
			continue
		}
		out = append(out, types.EntryOf(s))
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Rank < out[b].Rank })
	return out
}

// Catalog holds the configured presets.
type Catalog struct {
	presets map[string]Preset
}

// NewCatalog indexes presets by name.
func NewCatalog(presets []Preset) *Catalog {
	c := &Catalog{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		c.presets[p.Name] = p
	}
	return c
}

// Get returns a preset by name.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// List returns every preset sorted by name.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.presets))
	for _, p := range c.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
