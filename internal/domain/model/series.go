package model

import (
	"fmt"
	"strings"
	"time"
)

// GroupKey selects the aggregation level of daily rows and velocity series.
type GroupKey string

// Supported aggregation levels. ByAlliance sums the whole population.
const (
	ByAlliance GroupKey = ""
	ByMember   GroupKey = "member"
	ByGroup    GroupKey = "group"
	ByRegion   GroupKey = "region"
)

// Of returns the key value of s at this aggregation level.
func (k GroupKey) Of(s *Snapshot) string {
	switch k {
	case ByMember:
		return s.MemberID
	case ByGroup:
		return s.Group
	case ByRegion:
		return s.Region
	default:
		return ""
	}
}

func (k GroupKey) String() string {
	if k == ByAlliance {
		return "alliance"
	}
	return string(k)
}

// ParseGroupKey maps a scope name to a GroupKey.
func ParseGroupKey(s string) (GroupKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alliance", "all":
		return ByAlliance, nil
	case "member":
		return ByMember, nil
	case "group":
		return ByGroup, nil
	case "region":
		return ByRegion, nil
	default:
		return ByAlliance, fmt.Errorf("%w: %q", ErrUnknownGroupKey, s)
	}
}

// DailyRow is the summed canonical snapshot of one (day, key) pair.
type DailyRow struct {
	RecordedAt time.Time `json:"recorded_at"`
	Key        string    `json:"key,omitempty"`
	Merit      float64   `json:"merit"`
	Power      float64   `json:"power"`
}

// VelocityRecord extends a DailyRow with per-day growth against the previous
// row of the same key. The first row of every key has zero growth.
type VelocityRecord struct {
	RecordedAt    time.Time `json:"recorded_at"`
	Key           string    `json:"key,omitempty"`
	Merit         float64   `json:"merit"`
	Power         float64   `json:"power"`
	TimeDiffDays  float64   `json:"time_diff_days"`
	MeritDiff     float64   `json:"merit_diff"`
	PowerDiff     float64   `json:"power_diff"`
	MeritVelocity float64   `json:"merit_velocity"`
	PowerVelocity float64   `json:"power_velocity"`
}

// Extrema holds the per-member velocity bounds over the full history.
type Extrema struct {
	MaxMeritVelocity float64 `json:"max_merit_velocity"`
	MaxPowerVelocity float64 `json:"max_power_velocity"`
	MinPowerVelocity float64 `json:"min_power_velocity"`
}
