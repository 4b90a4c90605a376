// Package report builds the dashboard tables from the latest snapshot.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mowoo/SLG-Dashboard/internal/domain/daily"
	"github.com/mowoo/SLG-Dashboard/internal/domain/extrema"
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
	"github.com/mowoo/SLG-Dashboard/internal/domain/velocity"
)

// Tier thresholds as a share of the latest population.
const (
	eliteShare = 0.1
	frontShare = 0.3
)

// ErrNotFound is returned for a member absent from the Dataset.
var ErrNotFound = errors.New("member not found")

// Overview sums the headline KPIs of rows.
func Overview(rows model.Dataset) types.Overview {
	o := types.Overview{RecordedAt: rows.LatestAt(), ActiveMembers: len(rows)}
	var eff float64
	for i := range rows {
		o.TotalMerit += rows[i].Merit
		o.TotalPower += rows[i].Power
		eff += rows[i].Efficiency
	}
	o.MeanEfficiency = model.Round2(model.SafeDiv(eff, float64(len(rows))))
	return o
}

// Groups summarizes rows per group, largest total merit first.
func Groups(rows model.Dataset) []types.GroupStat {
	index := map[string]int{}
	out := make([]types.GroupStat, 0)
	for i := range rows {
		s := &rows[i]
		if s.Group == "" {
			continue
		}
		j, ok := index[s.Group]
		if !ok {
			j = len(out)
			index[s.Group] = j
			out = append(out, types.GroupStat{Group: s.Group})
		}
		out[j].Members++
		out[j].TotalMerit += s.Merit
		out[j].TotalPower += s.Power
	}
	for i := range out {
		n := float64(out[i].Members)
		out[i].AvgMerit = model.SafeDiv(out[i].TotalMerit, n)
		out[i].AvgPower = model.SafeDiv(out[i].TotalPower, n)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].TotalMerit != out[b].TotalMerit {
			return out[a].TotalMerit > out[b].TotalMerit
		}
		return out[a].Group < out[b].Group
	})
	return out
}

// top sorts a filtered copy of rows and keeps the first n entries.
func top(rows model.Dataset, n int, keep func(*model.Snapshot) bool, less func(a, b *model.Snapshot) bool) []types.Entry {
	picked := make(model.Dataset, 0, len(rows))
	for i := range rows {
		if keep(&rows[i]) {
			picked = append(picked, rows[i])
		}
	}
	sort.SliceStable(picked, func(a, b int) bool { return less(&picked[a], &picked[b]) })
	if n < len(picked) {
		picked = picked[:max(n, 0)]
	}
	out := make([]types.Entry, len(picked))
	for i := range picked {
		out[i] = types.EntryOf(&picked[i])
	}
	return out
}

// TopMerit returns the n members with the most merit.
func TopMerit(rows model.Dataset, n int) []types.Entry {
	return top(rows, n,
		func(*model.Snapshot) bool { return true },
		func(a, b *model.Snapshot) bool { return a.Merit > b.Merit })
}

// TopEfficiency returns the n most efficient members with power above minPower.
func TopEfficiency(rows model.Dataset, n int, minPower float64) []types.Entry {
	return top(rows, n,
		func(s *model.Snapshot) bool { return s.Power > minPower },
		func(a, b *model.Snapshot) bool { return a.Efficiency > b.Efficiency })
}

// Laggards returns the n least efficient members with power above avgPower.
func Laggards(rows model.Dataset, n int, avgPower float64) []types.Entry {
	return top(rows, n,
		func(s *model.Snapshot) bool { return s.Power > avgPower },
		func(a, b *model.Snapshot) bool { return a.Efficiency < b.Efficiency })
}

// MeanPower is the average power of rows, 0 when empty.
func MeanPower(rows model.Dataset) float64 {
	var sum float64
	for i := range rows {
		sum += rows[i].Power
	}
	return model.SafeDiv(sum, float64(len(rows)))
}

// Regions counts members per region, most populated first.
func Regions(rows model.Dataset, frontline []string) []types.RegionStat {
	front := toSet(frontline)
	index := map[string]int{}
	out := make([]types.RegionStat, 0)
	for i := range rows {
		r := rows[i].Region
		if r == "" {
			continue
		}
		j, ok := index[r]
		if !ok {
			j = len(out)
			index[r] = j
			_, isFront := front[r]
			out = append(out, types.RegionStat{Region: r, Frontline: isFront})
		}
		out[j].Members++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Members != out[b].Members {
			return out[a].Members > out[b].Members
		}
		return out[a].Region < out[b].Region
	})
	return out
}

// Frontline splits rows into members inside and outside frontline regions.
func Frontline(rows model.Dataset, frontline []string) types.FrontlineSplit {
	front := toSet(frontline)
	split := types.FrontlineSplit{Members: []types.Entry{}}
	for i := range rows {
		if _, ok := front[rows[i].Region]; ok {
			split.InFront++
			continue
		}
		split.Stranded++
		split.Members = append(split.Members, types.EntryOf(&rows[i]))
	}
	split.Ratio = model.Round2(model.SafeDiv(float64(split.InFront)*100, float64(len(rows))))
	return split
}

// Search returns distinct member ids containing keyword, in row order.
func Search(rows model.Dataset, keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	out := make([]string, 0)
	if keyword == "" {
		return out
	}
	seen := map[string]struct{}{}
	for i := range rows {
		id := rows[i].MemberID
		if _, dup := seen[id]; dup || !strings.Contains(id, keyword) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// TierOf buckets a rank within a population.
func TierOf(rank, population int) types.Tier {
	p := float64(population)
	switch r := float64(rank); {
	case rank > 0 && r <= p*eliteShare:
		return types.TierElite
	case rank > 0 && r <= p*frontShare:
		return types.TierFront
	default:
		return types.TierNormal
	}
}

// Profile assembles one member's drill-down. The history keeps the member's
// own last upload of each day, and ext supplies the shared chart scale.
func Profile(ds model.Dataset, memberID string, ext model.Extrema) (types.Profile, error) {
	rows := ds.Member(memberID)
	if len(rows) == 0 {
		return types.Profile{}, fmt.Errorf("%w: %q", ErrNotFound, memberID)
	}
	curr := rows[len(rows)-1]
	population := len(ds.Latest())
	return types.Profile{
		Member:     types.EntryOf(&curr),
		Population: population,
		Tier:       TierOf(curr.Rank, population),
		History:    velocity.Compute(daily.Reduce(rows, model.ByMember)),
		Extrema:    ext,
		Bounds:     extrema.Bounds(ext),
	}, nil
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
