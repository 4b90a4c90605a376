// Package velocity derives per-day growth rates from canonical daily rows.
package velocity

import (
	"sort"

	"github.com/mowoo/SLG-Dashboard/internal/domain/daily"
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
)

const hoursPerDay = 24

// Compute returns one record per row, partitioned by Key and ordered by time
// within each partition. The first record of a partition has zero diffs and
// zero velocity. A non-positive gap between rows yields zero velocity.
func Compute(rows []model.DailyRow) []model.VelocityRecord {
	sorted := make([]model.DailyRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Key != sorted[b].Key {
			return sorted[a].Key < sorted[b].Key
		}
		return sorted[a].RecordedAt.Before(sorted[b].RecordedAt)
	})

	out := make([]model.VelocityRecord, len(sorted))
	for i, r := range sorted {
		rec := model.VelocityRecord{
			RecordedAt: r.RecordedAt,
			Key:        r.Key,
			Merit:      r.Merit,
			Power:      r.Power,
		}
		if i > 0 && sorted[i-1].Key == r.Key {
			prev := sorted[i-1]
			rec.TimeDiffDays = r.RecordedAt.Sub(prev.RecordedAt).Hours() / hoursPerDay
			rec.MeritDiff = model.Finite(r.Merit - prev.Merit)
			rec.PowerDiff = model.Finite(r.Power - prev.Power)
			if rec.TimeDiffDays > 0 {
				rec.MeritVelocity = model.SafeDiv(rec.MeritDiff, rec.TimeDiffDays)
				rec.PowerVelocity = model.SafeDiv(rec.PowerDiff, rec.TimeDiffDays)
			}
		}
		out[i] = rec
	}
	return out
}

// Series reduces ds at the given level and computes its velocity.
func Series(ds model.Dataset, key model.GroupKey) []model.VelocityRecord {
	return Compute(daily.Reduce(ds, key))
}

// Filter returns the records of one key, in order.
func Filter(records []model.VelocityRecord, key string) []model.VelocityRecord {
	out := make([]model.VelocityRecord, 0)
	for _, r := range records {
		if r.Key == key {
			out = append(out, r)
		}
	}
	return out
}
