// Package daily collapses a Dataset to one canonical row per day and key.
package daily

import (
	"sort"
	"time"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
)

type calendarDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) calendarDay {
	y, m, d := t.Date()
	return calendarDay{y, m, d}
}

type bucket struct {
	at  int64
	key string
}

// canonicalInstants returns, per calendar day, the latest RecordedAt found
// anywhere in the Dataset.
func canonicalInstants(ds model.Dataset) map[calendarDay]time.Time {
	out := make(map[calendarDay]time.Time)
	for i := range ds {
		d := dayOf(ds[i].RecordedAt)
		if cur, ok := out[d]; !ok || ds[i].RecordedAt.After(cur) {
			out[d] = ds[i].RecordedAt
		}
	}
	return out
}

// Reduce keeps only rows recorded at their day's canonical instant and sums
// merit and power per (instant, key). The canonical instant is chosen across
// the whole Dataset, so a key that did not appear in the day's last upload
// has no row for that day.
//
// Rows without a value for key are left out of group, region and member
// series; they still count alliance-wide.
//
// Rows are ordered by key, then time. ds is not modified.
func Reduce(ds model.Dataset, key model.GroupKey) []model.DailyRow {
	if len(ds) == 0 {
		return []model.DailyRow{}
	}

	canon := canonicalInstants(ds)
	index := make(map[bucket]int)
	out := make([]model.DailyRow, 0)
	for i := range ds {
		s := &ds[i]
		if !s.RecordedAt.Equal(canon[dayOf(s.RecordedAt)]) {
			continue
		}
		b := bucket{at: s.RecordedAt.UnixNano(), key: key.Of(s)}
		if b.key == "" && key != model.ByAlliance {
			continue
		}
		j, ok := index[b]
		if !ok {
			j = len(out)
			index[b] = j
			out = append(out, model.DailyRow{RecordedAt: s.RecordedAt, Key: b.key})
		}
		out[j].Merit += s.Merit
		out[j].Power += s.Power
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Key != out[b].Key {
			return out[a].Key < out[b].Key
		}
		return out[a].RecordedAt.Before(out[b].RecordedAt)
	})
	return out
}
