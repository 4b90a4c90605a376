package model

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Dataset is every loaded Snapshot sorted ascending by RecordedAt.
// Consumers treat it as read-only.
type Dataset []Snapshot

// LatestAt returns the newest RecordedAt, or the zero time for an empty Dataset.
func (d Dataset) LatestAt() time.Time {
	var latest time.Time
	for i := range d {
		if d[i].RecordedAt.After(latest) {
			latest = d[i].RecordedAt
		}
	}
	return latest
}

// Latest returns a copy of the rows recorded at LatestAt.
func (d Dataset) Latest() Dataset {
	if len(d) == 0 {
		return Dataset{}
	}
	at := d.LatestAt()
	out := make(Dataset, 0)
	for i := range d {
		if d[i].RecordedAt.Equal(at) {
			out = append(out, d[i])
		}
	}
	return out
}

// Member returns a copy of one member's rows in dataset order.
func (d Dataset) Member(id string) Dataset {
	out := make(Dataset, 0)
	for i := range d {
		if d[i].MemberID == id {
			out = append(out, d[i])
		}
	}
	return out
}

// InGroups keeps rows whose group is listed. An empty list keeps everything.
func (d Dataset) InGroups(groups []string) Dataset {
	if len(groups) == 0 {
		return d
	}
	allowed := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		allowed[g] = struct{}{}
	}
	out := make(Dataset, 0, len(d))
	for i := range d {
		if _, ok := allowed[d[i].Group]; ok {
			out = append(out, d[i])
		}
	}
	return out
}

// Fingerprint hashes the content of the Dataset. Equal datasets share a
// fingerprint, so it can key caches of pure functions over the Dataset.
func (d Dataset) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeNum := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	writeStr := func(s string) {
		writeNum(uint64(len(s)))
		_, _ = h.WriteString(s)
	}
	writeNum(uint64(len(d)))
	for i := range d {
		s := &d[i]
		writeStr(s.MemberID)
		writeStr(s.Group)
		writeStr(s.Region)
		writeNum(math.Float64bits(s.Merit))
		writeNum(math.Float64bits(s.Power))
		writeNum(uint64(s.Rank))
		writeNum(uint64(s.RecordedAt.UnixNano()))
	}
	return h.Sum64()
}
