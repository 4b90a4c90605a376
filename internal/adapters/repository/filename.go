package repository

import (
	"fmt"
	"regexp"
	"time"
)

// snapshotStamp matches e.g. 同盟統計2025年11月25日21時24分54秒.csv; the hour
// marker may be written simplified or traditional.
var snapshotStamp = regexp.MustCompile(`(\d{4})年(\d{2})月(\d{2})日(\d{2})[时時](\d{2})分(\d{2})秒`)

// ParseTimestamp extracts the capture time embedded in a snapshot filename.
func ParseTimestamp(name string, loc *time.Location) (time.Time, error) {
	m := snapshotStamp.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if loc == nil {
		loc = time.UTC
	}
	stamp := fmt.Sprintf("%s-%s-%s %s:%s:%s", m[1], m[2], m[3], m[4], m[5], m[6])
	t, err := time.ParseInLocation(time.DateTime, stamp, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidFilename, name, err)
	}
	return t, nil
}
