package gharchive

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

const (
	gzExt   = ".json.gz"
	jsonExt = ".json"
)

// Record is one decoded archive line; numbers decode as float64
type Record = map[string]any

// HourRef identifies a GH Archive hour (UTC).
type HourRef struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewHourRef creates an HourRef from a time.Time, converting to UTC
func NewHourRef(t time.Time) HourRef {
	ut := t.UTC()
	return HourRef{Year: ut.Year(), Month: int(ut.Month()), Day: ut.Day(), Hour: ut.Hour()}
}

// String returns the hour in GH Archive format: YYYY-MM-DD-H
func (h HourRef) String() string {
	return fmt.Sprintf("%04d-%02d-%02d-%d", h.Year, h.Month, h.Day, h.Hour)
}

// Time returns the start of the hour in UTC
func (h HourRef) Time() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// Key is the archive file name for the hour of t, e.g. 2015-01-01-15.json.gz
func Key(t time.Time) string { return NewHourRef(t).String() + gzExt }

// PlainKey is Key without the .gz suffix
func PlainKey(t time.Time) string { return NewHourRef(t).String() + jsonExt }

// ParseKey parses an archive file name (compressed or plain) back to its hour
func ParseKey(name string) (time.Time, bool) {
	base, ok := strings.CutSuffix(name, gzExt)
	if !ok {
		base, ok = strings.CutSuffix(name, jsonExt)
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02-15", base)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Hours yields from, from+1h, ... while the instant is before to.
// Steps are plain duration arithmetic so DST never skips or repeats an hour.
func Hours(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for t := from; t.Before(to); t = t.Add(time.Hour) {
			if !yield(t) {
				return
			}
		}
	}
}

// CountHours is the number of instants Hours(from, to) yields
func CountHours(from, to time.Time) int {
	if !from.Before(to) {
		return 0
	}
	d := to.Sub(from)
	n := int(d / time.Hour)
	if d%time.Hour != 0 {
		n++
	}
	return n
}
