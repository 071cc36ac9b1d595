package types

import (
	"time"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Interval is the bar interval a signal or indicator is computed on.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

// SupportedIntervals lists every interval the scheduler can align to.
func SupportedIntervals() []Interval {
	return []Interval{
		Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval2h, Interval4h, Interval6h, Interval12h,
		Interval1d, Interval1w, Interval1M,
	}
}

// Minutes returns the interval length in minutes, or 0 for calendar intervals
// (day, week, month) whose length is not fixed in minutes.
func (i Interval) Minutes() int {
	switch i {
	case Interval1m:
		return 1
	case Interval3m:
		return 3
	case Interval5m:
		return 5
	case Interval15m:
		return 15
	case Interval30m:
		return 30
	case Interval1h:
		return 60
	case Interval2h:
		return 120
	case Interval4h:
		return 240
	case Interval6h:
		return 360
	case Interval12h:
		return 720
	default:
		return 0
	}
}

// Duration returns the nominal bar duration. Weeks are 7 days and months are
// approximated as 30 days; use NextBoundary for calendar-correct alignment.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	case Interval1M:
		return 30 * 24 * time.Hour
	default:
		return time.Duration(i.Minutes()) * time.Minute
	}
}

// Valid reports whether the interval is one of the supported set.
func (i Interval) Valid() bool {
	switch i {
	case Interval1d, Interval1w, Interval1M:
		return true
	default:
		return i.Minutes() > 0
	}
}

// ParseInterval validates a raw interval string.
func ParseInterval(raw string) (Interval, error) {
	i := Interval(raw)
	if !i.Valid() {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", raw)
	}

	return i, nil
}

// NextBoundary returns the first bar boundary strictly after t for this
// interval, in UTC. Minute-based intervals round up to the next multiple of
// the interval length from midnight; day rounds to the next midnight, week to
// the next Sunday midnight, month to the next first-of-month midnight.
func (i Interval) NextBoundary(t time.Time) time.Time {
	t = t.UTC()

	switch i {
	case Interval1d:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

		return midnight.AddDate(0, 0, 1)
	case Interval1w:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		days := (7 - int(midnight.Weekday())) % 7
		if days == 0 {
			days = 7
		}

		return midnight.AddDate(0, 0, days)
	case Interval1M:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	default:
		step := time.Duration(i.Minutes()) * time.Minute
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		elapsed := t.Sub(midnight)
		next := midnight.Add(elapsed.Truncate(step) + step)

		return next
	}
}
