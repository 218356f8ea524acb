package engine

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is a recognized dispensation or session schedule frequency.
// Stored frequency strings are free text, so every code path goes through
// ParseFrequency before doing bucket arithmetic.
type Frequency string

const (
	FrequencyDaily      Frequency = "Daily"
	FrequencyTwiceDaily Frequency = "Twice Daily"
	FrequencyWeekly     Frequency = "Weekly"
	FrequencyMonthly    Frequency = "Monthly"
)

// ParseFrequency normalizes a stored frequency string. Unknown values return
// ErrUnsupportedFrequency; callers must treat that as a fatal configuration
// error, not something to retry.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return FrequencyDaily, nil
	case "twice daily", "twice-daily":
		return FrequencyTwiceDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFrequency, s)
	}
}

// BucketStart maps an instant to the canonical start of the bucket that
// contains it, in the reporting timezone loc.
//
//   - Daily: start of the calendar day
//   - Twice Daily: 00:00 or 12:00, whichever slot contains the instant
//   - Weekly: Monday 00:00 of the ISO week
//   - Monthly: first of the calendar month
func (f Frequency) BucketStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	year, month, day := t.Date()
	switch f {
	case FrequencyDaily:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	case FrequencyTwiceDaily:
		slot := 0
		if t.Hour() >= 12 {
			slot = 12
		}
		return time.Date(year, month, day, slot, 0, 0, 0, loc)
	case FrequencyWeekly:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
		weekday := int(midnight.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the week that started the prior Monday
		}
		return midnight.AddDate(0, 0, -(weekday - 1))
	case FrequencyMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	default:
		// Unreachable for values produced by ParseFrequency.
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
}

// NextBucket returns the start of the bucket following start. start must be
// a canonical bucket start for f.
func (f Frequency) NextBucket(start time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return start.AddDate(0, 0, 1)
	case FrequencyTwiceDaily:
		return start.Add(12 * time.Hour)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketsIn enumerates the ordered canonical bucket starts whose spans
// intersect [from, to]. The first bucket may start before from: a window
// opening mid-period still owes that period.
func BucketsIn(f Frequency, from, to time.Time, loc *time.Location) []time.Time {
	if to.Before(from) {
		return nil
	}
	var buckets []time.Time
	for b := f.BucketStart(from, loc); !b.After(to); b = f.NextBucket(b) {
		buckets = append(buckets, b)
	}
	return buckets
}
