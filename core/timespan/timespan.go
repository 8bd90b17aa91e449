// Package timespan provides an immutable duration value type with
// arithmetic, comparison, and conversion helpers.
// All conversions round-trip through milliseconds.
package timespan

import (
	"fmt"
	"time"

	"coordex/internal/platform/clock"
)

// TimeSpan is a non-negative (or signed, for arithmetic) duration stored as
// integer milliseconds
type TimeSpan struct {
	ms int64
}

// Zero is the zero-length TimeSpan
var Zero = TimeSpan{}

// FromMilliseconds builds a TimeSpan from a millisecond count
func FromMilliseconds(ms int64) TimeSpan { return TimeSpan{ms: ms} }

// FromSeconds builds a TimeSpan from a second count
func FromSeconds(s float64) TimeSpan { return TimeSpan{ms: int64(s * 1000)} }

// FromMinutes builds a TimeSpan from a minute count
func FromMinutes(m float64) TimeSpan { return TimeSpan{ms: int64(m * 60_000)} }

// FromHours builds a TimeSpan from an hour count
func FromHours(h float64) TimeSpan { return TimeSpan{ms: int64(h * 3_600_000)} }

// FromDays builds a TimeSpan from a day count
func FromDays(d float64) TimeSpan { return TimeSpan{ms: int64(d * 86_400_000)} }

// FromDuration builds a TimeSpan from a stdlib time.Duration
func FromDuration(d time.Duration) TimeSpan { return TimeSpan{ms: d.Milliseconds()} }

// FromDateRange builds a TimeSpan spanning from a to b (b may precede a,
// producing a negative TimeSpan)
func FromDateRange(a, b time.Time) TimeSpan { return TimeSpan{ms: b.Sub(a).Milliseconds()} }

// Milliseconds returns the duration as a millisecond count
func (t TimeSpan) Milliseconds() int64 { return t.ms }

// Seconds returns the duration as a second count
func (t TimeSpan) Seconds() float64 { return float64(t.ms) / 1000 }

// Minutes returns the duration as a minute count
func (t TimeSpan) Minutes() float64 { return float64(t.ms) / 60_000 }

// Hours returns the duration as an hour count
func (t TimeSpan) Hours() float64 { return float64(t.ms) / 3_600_000 }

// Days returns the duration as a day count
func (t TimeSpan) Days() float64 { return float64(t.ms) / 86_400_000 }

// ToDuration converts to a stdlib time.Duration
func (t TimeSpan) ToDuration() time.Duration { return time.Duration(t.ms) * time.Millisecond }

// ToEndDate returns now() + t using the real system clock. Callers needing
// monotonic/deterministic results should use ToEndDateFrom with an injected
// clock.Clock.
func (t TimeSpan) ToEndDate() time.Time { return t.ToEndDateFrom(clock.Real()) }

// ToEndDateFrom returns c.Now() + t
func (t TimeSpan) ToEndDateFrom(c clock.Clock) time.Time {
	return c.Now().Add(t.ToDuration())
}

// Add returns t + other
func (t TimeSpan) Add(other TimeSpan) TimeSpan { return TimeSpan{ms: t.ms + other.ms} }

// Sub returns t - other
func (t TimeSpan) Sub(other TimeSpan) TimeSpan { return TimeSpan{ms: t.ms - other.ms} }

// Scale multiplies the duration by factor, truncating toward zero
func (t TimeSpan) Scale(factor float64) TimeSpan {
	return TimeSpan{ms: int64(float64(t.ms) * factor)}
}

// Compare returns -1, 0, 1 as t is less than, equal to, or greater than other
func (t TimeSpan) Compare(other TimeSpan) int {
	switch {
	case t.ms < other.ms:
		return -1
	case t.ms > other.ms:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether t < other
func (t TimeSpan) LessThan(other TimeSpan) bool { return t.ms < other.ms }

// GreaterThan reports whether t > other
func (t TimeSpan) GreaterThan(other TimeSpan) bool { return t.ms > other.ms }

// Equal reports whether t == other
func (t TimeSpan) Equal(other TimeSpan) bool { return t.ms == other.ms }

// IsZero reports whether the span is exactly zero
func (t TimeSpan) IsZero() bool { return t.ms == 0 }

// Min returns the smaller of two TimeSpans
func Min(a, b TimeSpan) TimeSpan {
	if a.ms < b.ms {
		return a
	}
	return b
}

// Max returns the larger of two TimeSpans
func Max(a, b TimeSpan) TimeSpan {
	if a.ms > b.ms {
		return a
	}
	return b
}

// String renders the TimeSpan as a Go duration string (e.g. "1.5s")
func (t TimeSpan) String() string { return t.ToDuration().String() }

// GoString supports %#v formatting in debuggers/logs
func (t TimeSpan) GoString() string { return fmt.Sprintf("timespan.FromMilliseconds(%d)", t.ms) }
