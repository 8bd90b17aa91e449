// Package memory provides the in-memory reference adapters for every
// coordination primitive. A single mutex per adapter stands in for the
// backend transaction around each compound check-then-write; expiration is
// logical (reads filter by expiration, rows may linger until
// swept or overwritten).
package memory

import "time"

// live reports whether an expiration timestamp is still in the future (nil
// means "never expires")
func live(exp *time.Time, now time.Time) bool {
	return exp == nil || exp.After(now)
}
