package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Fixed(want)
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("Fixed().Now() = %v, want %v", got, want)
	}
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("Fixed().Now() second call = %v, want %v", got, want)
	}
}

func TestReal(t *testing.T) {
	before := time.Now()
	got := Real().Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("Real().Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestPtr(t *testing.T) {
	if p := Ptr(time.Time{}); p != nil {
		t.Fatalf("Ptr(zero) = %v, want nil", p)
	}
	now := time.Now()
	p := Ptr(now)
	if p == nil || !p.Equal(now) {
		t.Fatalf("Ptr(now) = %v, want %v", p, now)
	}
}

func TestDerefOrZero(t *testing.T) {
	if got := DerefOrZero(nil); !got.IsZero() {
		t.Fatalf("DerefOrZero(nil) = %v, want zero", got)
	}
	now := time.Now()
	if got := DerefOrZero(&now); !got.Equal(now) {
		t.Fatalf("DerefOrZero(&now) = %v, want %v", got, now)
	}
}
