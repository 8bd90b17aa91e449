// Package observability is the toolkit-internal analog of the SQL query
// tracer: a pluggable seam that providers emit coordination events through
// (breaker trips and probes, lock contention) without forcing a metrics
// dependency on callers that don't want one.
package observability

import (
	"context"
	"sync"

	"coordex/internal/platform/logger"
)

// Event is one observed coordination occurrence
type Event struct {
	// Component names the emitting primitive ("circuitbreaker", "lock", …)
	Component string
	// Op names the operation that produced the event
	Op string
	// Key is the fully namespaced key the event concerns
	Key string
	// From/To carry a state transition when the event is one ("CLOSED" →
	// "OPEN"); empty otherwise
	From string
	To   string
	// Err is the error associated with the event, if any
	Err error
}

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	OnEvent(ctx context.Context, e Event)
}

// TracerFunc adapts a plain function to the Tracer interface
type TracerFunc func(ctx context.Context, e Event)

// OnEvent implements Tracer
func (f TracerFunc) OnEvent(ctx context.Context, e Event) { f(ctx, e) }

// nop discards every event
type nop struct{}

func (nop) OnEvent(context.Context, Event) {}

// Nop returns a Tracer that discards everything
func Nop() Tracer { return nop{} }

// Emit sends e to t, tolerating a nil tracer so call sites don't guard
func Emit(ctx context.Context, t Tracer, e Event) {
	if t == nil {
		return
	}
	t.OnEvent(ctx, e)
}

// Counters is a Tracer that tallies events by "component.op", for tests and
// lightweight in-process monitoring
type Counters struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewCounters returns an empty counter tracer
func NewCounters() *Counters { return &Counters{counts: map[string]int64{}} }

// OnEvent implements Tracer
func (c *Counters) OnEvent(_ context.Context, e Event) {
	c.mu.Lock()
	c.counts[e.Component+"."+e.Op]++
	c.mu.Unlock()
}

// Get returns the current tally for "component.op"
func (c *Counters) Get(component, op string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[component+"."+op]
}

// Snapshot returns a copy of every tally
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Log returns a Tracer that writes each event as a structured debug line
// through the given logger (warn when the event carries an error)
func Log(l *logger.Logger) Tracer {
	return TracerFunc(func(_ context.Context, e Event) {
		ev := l.Debug()
		if e.Err != nil {
			ev = l.Warn().Err(e.Err)
		}
		ev = ev.Str("component", e.Component).Str("op", e.Op).Str("key", e.Key)
		if e.From != "" || e.To != "" {
			ev = ev.Str("from", e.From).Str("to", e.To)
		}
		ev.Msg("coordination event")
	})
}
