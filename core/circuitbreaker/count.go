package circuitbreaker

import (
	"encoding/json"
	"time"

	"coordex/core/backoff"
)

// CountOptions configures NewCountPolicy
type CountOptions struct {
	// FailureThreshold trips the breaker once this many failures sit
	// inside the rolling window
	FailureThreshold int `validate:"required,min=1"`
	// WindowSize bounds how many recent outcomes the window retains
	WindowSize int `validate:"required,min=1"`
	// Backoff spaces OPEN → HALF_OPEN probes; defaults to
	// DefaultReopenBackoff
	Backoff backoff.Policy `validate:"-"`
}

// countMetrics is the CLOSED-phase bookkeeping: the last WindowSize call
// outcomes, newest last, true = failure
type countMetrics struct {
	Outcomes []bool `json:"outcomes"`
}

func (m countMetrics) failures() int {
	n := 0
	for _, failed := range m.Outcomes {
		if failed {
			n++
		}
	}
	return n
}

type countPolicy struct {
	basePolicy
	threshold  int
	windowSize int
}

// NewCountPolicy builds a rolling-count tripping policy: trips after
// FailureThreshold failures inside a rolling window of WindowSize calls
func NewCountPolicy(opts CountOptions) (Policy, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	return &countPolicy{
		basePolicy: newBasePolicy(opts.Backoff),
		threshold:  opts.FailureThreshold,
		windowSize: opts.WindowSize,
	}, nil
}

func (p *countPolicy) metrics(s State) countMetrics {
	var m countMetrics
	if len(s.Metrics) > 0 {
		_ = json.Unmarshal(s.Metrics, &m)
	}
	return m
}

func (p *countPolicy) record(s State, now time.Time, failed bool) State {
	m := p.metrics(s)
	m.Outcomes = append(m.Outcomes, failed)
	if len(m.Outcomes) > p.windowSize {
		m.Outcomes = m.Outcomes[len(m.Outcomes)-p.windowSize:]
	}
	if m.failures() >= p.threshold {
		return trip(now, 1)
	}
	return closedWith(m)
}

func (p *countPolicy) InitialState() State { return closedWith(countMetrics{}) }

func (p *countPolicy) WhenClosed(s State, _ time.Time) State { return s }

func (p *countPolicy) TrackFailureWhenClosed(s State, now time.Time) State {
	return p.record(s, now, true)
}

func (p *countPolicy) TrackSuccessWhenClosed(s State, now time.Time) State {
	return p.record(s, now, false)
}

func (p *countPolicy) TrackSuccessWhenHalfOpened(State, time.Time) State {
	return p.InitialState()
}
