package circuitbreaker

import (
	"encoding/json"
	"time"

	"coordex/core/backoff"
)

// ConsecutiveOptions configures NewConsecutivePolicy
type ConsecutiveOptions struct {
	// FailureThreshold trips the breaker after this many failures in a row
	FailureThreshold int `validate:"required,min=1"`
	// Backoff spaces OPEN → HALF_OPEN probes; defaults to
	// DefaultReopenBackoff
	Backoff backoff.Policy `validate:"-"`
}

// consecutiveMetrics is the CLOSED-phase bookkeeping: failures since the
// last success
type consecutiveMetrics struct {
	Failures int `json:"failures"`
}

type consecutivePolicy struct {
	basePolicy
	threshold int
}

// NewConsecutivePolicy builds a consecutive-failures tripping policy:
// trips after FailureThreshold consecutive failures
func NewConsecutivePolicy(opts ConsecutiveOptions) (Policy, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	return &consecutivePolicy{
		basePolicy: newBasePolicy(opts.Backoff),
		threshold:  opts.FailureThreshold,
	}, nil
}

func (p *consecutivePolicy) metrics(s State) consecutiveMetrics {
	var m consecutiveMetrics
	if len(s.Metrics) > 0 {
		_ = json.Unmarshal(s.Metrics, &m)
	}
	return m
}

func closedWith(m any) State {
	raw, _ := json.Marshal(m)
	return State{Phase: Closed, Metrics: raw}
}

func (p *consecutivePolicy) InitialState() State {
	return closedWith(consecutiveMetrics{})
}

func (p *consecutivePolicy) WhenClosed(s State, _ time.Time) State { return s }

func (p *consecutivePolicy) TrackFailureWhenClosed(s State, now time.Time) State {
	m := p.metrics(s)
	m.Failures++
	if m.Failures >= p.threshold {
		return trip(now, 1)
	}
	return closedWith(m)
}

func (p *consecutivePolicy) TrackSuccessWhenClosed(s State, _ time.Time) State {
	return closedWith(consecutiveMetrics{})
}

func (p *consecutivePolicy) TrackSuccessWhenHalfOpened(State, time.Time) State {
	return p.InitialState()
}
