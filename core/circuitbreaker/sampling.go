package circuitbreaker

import (
	"encoding/json"
	"time"

	"coordex/core/backoff"
	"coordex/core/timespan"
)

// SamplingOptions configures NewSamplingPolicy
type SamplingOptions struct {
	// FailureRateThreshold trips the breaker when
	// failures/samples ≥ threshold over the sampling window
	FailureRateThreshold float64 `validate:"required,gt=0,lte=1"`
	// SamplingDuration is the width of the rolling time window
	SamplingDuration timespan.TimeSpan `validate:"-"`
	// MinSamples gates tripping: the ratio is ignored until the window
	// holds at least this many samples
	MinSamples int `validate:"required,min=1"`
	// Backoff spaces OPEN → HALF_OPEN probes; defaults to
	// DefaultReopenBackoff
	Backoff backoff.Policy `validate:"-"`
}

// samplingBuckets is how many sub-intervals the window is divided into;
// pruning whole buckets keeps the metrics blob bounded without storing one
// timestamp per call
const samplingBuckets = 10

// samplingBucket tallies outcomes inside one sub-interval of the window
type samplingBucket struct {
	Start     time.Time `json:"start"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
}

// samplingMetrics is the CLOSED-phase bookkeeping: time-ordered buckets
// covering the sampling window
type samplingMetrics struct {
	Buckets []samplingBucket `json:"buckets"`
}

type samplingPolicy struct {
	basePolicy
	threshold  float64
	window     time.Duration
	bucketSpan time.Duration
	minSamples int
}

// NewSamplingPolicy builds a sampling tripping policy: trips on a
// time-bucketed failure ratio once enough samples accumulate
func NewSamplingPolicy(opts SamplingOptions) (Policy, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	window := opts.SamplingDuration
	if window.Milliseconds() <= 0 {
		window = timespan.FromSeconds(30)
	}
	return &samplingPolicy{
		basePolicy: newBasePolicy(opts.Backoff),
		threshold:  opts.FailureRateThreshold,
		window:     window.ToDuration(),
		bucketSpan: window.ToDuration() / samplingBuckets,
		minSamples: opts.MinSamples,
	}, nil
}

func (p *samplingPolicy) metrics(s State) samplingMetrics {
	var m samplingMetrics
	if len(s.Metrics) > 0 {
		_ = json.Unmarshal(s.Metrics, &m)
	}
	return m
}

// prune drops buckets that have slid fully out of the window
func (p *samplingPolicy) prune(m samplingMetrics, now time.Time) samplingMetrics {
	cutoff := now.Add(-p.window)
	kept := m.Buckets[:0]
	for _, b := range m.Buckets {
		if b.Start.Add(p.bucketSpan).After(cutoff) {
			kept = append(kept, b)
		}
	}
	m.Buckets = kept
	return m
}

func (p *samplingPolicy) record(s State, now time.Time, failed bool) State {
	m := p.prune(p.metrics(s), now)

	bucketStart := now.Truncate(p.bucketSpan)
	if n := len(m.Buckets); n == 0 || !m.Buckets[n-1].Start.Equal(bucketStart) {
		m.Buckets = append(m.Buckets, samplingBucket{Start: bucketStart})
	}
	cur := &m.Buckets[len(m.Buckets)-1]
	if failed {
		cur.Failures++
	} else {
		cur.Successes++
	}

	failures, samples := 0, 0
	for _, b := range m.Buckets {
		failures += b.Failures
		samples += b.Failures + b.Successes
	}
	if samples >= p.minSamples && float64(failures)/float64(samples) >= p.threshold {
		return trip(now, 1)
	}
	return closedWith(m)
}

func (p *samplingPolicy) InitialState() State { return closedWith(samplingMetrics{}) }

func (p *samplingPolicy) WhenClosed(s State, _ time.Time) State { return s }

func (p *samplingPolicy) TrackFailureWhenClosed(s State, now time.Time) State {
	return p.record(s, now, true)
}

func (p *samplingPolicy) TrackSuccessWhenClosed(s State, now time.Time) State {
	return p.record(s, now, false)
}

func (p *samplingPolicy) TrackSuccessWhenHalfOpened(State, time.Time) State {
	return p.InitialState()
}
