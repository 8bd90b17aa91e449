package circuitbreaker

import (
	"context"

	"coordex/core/namespace"
	"coordex/core/observability"
	"coordex/core/providerkit"
	"coordex/core/taxonomy"
)

const component = "circuitbreaker"

// FailurePolicy classifies which errors count as "failures" for state
// tracking. The default (nil) counts every error.
type FailurePolicy func(error) bool

// Provider is the entry point applications hold: a namespaced façade whose
// Execute guards calls with the breaker state machine
type Provider struct {
	manager       *StateManager
	prefixer      namespace.KeyPrefixer
	resilience    providerkit.Resilience
	failurePolicy FailurePolicy
}

// Options configures a new Provider
type Options struct {
	// Adapter is the state persistence backend. Required (or SetDefault).
	Adapter Adapter
	// Policy is the tripping policy. Required.
	Policy Policy
	// Namespace scopes every key this Provider creates
	Namespace namespace.Namespace
	// Group further scopes keys beneath Namespace, as WithGroup would
	Group []string
	// Resilience wraps every storage operation in optional middleware
	Resilience providerkit.Resilience
	// FailurePolicy classifies errors for tracking; nil counts every error
	FailurePolicy FailurePolicy
	// Tracer receives state-transition events; nil disables emission
	Tracer observability.Tracer
	// Storage overrides the derived Storage, mainly to inject a test clock
	Storage *Storage
}

var defaultAdapter Adapter

// SetDefault installs the package-wide fallback adapter
func SetDefault(a Adapter) { defaultAdapter = a }

// New builds a Provider from Options, wiring Policy → Storage →
// StateManager in that order
func New(opts Options) (*Provider, error) {
	adapter := opts.Adapter
	if adapter == nil {
		adapter = defaultAdapter
	}
	if adapter == nil {
		return nil, &taxonomy.DefaultAdapterNotDefinedError{Component: component}
	}
	if opts.Policy == nil {
		return nil, &Error{Op: "new", Cause: errNoPolicy}
	}
	storage := opts.Storage
	if storage == nil {
		storage = NewStorage(adapter, opts.Policy)
	}
	return &Provider{
		manager:       NewStateManager(storage, opts.Policy, opts.Tracer),
		prefixer:      namespace.NewKeyPrefixer(opts.Namespace, opts.Group...),
		resilience:    opts.Resilience,
		failurePolicy: opts.FailurePolicy,
	}, nil
}

// WithGroup derives a Provider scoped to an additional sub-group, sharing
// the same state manager and configuration
func (p *Provider) WithGroup(sub string) *Provider {
	return &Provider{
		manager:       p.manager,
		prefixer:      p.prefixer.WithGroup(sub),
		resilience:    p.resilience,
		failurePolicy: p.failurePolicy,
	}
}

// Group returns the group path this Provider is scoped to
func (p *Provider) Group() string { return p.prefixer.Group() }

func (p *Provider) countsAsFailure(err error) bool {
	if p.failurePolicy == nil {
		return true
	}
	return p.failurePolicy(err)
}

// guard advances key's state and short-circuits when it lands OPEN or
// ISOLATED
func (p *Provider) guard(ctx context.Context, key, namespaced string) error {
	state, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (State, error) {
		s, err := p.manager.UpdateState(ctx, namespaced)
		if err != nil {
			return State{}, taxonomy.Wrap(component, "updateState", err)
		}
		return s, nil
	})
	if err != nil {
		return err
	}
	switch state.Phase {
	case Open:
		return &OpenError{Key: key}
	case Isolated:
		return &IsolatedError{Key: key}
	default:
		return nil
	}
}

// track records fn's outcome. Tracking failures are infrastructure errors
// and surface to the caller rather than silently dropping state updates.
func (p *Provider) track(ctx context.Context, namespaced string, callErr error) error {
	var err error
	if callErr != nil && p.countsAsFailure(callErr) {
		err = p.manager.TrackFailure(ctx, namespaced)
	} else {
		err = p.manager.TrackSuccess(ctx, namespaced)
	}
	return taxonomy.Wrap(component, "track", err)
}

// Execute guards fn with key's breaker: OPEN/ISOLATED short-circuit before
// fn runs, and fn's outcome feeds the state machine afterwards
func (p *Provider) Execute(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	namespaced := p.prefixer.Create(key).String()
	if err := p.guard(ctx, key, namespaced); err != nil {
		return err
	}
	callErr := fn(ctx)
	if trackErr := p.track(ctx, namespaced, callErr); trackErr != nil {
		return trackErr
	}
	return callErr
}

// Execute guards fn with key's breaker on p, returning fn's value; the
// generic package-level form of Provider.Execute
func Execute[T any](ctx context.Context, p *Provider, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, key, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// GetState returns key's current state without advancing it
func (p *Provider) GetState(ctx context.Context, key string) (State, error) {
	namespaced := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (State, error) {
		s, err := p.manager.Find(ctx, namespaced)
		if err != nil {
			return State{}, taxonomy.Wrap(component, "find", err)
		}
		return s, nil
	})
}

// Isolate forces key into ISOLATED until Reset
func (p *Provider) Isolate(ctx context.Context, key string) error {
	namespaced := p.prefixer.Create(key).String()
	_, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, taxonomy.Wrap(component, "isolate", p.manager.Isolate(ctx, namespaced))
	})
	return err
}

// Reset clears key's state, leaving ISOLATED (or any phase) back to CLOSED
func (p *Provider) Reset(ctx context.Context, key string) error {
	namespaced := p.prefixer.Create(key).String()
	_, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, taxonomy.Wrap(component, "reset", p.manager.Reset(ctx, namespaced))
	})
	return err
}
