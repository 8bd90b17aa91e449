package semaphore

import (
	"context"
	"time"

	"coordex/core/namespace"
	"coordex/core/providerkit"
	"coordex/core/taxonomy"
	"coordex/core/timespan"
)

const component = "semaphore"

// Provider is the entry point applications hold: a namespaced, resilient
// façade over an Adapter
type Provider struct {
	adapter    Adapter
	prefixer   namespace.KeyPrefixer
	resilience providerkit.Resilience
}

// Options configures a new Provider
type Options struct {
	Adapter    Adapter
	Namespace  namespace.Namespace
	Group      []string
	Resilience providerkit.Resilience
}

var defaultAdapter Adapter

// SetDefault installs the package-wide fallback adapter
func SetDefault(a Adapter) { defaultAdapter = a }

// New builds a Provider from Options
func New(opts Options) (*Provider, error) {
	adapter := opts.Adapter
	if adapter == nil {
		adapter = defaultAdapter
	}
	if adapter == nil {
		return nil, &taxonomy.DefaultAdapterNotDefinedError{Component: component}
	}
	return &Provider{
		adapter:    adapter,
		prefixer:   namespace.NewKeyPrefixer(opts.Namespace, opts.Group...),
		resilience: opts.Resilience,
	}, nil
}

// WithGroup derives a Provider scoped to an additional sub-group
func (p *Provider) WithGroup(sub string) *Provider {
	return &Provider{adapter: p.adapter, prefixer: p.prefixer.WithGroup(sub), resilience: p.resilience}
}

// Group returns the group path this Provider is scoped to
func (p *Provider) Group() string { return p.prefixer.Group() }

// Acquire attempts to take slotID on key, enforcing limit
func (p *Provider) Acquire(ctx context.Context, key, slotID string, limit int, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	var exp *time.Time
	if ttl != nil {
		e := ttl.ToEndDate()
		exp = &e
	}
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Acquire(ctx, k, slotID, limit, exp)
		if err != nil {
			return false, taxonomy.Wrap(component, "acquire", err)
		}
		return ok, nil
	})
}

// Release removes slotID from key
func (p *Provider) Release(ctx context.Context, key, slotID string) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Release(ctx, k, slotID)
		if err != nil {
			return false, taxonomy.Wrap(component, "release", err)
		}
		return ok, nil
	})
}

// Refresh extends slotID's expiration
func (p *Provider) Refresh(ctx context.Context, key, slotID string, ttl *timespan.TimeSpan) (RefreshResult, error) {
	k := p.prefixer.Create(key).String()
	var exp *time.Time
	if ttl != nil {
		e := ttl.ToEndDate()
		exp = &e
	}
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (RefreshResult, error) {
		r, err := p.adapter.Refresh(ctx, k, slotID, exp)
		if err != nil {
			return 0, taxonomy.Wrap(component, "refresh", err)
		}
		return r, nil
	})
}

// GetState returns the live limit/slots for key
func (p *Provider) GetState(ctx context.Context, key string) (State, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (State, error) {
		st, err := p.adapter.GetState(ctx, k)
		if err != nil {
			return State{}, taxonomy.Wrap(component, "getState", err)
		}
		return st, nil
	})
}
