package cache

import (
	"context"
	"time"

	"coordex/core/namespace"
	"coordex/core/providerkit"
	"coordex/core/taxonomy"
	"coordex/core/timespan"
)

const component = "cache"

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
	Database   DatabaseAdapter
	Namespace  namespace.Namespace
	Group      []string
	Resilience providerkit.Resilience
}

var defaultAdapter Adapter

// SetDefault installs the package-wide fallback adapter
func SetDefault(a Adapter) { defaultAdapter = a }

// ResolveAdapter resolves any value into a full Adapter, wrapping a bare
// DatabaseAdapter via Derive
func ResolveAdapter(v any) (Adapter, error) {
	switch a := v.(type) {
	case Adapter:
		return a, nil
	case DatabaseAdapter:
		return Derive(a), nil
	default:
		return nil, &taxonomy.UnregisteredAdapterError{Component: component, Adapter: v}
	}
}

// New builds a Provider from Options
func New(opts Options) (*Provider, error) {
	adapter := opts.Adapter
	if adapter == nil && opts.Database != nil {
		adapter = Derive(opts.Database)
	}
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

// WithGroup derives a Provider scoped to an additional sub-group whose keys
// and Clear calls are independent of the parent's
func (p *Provider) WithGroup(sub string) *Provider {
	return &Provider{adapter: p.adapter, prefixer: p.prefixer.WithGroup(sub), resilience: p.resilience}
}

// Group returns the group path this Provider is scoped to
func (p *Provider) Group() string { return p.prefixer.Group() }

func expirationOf(ttl *timespan.TimeSpan) *time.Time {
	if ttl == nil {
		return nil
	}
	e := ttl.ToEndDate()
	return &e
}

// Get returns the live value for key, or nil if absent/expired
func (p *Provider) Get(ctx context.Context, key string) (any, error) {
	k := p.prefixer.Create(key).String()
	e, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (*Entry, error) {
		entry, err := p.adapter.Get(ctx, k)
		if err != nil {
			return nil, taxonomy.Wrap(component, "get", err)
		}
		return entry, nil
	})
	if err != nil || e == nil {
		return nil, err
	}
	return e.Value, nil
}

// Add inserts value under key with ttl iff key is absent
func (p *Provider) Add(ctx context.Context, key string, value any, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Add(ctx, k, value, exp)
		if err != nil {
			return false, taxonomy.Wrap(component, "add", err)
		}
		return ok, nil
	})
}

// Update replaces value under key iff it is present and unexpired,
// preserving its TTL
func (p *Provider) Update(ctx context.Context, key string, value any) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Update(ctx, k, value)
		if err != nil {
			return false, taxonomy.Wrap(component, "update", err)
		}
		return ok, nil
	})
}

// Put upserts value under key with ttl
func (p *Provider) Put(ctx context.Context, key string, value any, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Put(ctx, k, value, exp)
		if err != nil {
			return false, taxonomy.Wrap(component, "put", err)
		}
		return ok, nil
	})
}

// Increment adds delta to key's stored numeric value
func (p *Provider) Increment(ctx context.Context, key string, delta float64) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Increment(ctx, k, delta)
		if err != nil {
			return false, err // TypeCacheError and wrapped errors both pass through unwrapped
		}
		return ok, nil
	})
}

// Remove deletes key iff it holds a live entry
func (p *Provider) Remove(ctx context.Context, key string) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Remove(ctx, k)
		if err != nil {
			return false, taxonomy.Wrap(component, "remove", err)
		}
		return ok, nil
	})
}

// Clear drops every entry in this Provider's group
func (p *Provider) Clear(ctx context.Context) error {
	prefix := p.prefixer.Create("").String()
	_, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, taxonomy.Wrap(component, "clear", p.adapter.Clear(ctx, prefix))
	})
	return err
}
