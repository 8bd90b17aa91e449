package sharedlock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"coordex/core/namespace"
	"coordex/core/providerkit"
	"coordex/core/taxonomy"
	"coordex/core/timespan"
)

const component = "sharedlock"

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

// NewOwner generates a random owner identifier
func NewOwner() string { return uuid.NewString() }

func expirationOf(ttl *timespan.TimeSpan) *time.Time {
	if ttl == nil {
		return nil
	}
	e := ttl.ToEndDate()
	return &e
}

// AcquireWriter attempts to take the writer role on key
func (p *Provider) AcquireWriter(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.AcquireWriter(ctx, k, owner, exp)
		if err != nil {
			return false, taxonomy.Wrap(component, "acquireWriter", err)
		}
		return ok, nil
	})
}

// AcquireReader attempts to take a reader slot on key
func (p *Provider) AcquireReader(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.AcquireReader(ctx, k, owner, exp)
		if err != nil {
			return false, taxonomy.Wrap(component, "acquireReader", err)
		}
		return ok, nil
	})
}

// ReleaseWriter releases the writer role iff owner holds it
func (p *Provider) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.ReleaseWriter(ctx, k, owner)
		if err != nil {
			return false, taxonomy.Wrap(component, "releaseWriter", err)
		}
		return ok, nil
	})
}

// ReleaseReader releases one reader slot iff owner holds it
func (p *Provider) ReleaseReader(ctx context.Context, key, owner string) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.ReleaseReader(ctx, k, owner)
		if err != nil {
			return false, taxonomy.Wrap(component, "releaseReader", err)
		}
		return ok, nil
	})
}

// RefreshWriter extends the writer's expiration on behalf of owner
func (p *Provider) RefreshWriter(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (RefreshResult, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (RefreshResult, error) {
		r, err := p.adapter.RefreshWriter(ctx, k, owner, exp)
		if err != nil {
			return 0, taxonomy.Wrap(component, "refreshWriter", err)
		}
		return r, nil
	})
}

// RefreshReader extends one reader's expiration on behalf of owner
func (p *Provider) RefreshReader(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (RefreshResult, error) {
	k := p.prefixer.Create(key).String()
	exp := expirationOf(ttl)
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (RefreshResult, error) {
		r, err := p.adapter.RefreshReader(ctx, k, owner, exp)
		if err != nil {
			return 0, taxonomy.Wrap(component, "refreshReader", err)
		}
		return r, nil
	})
}

// ForceRelease clears both the writer and every reader on key
func (p *Provider) ForceRelease(ctx context.Context, key string) error {
	k := p.prefixer.Create(key).String()
	_, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, taxonomy.Wrap(component, "forceRelease", p.adapter.ForceRelease(ctx, k))
	})
	return err
}

// GetState returns the live writer/readers for key
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
