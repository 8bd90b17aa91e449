package lock

import (
	"context"

	"github.com/google/uuid"

	"coordex/core/hook"
	"coordex/core/lazypromise"
	"coordex/core/namespace"
	"coordex/core/observability"
	"coordex/core/providerkit"
	"coordex/core/taxonomy"
	"coordex/core/timespan"
)

// component names this package in errors/telemetry
const component = "lock"

// Provider is the entry point applications hold: a namespaced, resilient
// façade over an Adapter.
type Provider struct {
	adapter    Adapter
	prefixer   namespace.KeyPrefixer
	resilience providerkit.Resilience
	tracer     observability.Tracer
}

// Options configures a new Provider
type Options struct {
	// Adapter is the full backend contract. If nil, Database is tried, then
	// Default.
	Adapter Adapter
	// Database is the simpler CRUD contract; used via Derive when Adapter
	// is nil
	Database DatabaseAdapter
	// Namespace scopes every key this Provider creates
	Namespace namespace.Namespace
	// Group further scopes keys beneath Namespace, as WithGroup would
	Group []string
	// Resilience wraps every operation in optional timeout/retry middleware
	Resilience providerkit.Resilience
	// Tracer receives contention events; nil disables emission
	Tracer observability.Tracer
}

// defaultAdapter is used when Options leaves both Adapter and Database nil;
// nil until SetDefault is called; constructing a Provider without any
// adapter then fails with DefaultAdapterNotDefinedError
var defaultAdapter Adapter

// SetDefault installs the package-wide fallback adapter used when neither
// Options.Adapter nor Options.Database is supplied
func SetDefault(a Adapter) { defaultAdapter = a }

// ResolveAdapter resolves any value into a full Adapter: a value already
// satisfying Adapter is used
// directly, one satisfying only DatabaseAdapter is wrapped via Derive,
// anything else is rejected.
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
		tracer:     opts.Tracer,
	}, nil
}

// WithGroup derives a Provider scoped to an additional sub-group, sharing
// the same adapter and resilience configuration
func (p *Provider) WithGroup(sub string) *Provider {
	return &Provider{
		adapter:    p.adapter,
		prefixer:   p.prefixer.WithGroup(sub),
		resilience: p.resilience,
		tracer:     p.tracer,
	}
}

// Group returns the group path this Provider is scoped to
func (p *Provider) Group() string { return p.prefixer.Group() }

// NewOwner generates a random owner identifier for Acquire/AcquireBlocking
// callers that don't supply their own
func NewOwner() string { return uuid.NewString() }

// Acquire attempts to take the lock on key for owner, expiring after ttl
// (nil ttl never expires)
func (p *Provider) Acquire(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Acquire(ctx, k, owner, ttl)
		if err != nil {
			return false, taxonomy.Wrap(component, "acquire", err)
		}
		if !ok {
			observability.Emit(ctx, p.tracer, observability.Event{Component: component, Op: "contention", Key: k})
		}
		return ok, nil
	})
}

// AcquireAsync is Acquire's deferred-execution form, for callers that want
// to attach additional middleware before the call starts running
func (p *Provider) AcquireAsync(key, owner string, ttl *timespan.TimeSpan, mws ...hook.Middleware[bool]) *lazypromise.LazyPromise[bool] {
	k := p.prefixer.Create(key).String()
	fn := hook.Func[bool](func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Acquire(ctx, k, owner, ttl)
		if err != nil {
			return false, taxonomy.Wrap(component, "acquire", err)
		}
		return ok, nil
	})
	return providerkit.Attach(p.resilience, wrapMiddleware(fn, mws))
}

// Release releases key iff owner currently holds it
func (p *Provider) Release(ctx context.Context, key, owner string) (bool, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (bool, error) {
		ok, err := p.adapter.Release(ctx, k, owner)
		if err != nil {
			return false, taxonomy.Wrap(component, "release", err)
		}
		return ok, nil
	})
}

// ReleaseOrError is Release, but reports a mismatched owner as
// UnownedReleaseLockError instead of (false, nil)
func (p *Provider) ReleaseOrError(ctx context.Context, key, owner string) error {
	ok, err := p.Release(ctx, key, owner)
	if err != nil {
		return err
	}
	if !ok {
		return &UnownedReleaseLockError{Key: key}
	}
	return nil
}

// ForceRelease removes key regardless of ownership
func (p *Provider) ForceRelease(ctx context.Context, key string) error {
	k := p.prefixer.Create(key).String()
	_, err := providerkit.Await(ctx, p.resilience, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, taxonomy.Wrap(component, "forceRelease", p.adapter.ForceRelease(ctx, k))
	})
	return err
}

// Refresh extends key's expiration on behalf of owner
func (p *Provider) Refresh(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) (RefreshResult, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (RefreshResult, error) {
		r, err := p.adapter.Refresh(ctx, k, owner, ttl)
		if err != nil {
			return 0, taxonomy.Wrap(component, "refresh", err)
		}
		return r, nil
	})
}

// RefreshOrError is Refresh, but reports UnownedRefresh as
// UnownedRefreshLockError instead of a sum-type value
func (p *Provider) RefreshOrError(ctx context.Context, key, owner string, ttl *timespan.TimeSpan) error {
	r, err := p.Refresh(ctx, key, owner, ttl)
	if err != nil {
		return err
	}
	if r == UnownedRefresh {
		return &UnownedRefreshLockError{Key: key}
	}
	return nil
}

// GetState returns the live record for key, or nil if absent/expired
func (p *Provider) GetState(ctx context.Context, key string) (*Record, error) {
	k := p.prefixer.Create(key).String()
	return providerkit.Await(ctx, p.resilience, func(ctx context.Context) (*Record, error) {
		rec, err := p.adapter.Find(ctx, k)
		if err != nil {
			return nil, taxonomy.Wrap(component, "find", err)
		}
		return rec, nil
	})
}

func wrapMiddleware[T any](fn hook.Func[T], mws []hook.Middleware[T]) hook.Func[T] {
	if len(mws) == 0 {
		return fn
	}
	p := hook.New(fn, mws...)
	return func(ctx context.Context) (T, error) { return p.Run(ctx) }
}
