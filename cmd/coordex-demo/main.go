// coordex-demo wires a backend from env config and walks a lock, a cache,
// and a circuit breaker through their basic flows - executable
// documentation for composing the toolkit.
//
// DEMO_BACKEND selects the adapter set: "memory" (default), "postgres"
// (DEMO_PGSQL_DBURL), or "redis" (DEMO_REDIS_ADDR).
package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	memoryadapter "coordex/adapters/memory"
	redisadapter "coordex/adapters/redis"
	sqladapter "coordex/adapters/sql"
	"coordex/core/cache"
	"coordex/core/circuitbreaker"
	"coordex/core/lock"
	"coordex/core/namespace"
	"coordex/core/observability"
	"coordex/core/registry"
	"coordex/core/timespan"
	"coordex/internal/platform/config"
	"coordex/internal/platform/logger"
	"coordex/internal/platform/store"
)

// backendSet is one backend's adapter bundle
type backendSet struct {
	lock    lock.Adapter
	cache   cache.Adapter
	breaker circuitbreaker.Adapter
	close   func(context.Context) error
}

func openMemory() (backendSet, error) {
	c := memoryadapter.NewCache(memoryadapter.CacheOptions{
		ExpiredKeysRemovalInterval: timespan.FromSeconds(30),
	})
	c.Init()
	return backendSet{
		lock:    memoryadapter.NewLock(),
		cache:   c,
		breaker: memoryadapter.NewCircuitBreaker(),
		close:   func(context.Context) error { c.DeInit(); return nil },
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Conf) (backendSet, error) {
	dsn := cfg.MustString("DBURL")
	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         dsn,
			MaxConns:    int32(cfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: cfg.MayInt("SLOW_MS", 500),
			LogSQL:      cfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*logger.Get()))
	if err != nil {
		return backendSet{}, err
	}
	if err := sqladapter.EnsureSchema(ctx, st.PG); err != nil {
		_ = st.Close(ctx)
		return backendSet{}, err
	}
	return backendSet{
		lock:    lock.Derive(sqladapter.NewLock(st.PG)),
		cache:   cache.Derive(sqladapter.NewCache(st.PG, nil)),
		breaker: sqladapter.NewCircuitBreaker(st.PG),
		close:   st.Close,
	}, nil
}

func openRedis(cfg config.Conf) (backendSet, error) {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.MayString("ADDR", "localhost:6379")})
	return backendSet{
		lock:    redisadapter.NewLock(client),
		cache:   redisadapter.NewCache(client, nil),
		breaker: redisadapter.NewCircuitBreaker(client),
		close:   func(context.Context) error { return client.Close() },
	}, nil
}

func main() {
	root := config.New()
	demoCfg := root.Prefix("DEMO_")

	l := logger.Get()
	ctx := context.Background()

	backends := registry.New[backendSet]().
		Register("memory", func() (backendSet, error) { return openMemory() }).
		Register("postgres", func() (backendSet, error) { return openPostgres(ctx, root.Prefix("DEMO_PGSQL_")) }).
		Register("redis", func() (backendSet, error) { return openRedis(root.Prefix("DEMO_REDIS_")) }).
		SetDefault("memory")

	name := demoCfg.MayEnum("BACKEND", "memory", "memory", "postgres", "redis")
	backend, err := backends.Resolve(name)
	if err != nil {
		l.Panic().Err(err).Str("backend", name).Msg("backend open failed")
	}
	defer func() {
		if err := backend.close(ctx); err != nil {
			l.Error().Err(err).Msg("backend close failed")
		}
	}()
	l.Info().Str("backend", name).Msg("coordex demo starting")

	counters := observability.NewCounters()
	ns := namespace.New("coordex-demo")

	runLockDemo(ctx, l, ns, backend, counters)
	runCacheDemo(ctx, l, ns, backend)
	runBreakerDemo(ctx, l, ns, backend, counters)

	for op, n := range counters.Snapshot() {
		l.Info().Str("event", op).Int64("count", n).Msg("observed")
	}
}

func runLockDemo(ctx context.Context, l *logger.Logger, ns namespace.Namespace, backend backendSet, counters *observability.Counters) {
	locks, err := lock.New(lock.Options{
		Adapter:   backend.lock,
		Namespace: ns,
		Tracer:    counters,
	})
	if err != nil {
		l.Panic().Err(err).Msg("lock provider")
	}

	owner := lock.NewOwner()
	ttl := timespan.FromSeconds(30)

	ok, err := locks.Acquire(ctx, "jobs/nightly", owner, &ttl)
	if err != nil {
		l.Panic().Err(err).Msg("lock acquire")
	}
	l.Info().Bool("acquired", ok).Msg("lock acquired")

	// a second owner loses the race
	if ok, _ := locks.Acquire(ctx, "jobs/nightly", lock.NewOwner(), &ttl); ok {
		l.Panic().Msg("mutual exclusion violated")
	}

	if ok, err := locks.Release(ctx, "jobs/nightly", owner); err != nil || !ok {
		l.Panic().Err(err).Msg("lock release")
	}
	l.Info().Msg("lock released")
}

func runCacheDemo(ctx context.Context, l *logger.Logger, ns namespace.Namespace, backend backendSet) {
	caches, err := cache.New(cache.Options{Adapter: backend.cache, Namespace: ns, Group: []string{"demo"}})
	if err != nil {
		l.Panic().Err(err).Msg("cache provider")
	}

	ttl := timespan.FromMinutes(5)
	if _, err := caches.Put(ctx, "visits", float64(0), &ttl); err != nil {
		l.Panic().Err(err).Msg("cache put")
	}
	for range 3 {
		if _, err := caches.Increment(ctx, "visits", 1); err != nil {
			l.Panic().Err(err).Msg("cache increment")
		}
	}
	v, err := caches.Get(ctx, "visits")
	if err != nil {
		l.Panic().Err(err).Msg("cache get")
	}
	l.Info().Interface("visits", v).Msg("cache round trip")
}

func runBreakerDemo(ctx context.Context, l *logger.Logger, ns namespace.Namespace, backend backendSet, counters *observability.Counters) {
	policy, err := circuitbreaker.NewConsecutivePolicy(circuitbreaker.ConsecutiveOptions{FailureThreshold: 3})
	if err != nil {
		l.Panic().Err(err).Msg("breaker policy")
	}
	breakers, err := circuitbreaker.New(circuitbreaker.Options{
		Adapter:   backend.breaker,
		Policy:    policy,
		Namespace: ns,
		Tracer:    counters,
	})
	if err != nil {
		l.Panic().Err(err).Msg("breaker provider")
	}

	flaky := errors.New("upstream unavailable")
	for i := range 4 {
		err := breakers.Execute(ctx, "upstream", func(context.Context) error { return flaky })
		var open *circuitbreaker.OpenError
		switch {
		case errors.As(err, &open):
			l.Info().Int("call", i+1).Msg("breaker short-circuited")
		case errors.Is(err, flaky):
			l.Info().Int("call", i+1).Msg("call failed, tracked")
		case err != nil:
			l.Panic().Err(err).Msg("breaker execute")
		}
	}

	state, err := breakers.GetState(ctx, "upstream")
	if err != nil {
		l.Panic().Err(err).Msg("breaker state")
	}
	fmt.Println("breaker phase:", state.Phase)

	if err := breakers.Reset(ctx, "upstream"); err != nil {
		l.Panic().Err(err).Msg("breaker reset")
	}
}
