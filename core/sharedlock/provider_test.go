package sharedlock

import (
	"context"
	"testing"

	"coordex/core/namespace"
	"coordex/core/timespan"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Options{Adapter: newMemAdapter(), Namespace: namespace.New("docs")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestProvider_WriterExcludesReaders(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	ok, err := p.AcquireWriter(ctx, "doc:1", "w1", &ttl)
	if err != nil || !ok {
		t.Fatalf("AcquireWriter: ok=%v err=%v", ok, err)
	}

	ok, err = p.AcquireReader(ctx, "doc:1", "r1", &ttl)
	if err != nil {
		t.Fatalf("AcquireReader errored: %v", err)
	}
	if ok {
		t.Fatal("reader acquire should fail while a writer holds the lock")
	}
}

func TestProvider_ReadersCoexist(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	for _, owner := range []string{"r1", "r2", "r3"} {
		ok, err := p.AcquireReader(ctx, "doc:1", owner, &ttl)
		if err != nil || !ok {
			t.Fatalf("AcquireReader(%s): ok=%v err=%v", owner, ok, err)
		}
	}

	ok, err := p.AcquireWriter(ctx, "doc:1", "w1", &ttl)
	if err != nil {
		t.Fatalf("AcquireWriter errored: %v", err)
	}
	if ok {
		t.Fatal("writer acquire should fail while readers hold the lock")
	}

	st, err := p.GetState(ctx, "doc:1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(st.Readers) != 3 {
		t.Fatalf("len(Readers) = %d, want 3", len(st.Readers))
	}
}

func TestProvider_WriterReleaseAllowsReaders(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	if _, err := p.AcquireWriter(ctx, "doc:1", "w1", &ttl); err != nil {
		t.Fatalf("AcquireWriter: %v", err)
	}
	ok, err := p.ReleaseWriter(ctx, "doc:1", "w1")
	if err != nil || !ok {
		t.Fatalf("ReleaseWriter: ok=%v err=%v", ok, err)
	}

	ok, err = p.AcquireReader(ctx, "doc:1", "r1", &ttl)
	if err != nil || !ok {
		t.Fatalf("AcquireReader after release: ok=%v err=%v", ok, err)
	}
}

func TestProvider_ReleaseRejectsNonHolder(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	if _, err := p.AcquireWriter(ctx, "doc:1", "w1", &ttl); err != nil {
		t.Fatalf("AcquireWriter: %v", err)
	}
	ok, err := p.ReleaseWriter(ctx, "doc:1", "someone-else")
	if err != nil {
		t.Fatalf("ReleaseWriter errored: %v", err)
	}
	if ok {
		t.Fatal("release by a non-holder should not succeed")
	}
}

func TestProvider_ForceReleaseClearsBothRoles(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	if _, err := p.AcquireReader(ctx, "doc:1", "r1", &ttl); err != nil {
		t.Fatalf("AcquireReader: %v", err)
	}
	if err := p.ForceRelease(ctx, "doc:1"); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	st, err := p.GetState(ctx, "doc:1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.Writer != nil || len(st.Readers) != 0 {
		t.Fatalf("state = %+v, want empty", st)
	}
}
