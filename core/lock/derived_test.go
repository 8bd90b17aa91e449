package lock

import (
	"context"
	"testing"
	"time"

	"coordex/core/timespan"
	"coordex/internal/platform/clock"
)

func TestDerived_AcquireThenContend(t *testing.T) {
	db := newMemDB()
	a := Derive(db)
	ctx := context.Background()
	ttl := timespan.FromSeconds(30)

	ok, err := a.Acquire(ctx, "job:1", "owner-a", &ttl)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = a.Acquire(ctx, "job:1", "owner-b", &ttl)
	if err != nil {
		t.Fatalf("contended acquire errored: %v", err)
	}
	if ok {
		t.Fatal("contended acquire should fail while owner-a holds the lock")
	}
}

func TestDerived_AcquireReclaimsExpired(t *testing.T) {
	db := newMemDB()
	past := time.Now().Add(-time.Minute)
	db.rows["job:1"] = Record{Owner: "owner-a", Expiration: &past}

	a := Derive(db)
	ttl := timespan.FromSeconds(30)
	ok, err := a.Acquire(context.Background(), "job:1", "owner-b", &ttl)
	if err != nil {
		t.Fatalf("reclaim acquire errored: %v", err)
	}
	if !ok {
		t.Fatal("expected reclaim of an expired lock to succeed")
	}

	rec, err := a.Find(context.Background(), "job:1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec == nil || rec.Owner != "owner-b" {
		t.Fatalf("expected owner-b to now hold the lock, got %+v", rec)
	}
}

func TestDerived_ReleaseRejectsWrongOwner(t *testing.T) {
	db := newMemDB()
	a := Derive(db)
	ttl := timespan.FromSeconds(30)
	ctx := context.Background()

	if _, err := a.Acquire(ctx, "job:1", "owner-a", &ttl); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ok, err := a.Release(ctx, "job:1", "owner-b")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok {
		t.Fatal("release by a non-owner should not succeed")
	}

	ok, err = a.Release(ctx, "job:1", "owner-a")
	if err != nil || !ok {
		t.Fatalf("owner release: ok=%v err=%v", ok, err)
	}
}

func TestDerived_ForceReleaseIgnoresOwner(t *testing.T) {
	db := newMemDB()
	a := Derive(db)
	ttl := timespan.FromSeconds(30)
	ctx := context.Background()

	if _, err := a.Acquire(ctx, "job:1", "owner-a", &ttl); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := a.ForceRelease(ctx, "job:1"); err != nil {
		t.Fatalf("forceRelease: %v", err)
	}
	rec, err := a.Find(ctx, "job:1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected lock removed, got %+v", rec)
	}
}

func TestDerived_RefreshExtendsOwnedLock(t *testing.T) {
	fixed := clock.Fixed(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	db := newMemDB()
	a := DeriveWithClock(db, fixed)
	ttl := timespan.FromSeconds(30)
	ctx := context.Background()

	if _, err := a.Acquire(ctx, "job:1", "owner-a", &ttl); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	longer := timespan.FromSeconds(300)
	result, err := a.Refresh(ctx, "job:1", "owner-a", &longer)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result != Refreshed {
		t.Fatalf("result = %v, want Refreshed", result)
	}

	rec, err := a.Find(ctx, "job:1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := fixed.Now().Add(longer.ToDuration())
	if rec == nil || !rec.Expiration.Equal(want) {
		t.Fatalf("expiration = %v, want %v", rec.Expiration, want)
	}
}

func TestDerived_RefreshRejectsWrongOwner(t *testing.T) {
	db := newMemDB()
	a := Derive(db)
	ttl := timespan.FromSeconds(30)
	ctx := context.Background()

	if _, err := a.Acquire(ctx, "job:1", "owner-a", &ttl); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	result, err := a.Refresh(ctx, "job:1", "owner-b", &ttl)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result != UnownedRefresh {
		t.Fatalf("result = %v, want UnownedRefresh", result)
	}
}

func TestDerived_RefreshUnexpirableKey(t *testing.T) {
	db := newMemDB()
	a := Derive(db)
	ctx := context.Background()

	if _, err := a.Acquire(ctx, "job:1", "owner-a", nil); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ttl := timespan.FromSeconds(30)
	result, err := a.Refresh(ctx, "job:1", "owner-a", &ttl)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result != UnexpirableKey {
		t.Fatalf("result = %v, want UnexpirableKey", result)
	}
}

func TestDerived_FindAbsentKey(t *testing.T) {
	a := Derive(newMemDB())
	rec, err := a.Find(context.Background(), "missing")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}
