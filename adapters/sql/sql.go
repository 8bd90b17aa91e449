// Package sql provides Postgres-backed adapters for every coordination
// primitive, built on the platform store's RowQuerier/TxRunner seam. Each
// compound check-then-write runs inside a transaction, serialized per key
// with an advisory xact lock where a row lock alone can't cover the
// not-yet-inserted case.
package sql

import (
	"context"

	"coordex/internal/modkit/repokit"
)

// Schema is the DDL for every adapter in this package. Idempotent; apply
// it with EnsureSchema or through your own migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS coordex_locks (
	key        TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expiration TIMESTAMPTZ NULL
);

CREATE TABLE IF NOT EXISTS coordex_shared_locks (
	key        TEXT NOT NULL,
	role       TEXT NOT NULL CHECK (role IN ('writer', 'reader')),
	owner      TEXT NOT NULL,
	expiration TIMESTAMPTZ NULL,
	PRIMARY KEY (key, role, owner)
);
CREATE UNIQUE INDEX IF NOT EXISTS coordex_shared_locks_one_writer
	ON coordex_shared_locks (key) WHERE role = 'writer';

CREATE TABLE IF NOT EXISTS coordex_semaphores (
	key        TEXT NOT NULL,
	slot_id    TEXT NOT NULL,
	slot_limit INT  NOT NULL CHECK (slot_limit >= 1),
	expiration TIMESTAMPTZ NULL,
	PRIMARY KEY (key, slot_id)
);

CREATE TABLE IF NOT EXISTS coordex_cache (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expiration TIMESTAMPTZ NULL
);

CREATE TABLE IF NOT EXISTS coordex_circuit_breakers (
	key   TEXT PRIMARY KEY,
	state BYTEA NOT NULL
);
`

// EnsureSchema applies Schema
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	_, err := db.Exec(ctx, Schema)
	return err
}

// lockKey serializes a transaction per coordination key, covering the
// window before any row for the key exists
func lockKey(ctx context.Context, q repokit.Queryer, key string) error {
	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}
