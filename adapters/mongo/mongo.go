// Package mongo provides MongoDB-backed adapters for the lock and cache
// primitives over the official driver. Documents are keyed by _id, so key
// uniqueness comes from the collection itself; conditional writes are
// single filtered UpdateOne/DeleteOne calls, which Mongo applies
// atomically per document.
package mongo

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names used by this package
const (
	LockCollection  = "coordex_locks"
	CacheCollection = "coordex_cache"
)

// liveFilter matches documents whose expiration is null or in the future.
// $lte/$gt are type-bracketed in Mongo, so the date comparison never
// matches a null expiration on its own.
func liveFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expiration": nil},
		bson.M{"expiration": bson.M{"$gt": now}},
	}}
}

// expiredFilter matches documents whose expiration is set and passed
func expiredFilter(now time.Time) bson.M {
	return bson.M{"expiration": bson.M{"$ne": nil, "$lte": now}}
}

// finiteNumber reports a finite numeric value as its float64 fast-path
// encoding, per the numeric-shim behavior: finite numbers persist as
// native doubles, everything else goes through the serializer
func finiteNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
