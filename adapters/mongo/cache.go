package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coordex/core/cache"
	"coordex/core/serde"
	"coordex/internal/platform/clock"
	platformerrors "coordex/internal/platform/errors"
)

// cacheDoc stores a value in exactly one of two fields: Num for the
// finite-number fast path ($inc works natively), Blob for everything else
// via the serializer
type cacheDoc struct {
	Key        string     `bson:"_id"`
	Num        *float64   `bson:"num,omitempty"`
	Blob       []byte     `bson:"blob,omitempty"`
	Expiration *time.Time `bson:"expiration"`
}

// Cache implements cache.DatabaseAdapter over a Mongo collection; wrap it
// with cache.Derive (or hand it to cache.Options.Database) to get the full
// contract
type Cache struct {
	coll       *mongodrv.Collection
	serializer serde.Serializer
	clock      clock.Clock
}

// NewCache binds a cache adapter to db's cache collection. serializer may
// be nil, defaulting to a fresh Flexible serializer.
func NewCache(db *mongodrv.Database, serializer serde.Serializer) *Cache {
	if serializer == nil {
		serializer = serde.NewFlexible()
	}
	return &Cache{coll: db.Collection(CacheCollection), serializer: serializer, clock: clock.Real()}
}

func (c *Cache) docOf(key string, value any, expiration *time.Time) (cacheDoc, error) {
	doc := cacheDoc{Key: key, Expiration: expiration}
	if num, ok := finiteNumber(value); ok {
		doc.Num = &num
		return doc, nil
	}
	blob, err := c.serializer.Serialize(value)
	if err != nil {
		return doc, err
	}
	doc.Blob = []byte(blob)
	return doc, nil
}

func (c *Cache) valueOf(doc cacheDoc) (any, error) {
	if doc.Num != nil {
		return *doc.Num, nil
	}
	var value any
	if err := c.serializer.Deserialize(serde.Encoded(doc.Blob), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// valueFields is what a value rewrite must $set; the unused field is
// cleared so a number overwriting a blob (or vice versa) leaves no stale
// sibling behind
func valueFields(doc cacheDoc) bson.M {
	return bson.M{"num": doc.Num, "blob": doc.Blob}
}

// Find returns the raw document for key regardless of expiration
func (c *Cache) Find(ctx context.Context, key string) (*cache.Entry, error) {
	var doc cacheDoc
	if err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if platformerrors.IsMongoNoDocuments(err) {
			return nil, nil
		}
		return nil, err
	}
	value, err := c.valueOf(doc)
	if err != nil {
		return nil, err
	}
	return &cache.Entry{Value: value, Expiration: doc.Expiration}, nil
}

// Insert creates the document, overwriting any existing one
func (c *Cache) Insert(ctx context.Context, key string, value any, expiration *time.Time) error {
	return c.Upsert(ctx, key, value, expiration)
}

// Upsert creates or replaces the document unconditionally
func (c *Cache) Upsert(ctx context.Context, key string, value any, expiration *time.Time) error {
	doc, err := c.docOf(key, value, expiration)
	if err != nil {
		return err
	}
	_, err = c.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// UpdateExpired replaces the document iff the stored one is expired
func (c *Cache) UpdateExpired(ctx context.Context, key string, value any, expiration *time.Time) (bool, error) {
	doc, err := c.docOf(key, value, expiration)
	if err != nil {
		return false, err
	}
	filter := bson.M{"_id": key}
	for k, v := range expiredFilter(c.clock.Now()) {
		filter[k] = v
	}
	set := valueFields(doc)
	set["expiration"] = expiration
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// UpdateUnexpired replaces the value (preserving expiration) iff the
// stored document is live
func (c *Cache) UpdateUnexpired(ctx context.Context, key string, value any) (bool, error) {
	doc, err := c.docOf(key, value, nil)
	if err != nil {
		return false, err
	}
	filter := bson.M{"_id": key}
	for k, v := range liveFilter(c.clock.Now()) {
		filter[k] = v
	}
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": valueFields(doc)})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// IncrementUnexpired adds delta to a live fast-path number with a native
// $inc; blob-encoded values never match the num type filter, so they
// report false and the caller's type check decides
func (c *Cache) IncrementUnexpired(ctx context.Context, key string, delta float64) (bool, error) {
	filter := bson.M{"_id": key, "num": bson.M{"$type": "number"}}
	for k, v := range liveFilter(c.clock.Now()) {
		filter[k] = v
	}
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"num": delta}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func prefixFilter(keyPrefix string) bson.M {
	return bson.M{"_id": bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(keyPrefix)}}}
}

// RemoveExpiredMany deletes every expired document under keyPrefix
func (c *Cache) RemoveExpiredMany(ctx context.Context, keyPrefix string) error {
	filter := prefixFilter(keyPrefix)
	for k, v := range expiredFilter(c.clock.Now()) {
		filter[k] = v
	}
	_, err := c.coll.DeleteMany(ctx, filter)
	return err
}

// RemoveUnexpiredMany deletes every live document under keyPrefix
func (c *Cache) RemoveUnexpiredMany(ctx context.Context, keyPrefix string) error {
	filter := prefixFilter(keyPrefix)
	for k, v := range liveFilter(c.clock.Now()) {
		filter[k] = v
	}
	_, err := c.coll.DeleteMany(ctx, filter)
	return err
}

// RemoveAll deletes every document under keyPrefix regardless of
// expiration
func (c *Cache) RemoveAll(ctx context.Context, keyPrefix string) error {
	_, err := c.coll.DeleteMany(ctx, prefixFilter(keyPrefix))
	return err
}

// Remove deletes the single document at key, returning whether one existed
func (c *Cache) Remove(ctx context.Context, key string) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

var _ cache.DatabaseAdapter = (*Cache)(nil)
