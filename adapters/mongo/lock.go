package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"coordex/core/lock"
	"coordex/internal/platform/clock"
	platformerrors "coordex/internal/platform/errors"
)

type lockDoc struct {
	Key        string     `bson:"_id"`
	Owner      string     `bson:"owner"`
	Expiration *time.Time `bson:"expiration"`
}

// Lock implements lock.DatabaseAdapter over a Mongo collection; wrap it
// with lock.Derive (or hand it to lock.Options.Database) to get the full
// contract
type Lock struct {
	coll  *mongodrv.Collection
	clock clock.Clock
}

// NewLock binds a lock adapter to db's lock collection
func NewLock(db *mongodrv.Database) *Lock {
	return &Lock{coll: db.Collection(LockCollection), clock: clock.Real()}
}

// Insert creates the document, reporting lock.ErrRowExists on a present
// key so the derived adapter falls back to UpdateIfExpired
func (l *Lock) Insert(ctx context.Context, key, owner string, expiration *time.Time) error {
	_, err := l.coll.InsertOne(ctx, lockDoc{Key: key, Owner: owner, Expiration: expiration})
	if err != nil {
		if platformerrors.IsMongoDuplicateKey(err) {
			return lock.ErrRowExists
		}
		return err
	}
	return nil
}

// UpdateIfExpired replaces the document's owner/expiration iff the stored
// one has expired
func (l *Lock) UpdateIfExpired(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	filter := bson.M{"_id": key}
	for k, v := range expiredFilter(l.clock.Now()) {
		filter[k] = v
	}
	res, err := l.coll.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"owner": owner, "expiration": expiration}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// RemoveIfOwner deletes the document iff owner matches and it is unexpired
func (l *Lock) RemoveIfOwner(ctx context.Context, key, owner string) (bool, error) {
	filter := bson.M{"_id": key, "owner": owner}
	for k, v := range liveFilter(l.clock.Now()) {
		filter[k] = v
	}
	res, err := l.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// Remove deletes the document unconditionally
func (l *Lock) Remove(ctx context.Context, key string) error {
	_, err := l.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// UpdateExpirationIfOwner updates only the expiration iff owner matches
// and the document is unexpired
func (l *Lock) UpdateExpirationIfOwner(ctx context.Context, key, owner string, expiration *time.Time) (bool, error) {
	filter := bson.M{"_id": key, "owner": owner}
	for k, v := range liveFilter(l.clock.Now()) {
		filter[k] = v
	}
	res, err := l.coll.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"expiration": expiration}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Find returns the live record for key, or nil if absent/expired
func (l *Lock) Find(ctx context.Context, key string) (*lock.Record, error) {
	filter := bson.M{"_id": key}
	for k, v := range liveFilter(l.clock.Now()) {
		filter[k] = v
	}
	var doc lockDoc
	if err := l.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if platformerrors.IsMongoNoDocuments(err) {
			return nil, nil
		}
		return nil, err
	}
	return &lock.Record{Owner: doc.Owner, Expiration: doc.Expiration}, nil
}

var _ lock.DatabaseAdapter = (*Lock)(nil)
