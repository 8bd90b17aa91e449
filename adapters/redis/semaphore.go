package redis

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"coordex/core/semaphore"
	"coordex/internal/platform/clock"
)

// unexpirableScore marks a slot with no expiration inside the sorted set
const unexpirableScore = math.MaxFloat64

// Semaphore is the Redis semaphore.Adapter: slots live in a sorted set
// scored by expiration epoch-millis, the limit in a sibling string key.
// WATCH over both keys makes the find+count+insert check transactional.
type Semaphore struct {
	client Cmdable
	clock  clock.Clock
}

// NewSemaphore binds a semaphore adapter to client
func NewSemaphore(client Cmdable) *Semaphore {
	return &Semaphore{client: client, clock: clock.Real()}
}

func limitKeyOf(key string) string { return key + ":limit" }

func scoreOf(expiration *time.Time) float64 {
	if expiration == nil {
		return unexpirableScore
	}
	return float64(expiration.UnixMilli())
}

func expirationOfScore(score float64) *time.Time {
	if score == unexpirableScore {
		return nil
	}
	e := time.UnixMilli(int64(score))
	return &e
}

// Acquire creates the key with limit on first use, or adds slotID iff the
// stored limit matches and fewer than limit slots are live
func (s *Semaphore) Acquire(ctx context.Context, key, slotID string, limit int, expiration *time.Time) (bool, error) {
	limitKey := limitKeyOf(key)
	acquired := false
	var mismatch error

	err := withWatch(ctx, s.client, func(tx *goredis.Tx) error {
		stored, err := tx.Get(ctx, limitKey).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil {
			storedLimit, convErr := strconv.Atoi(stored)
			if convErr != nil {
				return convErr
			}
			if storedLimit != limit {
				mismatch = &semaphore.LimitMismatchError{Key: key, Stored: storedLimit, Requested: limit}
				return nil
			}
		}

		now := s.clock.Now()
		nowScore := strconv.FormatFloat(float64(now.UnixMilli()), 'f', -1, 64)

		// a live lease for this slot is not re-acquirable
		score, err := tx.ZScore(ctx, key, slotID).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil && (score == unexpirableScore || score > float64(now.UnixMilli())) {
			return nil
		}

		liveCount, err := tx.ZCount(ctx, key, "("+nowScore, "+inf").Result()
		if err != nil {
			return err
		}
		if int(liveCount) >= limit {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, limitKey, limit, 0)
			pipe.ZAdd(ctx, key, goredis.Z{Score: scoreOf(expiration), Member: slotID})
			return nil
		})
		if err != nil {
			return err
		}
		acquired = true
		return nil
	}, key, limitKey)
	if err != nil {
		return false, err
	}
	if mismatch != nil {
		return false, mismatch
	}
	return acquired, nil
}

// Release removes slotID; the limit key disappears with the last slot
func (s *Semaphore) Release(ctx context.Context, key, slotID string) (bool, error) {
	limitKey := limitKeyOf(key)
	released := false
	err := withWatch(ctx, s.client, func(tx *goredis.Tx) error {
		released = false
		_, err := tx.ZScore(ctx, key, slotID).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		count, err := tx.ZCard(ctx, key).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.ZRem(ctx, key, slotID)
			if count == 1 {
				pipe.Del(ctx, limitKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		released = true
		return nil
	}, key, limitKey)
	return released, err
}

// Refresh updates only slotID's expiration
func (s *Semaphore) Refresh(ctx context.Context, key, slotID string, expiration *time.Time) (semaphore.RefreshResult, error) {
	result := semaphore.UnownedRefresh
	err := withWatch(ctx, s.client, func(tx *goredis.Tx) error {
		score, err := tx.ZScore(ctx, key, slotID).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		now := s.clock.Now()
		if score != unexpirableScore && score <= float64(now.UnixMilli()) {
			return nil
		}
		if score == unexpirableScore || expiration == nil {
			result = semaphore.UnexpirableKey
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.ZAdd(ctx, key, goredis.Z{Score: scoreOf(expiration), Member: slotID})
			return nil
		})
		if err != nil {
			return err
		}
		result = semaphore.Refreshed
		return nil
	}, key)
	if err != nil {
		return 0, err
	}
	return result, nil
}

// GetState returns the live limit/slots for key
func (s *Semaphore) GetState(ctx context.Context, key string) (semaphore.State, error) {
	st := semaphore.State{AcquiredSlots: map[string]*time.Time{}}

	stored, err := s.client.Get(ctx, limitKeyOf(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return st, nil
		}
		return st, err
	}
	if st.Limit, err = strconv.Atoi(stored); err != nil {
		return st, err
	}

	now := s.clock.Now()
	nowScore := strconv.FormatFloat(float64(now.UnixMilli()), 'f', -1, 64)
	members, err := s.client.ZRangeByScoreWithScores(ctx, key, &goredis.ZRangeBy{
		Min: "(" + nowScore,
		Max: "+inf",
	}).Result()
	if err != nil {
		return st, err
	}
	for _, z := range members {
		st.AcquiredSlots[z.Member.(string)] = expirationOfScore(z.Score)
	}
	return st, nil
}

var _ semaphore.Adapter = (*Semaphore)(nil)
