package errors

// Redis-specific helpers for mapping go-redis errors to project ErrorCode and retry semantics

import (
	"context"
	stderrs "errors"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Server reply prefixes worth distinguishing
const (
	redisErrLoading     = "LOADING"     // startup, dataset not yet loaded
	redisErrReadOnly    = "READONLY"    // write against a replica
	redisErrClusterDown = "CLUSTERDOWN" // cluster not serving
	redisErrTryAgain    = "TRYAGAIN"    // multi-key op during resharding
	redisErrWrongType   = "WRONGTYPE"   // op against a key of another type
)

// IsRedisNil reports whether the error is the redis.Nil "no such key" reply
func IsRedisNil(err error) bool { return stderrs.Is(Root(err), redis.Nil) }

func redisReplyHasPrefix(err error, prefix string) bool {
	root := Root(err)
	return root != nil && strings.HasPrefix(root.Error(), prefix)
}

// IsRedisWrongType reports whether the error is a WRONGTYPE reply
func IsRedisWrongType(err error) bool { return redisReplyHasPrefix(err, redisErrWrongType) }

// IsRedisTransient reports whether the error is a server condition a retry
// may outlive (loading, failover, resharding) or a network-level failure
func IsRedisTransient(err error) bool {
	root := Root(err)
	if root == nil {
		return false
	}
	if stderrs.Is(root, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if stderrs.As(root, &netErr) {
		return true
	}
	for _, prefix := range []string{redisErrLoading, redisErrReadOnly, redisErrClusterDown, redisErrTryAgain} {
		if strings.HasPrefix(root.Error(), prefix) {
			return true
		}
	}
	return false
}

// RedisErrorCode maps a go-redis error to an ErrorCode with an ok flag.
// !ok means err carried no redis-specific signal; caller may fall back to
// generic handling
func RedisErrorCode(err error) (ErrorCode, bool) {
	switch {
	case err == nil:
		return ErrorCodeUnknown, false
	case IsRedisNil(err):
		return ErrorCodeNotFound, true
	case IsRedisWrongType(err):
		return ErrorCodeInvalidArgument, true
	case IsRedisTransient(err):
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromRedis wraps a redis error with a mapped ErrorCode and message.
// If err is nil, returns nil
func FromRedis(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, _ := RedisErrorCode(err)
	return Wrap(err, code, msg)
}
