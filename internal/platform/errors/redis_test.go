package errors

import (
	stderrs "errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestIsRedisNil(t *testing.T) {
	if !IsRedisNil(redis.Nil) {
		t.Fatalf("redis.Nil not recognized")
	}
	if !IsRedisNil(Wrap(redis.Nil, ErrorCodeDB, "wrapped")) {
		t.Fatalf("wrapped redis.Nil not recognized")
	}
	if IsRedisNil(stderrs.New("other")) {
		t.Fatalf("false positive")
	}
}

func TestIsRedisTransientReplyPrefixes(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{stderrs.New("LOADING Redis is loading the dataset in memory"), true},
		{stderrs.New("READONLY You can't write against a read only replica."), true},
		{stderrs.New("CLUSTERDOWN The cluster is down"), true},
		{stderrs.New("TRYAGAIN Multiple keys request during rehashing of slot"), true},
		{stderrs.New("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		{stderrs.New("ERR unknown command"), false},
	}
	for _, c := range cases {
		if got := IsRedisTransient(c.err); got != c.want {
			t.Fatalf("IsRedisTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRedisErrorCodeMappings(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{redis.Nil, ErrorCodeNotFound},
		{stderrs.New("WRONGTYPE Operation against a key holding the wrong kind of value"), ErrorCodeInvalidArgument},
		{stderrs.New("LOADING Redis is loading"), ErrorCodeUnavailable},
		{stderrs.New("ERR something else"), ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := RedisErrorCode(c.err)
		if !ok || got != c.want {
			t.Fatalf("RedisErrorCode(%v) = (%v, %v), want %v", c.err, got, ok, c.want)
		}
	}
}

func TestFromRedisNilPassthrough(t *testing.T) {
	if FromRedis(nil, "msg") != nil {
		t.Fatalf("FromRedis(nil) != nil")
	}
	err := FromRedis(redis.Nil, "key lookup")
	if CodeOf(err) != ErrorCodeNotFound {
		t.Fatalf("code = %v", CodeOf(err))
	}
	if !stderrs.Is(err, redis.Nil) {
		t.Fatalf("cause lost")
	}
}
