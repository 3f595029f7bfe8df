package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	stderrors "advisor-engine/internal/common/errors"
)

// RunLocker serializes integration runs per user. Because the goal graph is
// read from shared storage, two concurrent runs for the same user could act
// on a stale graph; runs for different users stay independent.
type RunLocker interface {
	// Acquire takes the per-user lock and returns a release func. A held
	// lock yields a RUN_IN_PROGRESS error.
	Acquire(ctx context.Context, userID string) (func(), error)
}

// RedisRunLocker implements RunLocker with a SETNX key and TTL, so a crashed
// worker cannot wedge a user forever.
type RedisRunLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// releaseScript deletes the lock only when it still holds this run's token.
// A run that outlived its TTL must not release the lock a newer run holds.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func NewRedisRunLocker(client *redis.Client, ttl time.Duration) *RedisRunLocker {
	return &RedisRunLocker{client: client, ttl: ttl}
}

func (l *RedisRunLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	key := "engine:run:" + userID
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stderrors.NewRunInProgressError(userID)
	}
	return func() {
		// Release on a fresh context: the run's context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.client, []string{key}, token)
	}, nil
}

// NoopLocker skips serialization. Used in tests and single-process setups.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	return func() {}, nil
}
