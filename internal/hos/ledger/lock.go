package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

// Locker serializes writers per driver. Lock blocks until the driver is free
// or ctx is done; the returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, driverID id.DriverID) (unlock func(), err error)
}

// numDriverShards is the number of independent driver locks.
const numDriverShards = 128

// ShardedLocker is the single-process Locker. Drivers hashing to the same
// shard share a lock.
type ShardedLocker struct {
	shards [numDriverShards]chan struct{}
}

func NewShardedLocker() *ShardedLocker {
	l := &ShardedLocker{}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

func (l *ShardedLocker) Lock(ctx context.Context, driverID id.DriverID) (func(), error) {
	shard := l.shards[hashDriver(driverID)%numDriverShards]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, busy(driverID, ctx.Err())
	}
}

// hashDriver is FNV-1a.
func hashDriver(driverID id.DriverID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	s := string(driverID)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

const driverLockKeyPrefix = "hos:driver-lock:"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is the multi-instance Locker: SET NX PX with a random token,
// retried until ctx is done. The TTL bounds how long a crashed holder can
// block a driver.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

type RedisLockerOption func(*RedisLocker)

func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{client: client, ttl: 10 * time.Second, retry: 25 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, driverID id.DriverID) (func(), error) {
	key := driverLockKeyPrefix + string(driverID)
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "driver lock unavailable").
				WithDetail("driver_id", string(driverID))
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			}, nil
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, busy(driverID, ctx.Err())
		case <-timer.C:
		}
	}
}

func busy(driverID id.DriverID, cause error) error {
	return dErrors.Wrap(cause, dErrors.CodeConflict, "driver ledger is busy with another write").
		WithDetail("driver_id", string(driverID)).
		WithDetail("reason", "lock_timeout")
}
