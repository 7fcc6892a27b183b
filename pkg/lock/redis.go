package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/pkg/utils"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock stays held by someone else past the retry budget.
var ErrNotAcquired = errors.New("lock not acquired")

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker serializes work on a key across service instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// InitRedis connects to Redis and verifies the connection.
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return client, nil
}

type redisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisLocker{
		rs:  redsync.New(goredis.NewPool(client)),
		ttl: ttl,
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	mutex := l.rs.NewMutex("lock:"+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(20),
		redsync.WithRetryDelay(100*time.Millisecond),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
	}

	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
