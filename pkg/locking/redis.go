package locking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger ectologger.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)
	return rdb, nil
}

// RedisLocker is a Locker shared by every replica, built on SET NX with a TTL
type RedisLocker struct {
	rdb       redis.UniversalClient
	logger    ectologger.Logger
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
}

// NewRedisLocker creates a RedisLocker. Each key expires after ttl if its
// holder dies; Lock gives up after timeout.
func NewRedisLocker(rdb redis.UniversalClient, logger ectologger.Logger, keyPrefix string, ttl, timeout time.Duration) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "clover:lock:"
	}
	return &RedisLocker{
		rdb:       rdb,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		timeout:   timeout,
	}
}

type redisLock struct {
	key   string
	value string
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (Unlock, error) {
	keys = normalizeKeys(keys)
	held := make([]redisLock, 0, len(keys))

	release := func() {
		// release with a fresh context so a cancelled request still frees its keys
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := l.release(releaseCtx, held[i]); err != nil {
				l.logger.WithContext(ctx).WithError(err).Warnf("Failed to release lock %s", held[i].key)
			}
		}
	}

	for _, key := range keys {
		lock, err := l.tryAcquire(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key string) (redisLock, error) {
	lock := redisLock{key: l.keyPrefix + key, value: uuid.New().String()}

	ok, err := l.rdb.SetNX(ctx, lock.key, lock.value, l.ttl).Result()
	if err != nil {
		return redisLock{}, err
	}
	if !ok {
		return redisLock{}, ErrLockNotAcquired
	}

	l.logger.WithContext(ctx).Debugf("Acquired lock: %s", key)
	return lock, nil
}

// tryAcquire retries acquire with capped exponential backoff until timeout
func (l *RedisLocker) tryAcquire(ctx context.Context, key string) (redisLock, error) {
	deadline := time.Now().Add(l.timeout)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.acquire(ctx, key)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return redisLock{}, err
		}
		if !time.Now().Before(deadline) {
			return redisLock{}, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return redisLock{}, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, lock redisLock) error {
	result, err := releaseScript.Run(ctx, l.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	l.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}
