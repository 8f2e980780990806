package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"qualify/internal/signature"
	id "qualify/pkg/domain"
)

const (
	failureKeyPrefix = "qualify:signature:failures:"
	lockKeyPrefix    = "qualify:signature:locked:"
)

// RedisLockouts shares signer lockouts across instances. The failure counter
// expires with its window; the lock key expires when the lockout ends.
type RedisLockouts struct {
	client redis.UniversalClient
}

func NewRedisLockouts(client redis.UniversalClient) *RedisLockouts {
	return &RedisLockouts{client: client}
}

func (s *RedisLockouts) Get(ctx context.Context, userID id.UserID) (*signature.Lockout, error) {
	pipe := s.client.Pipeline()
	count := pipe.Get(ctx, failureKeyPrefix+userID.String())
	locked := pipe.Get(ctx, lockKeyPrefix+userID.String())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get signature lockout: %w", err)
	}

	rec := &signature.Lockout{UserID: userID}
	found := false
	if n, err := count.Int(); err == nil {
		rec.FailureCount = n
		found = true
	}
	if ms, err := locked.Int64(); err == nil {
		until := time.UnixMilli(ms).UTC()
		rec.LockedUntil = &until
		found = true
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

// RecordFailure increments the counter and starts its expiry on the first
// failure of a window.
func (s *RedisLockouts) RecordFailure(ctx context.Context, userID id.UserID, now time.Time, window time.Duration) (*signature.Lockout, error) {
	key := failureKeyPrefix + userID.String()
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record signature failure: %w", err)
	}
	return &signature.Lockout{UserID: userID, FailureCount: int(incr.Val()), WindowStart: now}, nil
}

func (s *RedisLockouts) Lock(ctx context.Context, userID id.UserID, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	value := strconv.FormatInt(until.UnixMilli(), 10)
	if err := s.client.Set(ctx, lockKeyPrefix+userID.String(), value, ttl).Err(); err != nil {
		return fmt.Errorf("lock signer: %w", err)
	}
	return nil
}

func (s *RedisLockouts) Clear(ctx context.Context, userID id.UserID) error {
	if err := s.client.Del(ctx, failureKeyPrefix+userID.String(), lockKeyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("clear signature lockout: %w", err)
	}
	return nil
}
