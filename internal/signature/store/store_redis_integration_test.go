//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "qualify/pkg/domain"
	"qualify/pkg/testutil/containers"
)

type RedisLockoutsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisLockouts
}

func TestRedisLockoutsSuite(t *testing.T) {
	suite.Run(t, new(RedisLockoutsSuite))
}

func (s *RedisLockoutsSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisLockouts(s.redis.Client)
}

func (s *RedisLockoutsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockoutsSuite) TestCountsAndLocks() {
	ctx := context.Background()
	userID := id.NewUserID()

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Nil(rec)

	for i := 1; i <= 3; i++ {
		rec, err = s.store.RecordFailure(ctx, userID, time.Now(), time.Minute)
		s.Require().NoError(err)
		s.Equal(i, rec.FailureCount)
	}

	until := time.Now().Add(time.Minute).Truncate(time.Millisecond).UTC()
	s.Require().NoError(s.store.Lock(ctx, userID, until))

	rec, err = s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(3, rec.FailureCount)
	s.Require().NotNil(rec.LockedUntil)
	s.True(rec.LockedUntil.Equal(until))
	s.True(rec.IsLocked(time.Now()))

	s.Require().NoError(s.store.Clear(ctx, userID))
	rec, err = s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *RedisLockoutsSuite) TestWindowExpires() {
	ctx := context.Background()
	userID := id.NewUserID()

	_, err := s.store.RecordFailure(ctx, userID, time.Now(), time.Second)
	s.Require().NoError(err)
	s.Eventually(func() bool {
		rec, err := s.store.Get(ctx, userID)
		return err == nil && rec == nil
	}, 5*time.Second, 100*time.Millisecond)
}
