package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoginLimiterWithoutRedisAllows(t *testing.T) {
	limiter := NewLoginLimiter(nil, zap.NewNop())
	result := limiter.Allow(context.Background(), "10.0.0.1", "ana@example.com")
	assert.True(t, result.Allowed)
	assert.Equal(t, loginBurst, result.Limit)
}

func TestLockerWithoutRedisRunsDirectly(t *testing.T) {
	locker := NewLocker(nil)
	assert.False(t, locker.Enabled())

	ran := false
	err := locker.WithLock(context.Background(), "sweep", time.Minute, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	_, _, err = locker.TryLock(context.Background(), "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "sweep", "token"))
}

func TestTokenBucketWithoutRedis(t *testing.T) {
	_, err := NewTokenBucket(nil).Allow(context.Background(), "k", 1, 1)
	assert.True(t, errors.Is(err, ErrBucketNotConfigured))
}

func TestNewResultRetryAfter(t *testing.T) {
	denied := newResult(false, 0.5, 0.5, loginBurst)
	assert.False(t, denied.Allowed)
	assert.Equal(t, time.Second, denied.RetryAfter)

	allowed := newResult(true, 3.7, loginRate, loginBurst)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(0.5, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestScriptValueParsing(t *testing.T) {
	assert.EqualValues(t, 1, toInt(int64(1)))
	assert.EqualValues(t, 0, toInt(nil))
	assert.InDelta(t, 2.25, toFloat("2.25"), 1e-9)
	assert.InDelta(t, 4, toFloat(int64(4)), 1e-9)
}
