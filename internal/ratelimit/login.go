package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyLoginIP    = "auth:login:ip:%s"
	keyLoginEmail = "auth:login:email:%s"

	// Five attempts, then one more every twelve seconds.
	loginBurst = 5
	loginRate  = 1.0 / 12
)

// LoginLimiter throttles sign-in attempts per client address and per email.
// Without Redis every attempt is allowed.
type LoginLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
}

func NewLoginLimiter(client *redis.Client, log *zap.Logger) *LoginLimiter {
	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.login"),
	}
}

// Allow fails open when Redis errors so an outage never locks users out.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP, email string) *Result {
	if l == nil || l.bucket == nil {
		return &Result{Allowed: true, Limit: loginBurst, Remaining: loginBurst}
	}

	keys := []string{fmt.Sprintf(keyLoginIP, strings.TrimSpace(clientIP))}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		keys = append(keys, fmt.Sprintf(keyLoginEmail, email))
	}

	var tightest *Result
	for _, key := range keys {
		result, err := l.bucket.Allow(ctx, key, loginRate, loginBurst)
		if err != nil {
			l.log.Warn("login rate limit check failed", zap.String("key", key), zap.Error(err))
			continue
		}
		switch {
		case tightest == nil, tightest.Allowed && !result.Allowed:
			tightest = result
		case tightest.Allowed == result.Allowed && result.Remaining < tightest.Remaining:
			tightest = result
		}
	}
	if tightest == nil {
		return &Result{Allowed: true, Limit: loginBurst, Remaining: loginBurst}
	}
	return tightest
}
