// Package ratelimit gates the NATS submission bridge's accept rate per
// client with a Redis-backed token bucket. It never throttles
// WorkQueue.Submit itself — only the bridge's decision to call it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"workqueue/internal/persistence"
)

type Limiter struct {
	redis  *persistence.RedisClient
	logger *zap.Logger
	rps    int
	burst  int
}

func NewLimiter(redisClient *persistence.RedisClient, logger *zap.Logger, rps, burst int) *Limiter {
	return &Limiter{redis: redisClient, logger: logger, rps: rps, burst: burst}
}

// Allow reports whether clientID may submit now, under a token-bucket
// keyed by client in Redis. On a Redis error it fails open (allows the
// request) and traces the error, so a degraded rate limiter never
// blocks the bridge's actual job.
func (l *Limiter) Allow(ctx context.Context, clientID uuid.UUID) (bool, time.Duration, error) {
	key := fmt.Sprintf("workqueue:ratelimit:%s", clientID)
	now := time.Now()
	windowStart := now.Truncate(time.Second)

	raw, err := l.redis.Get(ctx, key).Result()
	currentTokens := l.burst
	lastRefill := windowStart

	if err == nil {
		var lastRefillUnix int64
		fmt.Sscanf(raw, "%d:%d", &currentTokens, &lastRefillUnix)
		lastRefill = time.Unix(lastRefillUnix, 0)
	} else if err != redis.Nil {
		l.logger.Warn("rate limiter: redis read failed, failing open", zap.Error(err))
		return true, 0, nil
	}

	elapsed := windowStart.Sub(lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * l.rps
	if currentTokens+tokensToAdd > l.burst {
		currentTokens = l.burst
	} else {
		currentTokens += tokensToAdd
	}

	if currentTokens <= 0 {
		return false, time.Second - time.Duration(now.Nanosecond()), nil
	}
	currentTokens--

	newValue := fmt.Sprintf("%d:%d", currentTokens, windowStart.Unix())
	if err := l.redis.Set(ctx, key, newValue, time.Minute).Err(); err != nil {
		l.logger.Warn("rate limiter: redis write failed", zap.Error(err))
	}
	return true, 0, nil
}

func (l *Limiter) Reset(ctx context.Context, clientID uuid.UUID) error {
	return l.redis.Del(ctx, fmt.Sprintf("workqueue:ratelimit:%s", clientID)).Err()
}
