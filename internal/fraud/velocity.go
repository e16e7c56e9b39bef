package fraud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// velocityTTL keeps cached counts fresh enough for fraud decisions without
// re-counting the database on every analysis of a busy survey.
const velocityTTL = 5 * time.Minute

// VelocityCache caches reuse/velocity counts in Redis. Every method
// degrades gracefully: a Redis failure is logged and reported as a miss,
// and the detector falls back to counting in the database.
type VelocityCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewVelocityCache(client *redis.Client, log *zap.Logger) *VelocityCache {
	return &VelocityCache{client: client, log: log}
}

// Get returns the cached count for a key, with ok=false on miss or error.
func (v *VelocityCache) Get(ctx context.Context, key string) (int, bool) {
	if v == nil || v.client == nil {
		return 0, false
	}
	val, err := v.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		v.log.Warn("Velocity cache read failed, falling back to database",
			zap.String("key", key), zap.Error(err))
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Put stores a count. Failures are logged and ignored; the cache is an
// optimization, not a source of truth.
func (v *VelocityCache) Put(ctx context.Context, key string, count int) {
	if v == nil || v.client == nil {
		return
	}
	if err := v.client.Set(ctx, key, count, velocityTTL).Err(); err != nil {
		v.log.Warn("Velocity cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Cache key builders. Values are hashed upstream (device fingerprints) or
// plain (IPs); either way they are opaque strings here.

func ipUsageKey(ip string, lookbackDays int) string {
	return fmt.Sprintf("fraud:ip:%s:%dd", ip, lookbackDays)
}

func ipTodayKey(ip string) string {
	return fmt.Sprintf("fraud:ip:%s:today:%s", ip, time.Now().UTC().Format("2006-01-02"))
}

func fingerprintKey(fp string, lookbackDays int) string {
	return fmt.Sprintf("fraud:fp:%s:%dd", fp, lookbackDays)
}

func respondentHourKey(respondentID string) string {
	return fmt.Sprintf("fraud:velocity:%s:%s", respondentID, time.Now().UTC().Format("2006-01-02T15"))
}
