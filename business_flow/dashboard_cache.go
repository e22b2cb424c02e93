package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dashboard cache keys
const (
	dashboardKeyGeneration    = "dashboard:generation"
	dashboardKeyStats         = "dashboard:stats"
	dashboardKeyTopMargin     = "dashboard:top-margin"
	dashboardKeyTopMarginRate = "dashboard:top-margin-rate"
	dashboardKeyRecommended   = "dashboard:recommended"
	dashboardKeyCategories    = "dashboard:categories"
)

// DashboardCache stores computed dashboard payloads in redis.
// Payload keys carry the current generation; Invalidate bumps it, so a payload
// computed from rows read before a write is stored under a retired key.
// A nil client turns every method into a no-op, so reads always hit the database.
type DashboardCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardCache creates a dashboard cache; rc may be nil
func NewDashboardCache(rc *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *DashboardCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = utils.DashboardCacheTTL
	}
	return &DashboardCache{rc: rc, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *DashboardCache) enabled() bool {
	return c != nil && c.rc != nil
}

// generation returns the current cache generation, or "" when it cannot be read
func (c *DashboardCache) generation(ctx context.Context) string {
	gen, err := c.rc.Get(ctx, c.prefix+dashboardKeyGeneration).Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		c.logger.Warn("dashboard cache generation read failed",
			zap.String("request_id", utils.RequestIDFromContext(ctx)),
			zap.Error(err))
		return ""
	}
	return gen
}

func (c *DashboardCache) payloadKey(gen, key string) string {
	return c.prefix + key + ":" + gen
}

// get decodes a cached payload into dest and reports whether it was found.
// The returned generation must be handed to set once the payload is recomputed.
func (c *DashboardCache) get(ctx context.Context, key string, dest any) (string, bool) {
	if !c.enabled() {
		return "", false
	}
	gen := c.generation(ctx)
	if gen == "" {
		return "", false
	}
	bs, err := c.rc.Get(ctx, c.payloadKey(gen, key)).Bytes()
	if err != nil || len(bs) == 0 {
		return gen, false
	}
	if err := json.Unmarshal(bs, dest); err != nil {
		return gen, false
	}
	return gen, true
}

func (c *DashboardCache) set(ctx context.Context, gen, key string, value any) {
	if !c.enabled() || gen == "" {
		return
	}
	bs, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, c.payloadKey(gen, key), bs, c.ttl).Err(); err != nil {
		c.logger.Warn("dashboard cache write failed",
			zap.String("key", key),
			zap.String("request_id", utils.RequestIDFromContext(ctx)),
			zap.Error(err))
	}
}

// Invalidate retires every dashboard payload. Called after each write.
func (c *DashboardCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rc.Incr(ctx, c.prefix+dashboardKeyGeneration).Err(); err != nil {
		c.logger.Warn("dashboard cache invalidation failed",
			zap.String("request_id", utils.RequestIDFromContext(ctx)),
			zap.Error(err))
	}
}
