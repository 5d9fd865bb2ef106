package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-seating/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	generationKey = "seats:gen"
	pageKeyFormat = "seats:page:%d:%d:%d"
)

// SeatCache is a read-through cache for seat list pages. GetPage reports the
// generation it looked under; SetPage stores only under that generation, so a
// page read before an Invalidate is never served after it.
type SeatCache interface {
	GetPage(ctx context.Context, page, limit int, dst any) (gen int64, hit bool)
	SetPage(ctx context.Context, gen int64, page, limit int, value any)
	Invalidate(ctx context.Context)
}

// noGeneration makes SetPage a no-op.
const noGeneration int64 = -1

// NewRedisClient connects and pings Redis. It returns nil when no address is
// configured or the server is unreachable; callers fall back to Noop.
func NewRedisClient(config utils.RedisConfig, log *zap.Logger) *redis.Client {
	if config.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, seat cache disabled", zap.String("addr", config.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// New returns a Redis-backed cache, or Noop when rdb is nil.
func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) SeatCache {
	if rdb == nil {
		return Noop{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisSeatCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With(zap.String("cache", "seat")),
	}
}

type redisSeatCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// Pages are keyed by a generation counter, so bumping the counter orphans
// every older page and they age out through their TTL.
func (c *redisSeatCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return noGeneration, err
	}
	return gen, nil
}

func (c *redisSeatCache) GetPage(ctx context.Context, page, limit int, dst any) (int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("Failed to read cache generation", zap.Error(err))
		return noGeneration, false
	}

	key := fmt.Sprintf(pageKeyFormat, gen, page, limit)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Failed to read cached page", zap.String("key", key), zap.Error(err))
		}
		return gen, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("Discarding corrupt cached page", zap.String("key", key), zap.Error(err))
		return gen, false
	}
	return gen, true
}

func (c *redisSeatCache) SetPage(ctx context.Context, gen int64, page, limit int, value any) {
	if gen < 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Failed to encode page for cache", zap.Error(err))
		return
	}

	key := fmt.Sprintf(pageKeyFormat, gen, page, limit)
	if err := c.rdb.SetEx(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}

func (c *redisSeatCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("Failed to invalidate seat cache", zap.Error(err))
	}
}

// Noop never caches.
type Noop struct{}

func (Noop) GetPage(context.Context, int, int, any) (int64, bool) { return noGeneration, false }
func (Noop) SetPage(context.Context, int64, int, int, any)        {}
func (Noop) Invalidate(context.Context)                           {}
