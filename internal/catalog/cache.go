package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lumenspa/booking/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	servicesCacheKey = "catalog:services"
	staffCacheKey    = "catalog:staff"
)

// CachedRepository layers a short-TTL Redis read-through cache over the
// catalog list calls. The catalog is small and changes rarely; cache
// errors degrade to the database, never to a request failure.
type CachedRepository struct {
	*Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(repo *Repository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRepository{Repository: repo, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedRepository) ListServices(ctx context.Context) ([]model.Service, error) {
	var cached []model.Service
	if c.readCache(ctx, servicesCacheKey, &cached) {
		return cached, nil
	}
	services, err := c.Repository.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, servicesCacheKey, services)
	return services, nil
}

func (c *CachedRepository) ListStaff(ctx context.Context) ([]model.StaffMember, error) {
	var cached []model.StaffMember
	if c.readCache(ctx, staffCacheKey, &cached) {
		return cached, nil
	}
	staff, err := c.Repository.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, staffCacheKey, staff)
	return staff, nil
}

func (c *CachedRepository) CreateService(ctx context.Context, name, specialty string, price model.Money, durationMinutes int) (model.Service, error) {
	svc, err := c.Repository.CreateService(ctx, name, specialty, price, durationMinutes)
	if err != nil {
		return model.Service{}, err
	}
	c.invalidate(ctx, servicesCacheKey)
	return svc, nil
}

func (c *CachedRepository) CreateStaff(ctx context.Context, displayName, specialty string) (model.StaffMember, error) {
	st, err := c.Repository.CreateStaff(ctx, displayName, specialty)
	if err != nil {
		return model.StaffMember{}, err
	}
	c.invalidate(ctx, staffCacheKey)
	return st, nil
}

func (c *CachedRepository) readCache(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("catalog cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("catalog cache decode failed", "key", key, "err", err)
		return false
	}
	return true
}

func (c *CachedRepository) writeCache(ctx context.Context, key string, value any) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "err", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("catalog cache invalidation failed", "key", key, "err", err)
	}
}
