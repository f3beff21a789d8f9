package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/models"
)

const (
	productKeyPrefix = "product:detail:"
	DefaultTTL       = 10 * time.Minute
)

// ProductCache keeps product-by-id reads in redis. A nil *ProductCache is a no-op,
// and redis failures only get logged.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewProductCache(rdb *redis.Client, log *zap.Logger) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: DefaultTTL, log: log}
}

// Connect parses url (redis://...) and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func key(id uint) string {
	return productKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

func (pc *ProductCache) Get(ctx context.Context, id uint) (*models.Product, bool) {
	if pc == nil {
		return nil, false
	}
	raw, err := pc.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			pc.log.Warn("product cache get failed", zap.Uint("product_id", id), zap.Error(err))
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		pc.log.Warn("failed to unmarshal cached product", zap.Uint("product_id", id), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (pc *ProductCache) Set(ctx context.Context, p *models.Product) {
	if pc == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		pc.log.Warn("failed to marshal product for cache", zap.Uint("product_id", p.ID), zap.Error(err))
		return
	}
	if err := pc.rdb.Set(ctx, key(p.ID), raw, pc.ttl).Err(); err != nil {
		pc.log.Warn("failed to cache product", zap.Uint("product_id", p.ID), zap.Error(err))
	}
}

func (pc *ProductCache) Invalidate(ctx context.Context, id uint) {
	if pc == nil {
		return
	}
	if err := pc.rdb.Del(ctx, key(id)).Err(); err != nil {
		pc.log.Warn("failed to invalidate product cache", zap.Uint("product_id", id), zap.Error(err))
	}
}
