package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type TagCache interface {
	Get(ctx context.Context, uid string) (*domain.ScanTag, error)
	Set(ctx context.Context, tag *domain.ScanTag) error
	Delete(ctx context.Context, uid string) error
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, uid string) (*domain.ScanTag, error) {
	data, err := r.client.Get(ctx, cacheKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var tag domain.ScanTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("unmarshal tag failed: %w", err)
	}
	return &tag, nil
}

func (r *RedisCache) Set(ctx context.Context, tag *domain.ScanTag) error {
	data, err := json.Marshal(tag)
	if err != nil {
		return fmt.Errorf("marshal tag failed: %w", err)
	}

	// jitter spreads expiry of tags linked in bulk
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(tag.UIDresult), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, uid string) error {
	if err := r.client.Del(ctx, cacheKey(uid)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(uid string) string {
	return fmt.Sprintf("tag:%s", uid)
}

// NopCache never holds anything. Used when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.ScanTag, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, *domain.ScanTag) error          { return nil }
func (NopCache) Delete(context.Context, string) error                { return nil }
