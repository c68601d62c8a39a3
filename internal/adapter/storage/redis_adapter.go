package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/port"
)

const (
	catalogSnapshotKey = "catalog:snapshot"
	idempotencyKeyTTL  = 24 * time.Hour
)

// RedisAdapter backs two ports: the shared catalog snapshot cache that
// POS stations read through, and the idempotency store guarding the
// commit pipeline against re-submitted carts.
type RedisAdapter struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, snapshotTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, snapshotTTL: snapshotTTL}
}

func (r *RedisAdapter) GetCatalog(ctx context.Context) ([]domain.CatalogItem, error) {
	data, err := r.client.Get(ctx, catalogSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrSnapshotMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []domain.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal catalog snapshot failed: %w", err)
	}
	return items, nil
}

func (r *RedisAdapter) SetCatalog(ctx context.Context, items []domain.CatalogItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot failed: %w", err)
	}
	if err := r.client.Set(ctx, catalogSnapshotKey, data, r.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisAdapter) DeleteCatalog(ctx context.Context) error {
	if err := r.client.Del(ctx, catalogSnapshotKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
