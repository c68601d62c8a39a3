package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/port"
)

const DefaultCatalogTTL = 30 * time.Second

// CatalogCache serves the merged sellable-item catalog. A snapshot younger
// than ttl is returned without any I/O; otherwise the load goes through
// singleflight so concurrent misses produce a single underlying read.
// The shared snapshot cache is optional and consulted before the store.
type CatalogCache struct {
	store     port.CatalogStore
	snapshots port.SnapshotCache
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	sfg singleflight.Group

	mu       sync.RWMutex
	items    []domain.CatalogItem
	loadedAt time.Time
}

func NewCatalogCache(store port.CatalogStore, snapshots port.SnapshotCache, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{
		store:     store,
		snapshots: snapshots,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

type catalogSnapshot struct {
	items []domain.CatalogItem
	asOf  time.Time
}

// Load returns the current catalog and the time it was read. force skips
// every cache level and always hits the store.
func (c *CatalogCache) Load(ctx context.Context, force bool) ([]domain.CatalogItem, time.Time, error) {
	if !force {
		c.mu.RLock()
		if c.items != nil && c.now().Sub(c.loadedAt) < c.ttl {
			items, asOf := copyItems(c.items), c.loadedAt
			c.mu.RUnlock()
			return items, asOf, nil
		}
		c.mu.RUnlock()
	}

	// Forced loads keep their own flight: joining an in-flight cached
	// read could hand a force caller memory or snapshot data.
	key := "catalog"
	if force {
		key = "catalog:force"
	}
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		return c.loadSlow(ctx, force)
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	snap := v.(catalogSnapshot)
	return copyItems(snap.items), snap.asOf, nil
}

func (c *CatalogCache) loadSlow(ctx context.Context, force bool) (catalogSnapshot, error) {
	// Another caller may have refreshed while we waited on singleflight.
	if !force {
		c.mu.RLock()
		if c.items != nil && c.now().Sub(c.loadedAt) < c.ttl {
			snap := catalogSnapshot{items: c.items, asOf: c.loadedAt}
			c.mu.RUnlock()
			return snap, nil
		}
		c.mu.RUnlock()

		if c.snapshots != nil {
			items, err := c.snapshots.GetCatalog(ctx)
			if err == nil {
				return c.install(items), nil
			}
			if !errors.Is(err, port.ErrSnapshotMiss) && c.logger != nil {
				c.logger.Warn("catalog snapshot read failed", zap.Error(err))
			}
		}
	}

	items, err := c.refresh(ctx)
	if err != nil {
		// Keep whatever snapshot we had; never cache a failed read.
		return catalogSnapshot{}, err
	}

	if c.snapshots != nil {
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := c.snapshots.SetCatalog(setCtx, items); err != nil && c.logger != nil {
				c.logger.Warn("catalog snapshot write failed", zap.Error(err))
			}
		}()
	}

	return c.install(items), nil
}

func (c *CatalogCache) install(items []domain.CatalogItem) catalogSnapshot {
	c.mu.Lock()
	c.items = items
	c.loadedAt = c.now()
	snap := catalogSnapshot{items: c.items, asOf: c.loadedAt}
	c.mu.Unlock()
	return snap
}

// refresh performs the two underlying reads and merges them. Ticket items
// are synthesized only for events that still have remaining capacity.
func (c *CatalogCache) refresh(ctx context.Context) ([]domain.CatalogItem, error) {
	merchandise, err := c.store.ListMerchandise(ctx)
	if err != nil {
		return nil, err
	}
	events, err := c.store.ListScheduledEvents(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(merchandise)+len(events))
	for _, m := range merchandise {
		items = append(items, domain.MerchandiseItem(m))
	}
	for _, e := range events {
		if e.Remaining() <= 0 {
			continue
		}
		items = append(items, domain.EventTicketItem(e))
	}
	return items, nil
}

// Invalidate drops every cache level. It is called synchronously after a
// successful commit and after stock-affecting administrative edits.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.items = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()

	if c.snapshots != nil {
		if err := c.snapshots.DeleteCatalog(ctx); err != nil && c.logger != nil {
			c.logger.Warn("catalog snapshot delete failed", zap.Error(err))
		}
	}
}

func copyItems(items []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	copy(out, items)
	return out
}
