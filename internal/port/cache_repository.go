package port

import (
	"context"
	"errors"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

var ErrSnapshotMiss = errors.New("catalog snapshot miss")

// SnapshotCache is the shared second-level catalog cache. Implementations
// own their TTL; Delete must take effect before returning.
type SnapshotCache interface {
	GetCatalog(ctx context.Context) ([]domain.CatalogItem, error)
	SetCatalog(ctx context.Context, items []domain.CatalogItem) error
	DeleteCatalog(ctx context.Context) error
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key after an aborted commit so a retry can pass
	ReleaseIdempotency(ctx context.Context, key string) error
}
