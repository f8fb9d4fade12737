package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sp3dr4/wren/internal/domain"
)

// CacheStats receives cache outcome counts from the redirect path.
type CacheStats interface {
	IncCacheHit()
	IncCacheMiss()
}

type noopCacheStats struct{}

func (noopCacheStats) IncCacheHit()  {}
func (noopCacheStats) IncCacheMiss() {}

// Resolver answers redirect lookups, cache first. On a miss it consults the
// store and populates the cache with the outcome, positive or negative, so
// repeat lookups within the TTL window never touch the store. Cache
// failures are logged and degrade to store lookups; they never fail a
// resolution.
type Resolver struct {
	store domain.LinkStore
	cache domain.RedirectCache
	stats CacheStats
}

func NewResolver(store domain.LinkStore, cache domain.RedirectCache, stats CacheStats) *Resolver {
	if stats == nil {
		stats = noopCacheStats{}
	}
	return &Resolver{store: store, cache: cache, stats: stats}
}

// Resolve maps a short identifier to its destination address, or
// domain.ErrLinkNotFound. A cached tombstone answers not-found without a
// store call; that staleness window is bounded by the negative TTL.
func (r *Resolver) Resolve(ctx context.Context, shortID string) (string, error) {
	cached, err := r.cache.Get(ctx, shortID)
	if err != nil {
		slog.Warn("Redirect cache lookup failed", "short_id", shortID, "error", err)
	}
	if cached != nil {
		r.stats.IncCacheHit()
		if cached.NotFound {
			return "", domain.ErrLinkNotFound
		}
		return cached.OriginalURL, nil
	}
	r.stats.IncCacheMiss()

	link, err := r.store.FindByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			if cerr := r.cache.Set(ctx, shortID, domain.Resolution{NotFound: true}); cerr != nil {
				slog.Warn("Failed to cache tombstone", "short_id", shortID, "error", cerr)
			}
			return "", domain.ErrLinkNotFound
		}
		return "", fmt.Errorf("lookup by short id: %w", err)
	}

	if cerr := r.cache.Set(ctx, shortID, domain.Resolution{OriginalURL: link.OriginalURL}); cerr != nil {
		slog.Warn("Failed to cache resolution", "short_id", shortID, "error", cerr)
	}
	return link.OriginalURL, nil
}
