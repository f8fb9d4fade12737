package domain

import "context"

// Resolution is what the redirect cache holds for a short identifier:
// either the resolved destination or a "confirmed absent" tombstone.
type Resolution struct {
	OriginalURL string
	NotFound    bool
}

// RedirectCache shields the store from hot-path redirect lookups. It is a
// best-effort optimization, never the system of record: entries expire,
// get evicted, and die with the process. Implementations choose their own
// positive and negative expirations at construction time.
type RedirectCache interface {
	// Get returns the cached resolution for shortID, or (nil, nil) on miss.
	// A hit refreshes the entry's recency and expiry.
	Get(ctx context.Context, shortID string) (*Resolution, error)

	// Set stores a resolution, replacing any existing entry for shortID.
	Set(ctx context.Context, shortID string, res Resolution) error

	// Delete removes an entry if present.
	Delete(ctx context.Context, shortID string) error

	// Ping checks if the cache is available.
	Ping(ctx context.Context) error
}
