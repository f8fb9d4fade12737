package domain

import "context"

// LinkStore is the durable mapping store. Create enforces uniqueness on
// both short_id and original_url and reports violations as *ConflictError.
type LinkStore interface {
	Create(ctx context.Context, link *LinkMapping) (*LinkMapping, error)
	FindByShortID(ctx context.Context, shortID string) (*LinkMapping, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*LinkMapping, error)
	Close() error
	HealthCheck(ctx context.Context) error
}
