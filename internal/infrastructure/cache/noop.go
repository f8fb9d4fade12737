package cache

import (
	"context"

	"github.com/sp3dr4/wren/internal/domain"
)

// NoOpCache disables redirect caching: every lookup is a miss and every
// write is discarded, so the store answers all resolutions.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(_ context.Context, _ string) (*domain.Resolution, error) {
	return nil, nil
}

func (c *NoOpCache) Set(_ context.Context, _ string, _ domain.Resolution) error {
	return nil
}

func (c *NoOpCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (c *NoOpCache) Ping(_ context.Context) error {
	return nil
}
