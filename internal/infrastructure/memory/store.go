package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sp3dr4/wren/internal/domain"
)

// LinkStore is an in-memory domain.LinkStore for development and tests.
// It enforces the same two uniqueness constraints as the SQL backends.
type LinkStore struct {
	mu            sync.RWMutex
	nextID        int64
	byShortID     map[string]*domain.LinkMapping
	byOriginalURL map[string]*domain.LinkMapping
}

func NewLinkStore() *LinkStore {
	return &LinkStore{
		byShortID:     make(map[string]*domain.LinkMapping),
		byOriginalURL: make(map[string]*domain.LinkMapping),
	}
}

func (s *LinkStore) Create(_ context.Context, link *domain.LinkMapping) (*domain.LinkMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byShortID[link.ShortID]; exists {
		return nil, &domain.ConflictError{Field: domain.FieldShortID}
	}
	if _, exists := s.byOriginalURL[link.OriginalURL]; exists {
		return nil, &domain.ConflictError{Field: domain.FieldOriginalURL}
	}

	s.nextID++
	created := &domain.LinkMapping{
		ID:          s.nextID,
		ShortID:     link.ShortID,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	s.byShortID[created.ShortID] = created
	s.byOriginalURL[created.OriginalURL] = created
	return created, nil
}

func (s *LinkStore) FindByShortID(_ context.Context, shortID string) (*domain.LinkMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.byShortID[shortID]
	if !exists {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

func (s *LinkStore) FindByOriginalURL(_ context.Context, originalURL string) (*domain.LinkMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.byOriginalURL[originalURL]
	if !exists {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// Count reports the number of stored mappings.
func (s *LinkStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byShortID)
}

func (s *LinkStore) Close() error {
	return nil
}

func (s *LinkStore) HealthCheck(_ context.Context) error {
	return nil
}
