package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sp3dr4/wren/internal/domain"
)

const (
	DefaultShortIDLength = 8
	DefaultMaxAttempts   = 6

	// 64 URL-safe characters, so indexing random bytes has no modulo bias
	shortIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
)

// Allocator produces store-backed, collision-free short identifiers.
// Allocation is idempotent per address: an already-shortened URL always
// yields its existing identifier.
type Allocator struct {
	store       domain.LinkStore
	length      int
	maxAttempts int

	newShortID func(length int) (string, error)
}

func NewAllocator(store domain.LinkStore, length, maxAttempts int) *Allocator {
	if length <= 0 {
		length = DefaultShortIDLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		store:       store,
		length:      length,
		maxAttempts: maxAttempts,
		newShortID:  randomShortID,
	}
}

// Allocate returns the mapping for originalURL, creating one if none
// exists. Random-candidate collisions on short_id are retried up to the
// attempt budget; losing a concurrent creation race on original_url is
// recovered by re-reading the winner's mapping. Any other store failure
// propagates immediately.
func (a *Allocator) Allocate(ctx context.Context, originalURL string) (*domain.LinkMapping, error) {
	existing, err := a.store.FindByOriginalURL(ctx, originalURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrLinkNotFound) {
		return nil, fmt.Errorf("lookup by original url: %w", err)
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := a.newShortID(a.length)
		if err != nil {
			return nil, fmt.Errorf("generate short id: %w", err)
		}

		link, err := domain.NewLinkMapping(candidate, originalURL)
		if err != nil {
			return nil, err
		}

		created, err := a.store.Create(ctx, link)
		if err == nil {
			return created, nil
		}
		if domain.IsConflictOn(err, domain.FieldShortID) {
			continue
		}
		if domain.IsConflictOn(err, domain.FieldOriginalURL) {
			// a concurrent allocation for the same address won the race;
			// its mapping is the one to reuse
			winner, ferr := a.store.FindByOriginalURL(ctx, originalURL)
			if ferr != nil {
				return nil, fmt.Errorf("re-fetch after concurrent creation: %w", ferr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create mapping: %w", err)
	}

	return nil, domain.ErrAllocationExhausted
}

func randomShortID(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(buf), nil
}
