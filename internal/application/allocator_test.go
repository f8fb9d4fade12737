package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sp3dr4/wren/internal/domain"
)

// scriptedStore lets tests inject store behavior per call.
type scriptedStore struct {
	findByShortID     func(shortID string) (*domain.LinkMapping, error)
	findByOriginalURL func(url string) (*domain.LinkMapping, error)
	create            func(link *domain.LinkMapping) (*domain.LinkMapping, error)

	createCalls int
	findCalls   int
}

func (s *scriptedStore) Create(_ context.Context, link *domain.LinkMapping) (*domain.LinkMapping, error) {
	s.createCalls++
	if s.create != nil {
		return s.create(link)
	}
	created := *link
	created.ID = int64(s.createCalls)
	return &created, nil
}

func (s *scriptedStore) FindByShortID(_ context.Context, shortID string) (*domain.LinkMapping, error) {
	if s.findByShortID != nil {
		return s.findByShortID(shortID)
	}
	return nil, domain.ErrLinkNotFound
}

func (s *scriptedStore) FindByOriginalURL(_ context.Context, url string) (*domain.LinkMapping, error) {
	s.findCalls++
	if s.findByOriginalURL != nil {
		return s.findByOriginalURL(url)
	}
	return nil, domain.ErrLinkNotFound
}

func (s *scriptedStore) Close() error                        { return nil }
func (s *scriptedStore) HealthCheck(_ context.Context) error { return nil }

// sequencedIDs replaces random generation with a deterministic series.
func sequencedIDs(a *Allocator) {
	n := 0
	a.newShortID = func(length int) (string, error) {
		n++
		return fmt.Sprintf("cand%04d", n), nil
	}
}

func TestAllocator_ReusesExistingMapping(t *testing.T) {
	store := &scriptedStore{
		findByOriginalURL: func(url string) (*domain.LinkMapping, error) {
			return &domain.LinkMapping{ShortID: "existing1", OriginalURL: url}, nil
		},
	}
	a := NewAllocator(store, 8, 6)
	sequencedIDs(a)

	link, err := a.Allocate(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ShortID != "existing1" {
		t.Errorf("expected existing1, got %s", link.ShortID)
	}
	if store.createCalls != 0 {
		t.Errorf("existing mapping must not trigger a create, got %d", store.createCalls)
	}
}

func TestAllocator_CreatesNewMapping(t *testing.T) {
	store := &scriptedStore{}
	a := NewAllocator(store, 8, 6)
	sequencedIDs(a)

	link, err := a.Allocate(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ShortID != "cand0001" {
		t.Errorf("expected cand0001, got %s", link.ShortID)
	}
	if store.createCalls != 1 {
		t.Errorf("expected 1 create, got %d", store.createCalls)
	}
}

func TestAllocator_RetriesShortIDCollisions(t *testing.T) {
	store := &scriptedStore{}
	store.create = func(link *domain.LinkMapping) (*domain.LinkMapping, error) {
		if store.createCalls <= 2 {
			return nil, &domain.ConflictError{Field: domain.FieldShortID}
		}
		created := *link
		created.ID = 1
		return &created, nil
	}
	a := NewAllocator(store, 8, 6)
	sequencedIDs(a)

	link, err := a.Allocate(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ShortID != "cand0003" {
		t.Errorf("expected third candidate after two collisions, got %s", link.ShortID)
	}
	if store.createCalls != 3 {
		t.Errorf("expected 3 create attempts, got %d", store.createCalls)
	}
}

func TestAllocator_ExhaustsAttemptBudget(t *testing.T) {
	store := &scriptedStore{
		create: func(_ *domain.LinkMapping) (*domain.LinkMapping, error) {
			return nil, &domain.ConflictError{Field: domain.FieldShortID}
		},
	}
	a := NewAllocator(store, 8, 5)
	sequencedIDs(a)

	_, err := a.Allocate(context.Background(), "https://example.com")
	if !errors.Is(err, domain.ErrAllocationExhausted) {
		t.Fatalf("expected ErrAllocationExhausted, got %v", err)
	}
	if store.createCalls != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", store.createCalls)
	}
}

func TestAllocator_RecoversFromConcurrentDuplicate(t *testing.T) {
	// the not-found check passes, then the insert loses the race: a
	// concurrent allocation for the same address committed first
	store := &scriptedStore{}
	store.findByOriginalURL = func(url string) (*domain.LinkMapping, error) {
		if store.findCalls == 1 {
			return nil, domain.ErrLinkNotFound
		}
		return &domain.LinkMapping{ShortID: "winner99", OriginalURL: url}, nil
	}
	store.create = func(_ *domain.LinkMapping) (*domain.LinkMapping, error) {
		return nil, &domain.ConflictError{Field: domain.FieldOriginalURL}
	}
	a := NewAllocator(store, 8, 6)
	sequencedIDs(a)

	link, err := a.Allocate(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if link.ShortID != "winner99" {
		t.Errorf("expected the winner's short id, got %s", link.ShortID)
	}
	if store.createCalls != 1 {
		t.Errorf("original_url conflict must not be retried, got %d creates", store.createCalls)
	}
}

func TestAllocator_PropagatesStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &scriptedStore{
		create: func(_ *domain.LinkMapping) (*domain.LinkMapping, error) {
			return nil, storeErr
		},
	}
	a := NewAllocator(store, 8, 6)
	sequencedIDs(a)

	_, err := a.Allocate(context.Background(), "https://example.com")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if store.createCalls != 1 {
		t.Errorf("store failures must not be retried, got %d creates", store.createCalls)
	}
}

func TestAllocator_PropagatesLookupFailure(t *testing.T) {
	lookupErr := errors.New("connection refused")
	store := &scriptedStore{
		findByOriginalURL: func(_ string) (*domain.LinkMapping, error) {
			return nil, lookupErr
		},
	}
	a := NewAllocator(store, 8, 6)

	_, err := a.Allocate(context.Background(), "https://example.com")
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
	if store.createCalls != 0 {
		t.Errorf("lookup failure must abort before create, got %d creates", store.createCalls)
	}
}

func TestRandomShortID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := randomShortID(8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 8 {
			t.Fatalf("expected length 8, got %d (%q)", len(id), id)
		}
		for _, r := range id {
			if !strings.ContainsRune(shortIDAlphabet, r) {
				t.Fatalf("character %q outside alphabet", r)
			}
		}
		seen[id] = struct{}{}
	}
	if len(seen) < 95 {
		t.Errorf("suspiciously many duplicate ids: %d distinct of 100", len(seen))
	}
}
