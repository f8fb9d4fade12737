package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrLinkNotFound        = errors.New("link not found")
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidShortID      = errors.New("invalid short id")
	ErrInvalidDocument     = errors.New("invalid document")
	ErrAllocationExhausted = errors.New("short id allocation attempts exhausted")
)

// Conflict fields reported by LinkStore.Create.
const (
	FieldShortID     = "short_id"
	FieldOriginalURL = "original_url"
)

// ConflictError reports a unique-constraint violation from the store,
// naming which column conflicted. The allocator treats a short_id conflict
// as a retryable collision and an original_url conflict as a concurrent
// creation it can recover from.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unique constraint violation on %s", e.Field)
}

// IsConflictOn reports whether err is a unique violation on the given field.
func IsConflictOn(err error, field string) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Field == field
}

// LinkMapping is a durable short identifier to destination address mapping.
// Both ShortID and OriginalURL are globally unique; the latter makes
// shortening idempotent per address. Mappings are never mutated.
type LinkMapping struct {
	ID          int64     `db:"id" json:"id"`
	ShortID     string    `db:"short_id" json:"shortId"`
	OriginalURL string    `db:"original_url" json:"originalUrl"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func NewLinkMapping(shortID, originalURL string) (*LinkMapping, error) {
	if shortID == "" {
		return nil, ErrInvalidShortID
	}
	if originalURL == "" {
		return nil, ErrInvalidURL
	}

	return &LinkMapping{
		ShortID:     shortID,
		OriginalURL: originalURL,
		CreatedAt:   time.Now(),
	}, nil
}
