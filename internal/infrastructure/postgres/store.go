package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sp3dr4/wren/internal/domain"
)

// Constraint names from the links migration. The allocator relies on
// knowing which of the two unique columns rejected a create.
const (
	shortIDConstraint     = "links_short_id_key"
	originalURLConstraint = "links_original_url_key"
)

type LinkStore struct {
	db *sqlx.DB
}

func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) Create(ctx context.Context, link *domain.LinkMapping) (*domain.LinkMapping, error) {
	query := `
		INSERT INTO links (short_id, original_url, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, short_id, original_url, created_at
	`

	var result domain.LinkMapping
	err := s.db.QueryRowContext(ctx, query, link.ShortID, link.OriginalURL, link.CreatedAt).
		Scan(&result.ID, &result.ShortID, &result.OriginalURL, &result.CreatedAt)
	if err != nil {
		return nil, s.handlePostgreSQLError(err, "create link")
	}

	slog.Debug("Link mapping created", "short_id", result.ShortID, "id", result.ID)
	return &result, nil
}

func (s *LinkStore) FindByShortID(ctx context.Context, shortID string) (*domain.LinkMapping, error) {
	var link domain.LinkMapping
	query := `SELECT id, short_id, original_url, created_at FROM links WHERE short_id = $1`

	if err := s.db.GetContext(ctx, &link, query, shortID); err != nil {
		return nil, s.handlePostgreSQLError(err, "find link by short id")
	}
	return &link, nil
}

func (s *LinkStore) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.LinkMapping, error) {
	var link domain.LinkMapping
	query := `SELECT id, short_id, original_url, created_at FROM links WHERE original_url = $1`

	if err := s.db.GetContext(ctx, &link, query, originalURL); err != nil {
		return nil, s.handlePostgreSQLError(err, "find link by original url")
	}
	return &link, nil
}

// handlePostgreSQLError converts PostgreSQL-specific errors to domain errors
func (s *LinkStore) handlePostgreSQLError(err error, operation string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		slog.Error("PostgreSQL error",
			"operation", operation,
			"code", pqErr.Code,
			"message", pqErr.Message,
			"detail", pqErr.Detail,
		)

		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case shortIDConstraint:
				return &domain.ConflictError{Field: domain.FieldShortID}
			case originalURLConstraint:
				return &domain.ConflictError{Field: domain.FieldOriginalURL}
			}
			return fmt.Errorf("unique constraint violation: %s", pqErr.Detail)
		case "23502": // not_null_violation
			return fmt.Errorf("required field missing: %s", pqErr.Column)
		case "08000", "08003", "08006": // connection errors
			return fmt.Errorf("database connection error: %s", pqErr.Message)
		default:
			return fmt.Errorf("database error [%s]: %s", pqErr.Code, pqErr.Message)
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLinkNotFound
	}

	return err
}

func (s *LinkStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *LinkStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection is nil")
	}
	return s.db.PingContext(ctx)
}
