package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sp3dr4/wren/internal/domain"
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
		VALUES (:short_id, :original_url, :created_at)
	`

	result, err := s.db.NamedExecContext(ctx, query, link)
	if err != nil {
		return nil, mapSQLiteError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	created := *link
	created.ID = id
	return &created, nil
}

func (s *LinkStore) FindByShortID(ctx context.Context, shortID string) (*domain.LinkMapping, error) {
	var link domain.LinkMapping
	query := `SELECT id, short_id, original_url, created_at FROM links WHERE short_id = $1`

	if err := s.db.GetContext(ctx, &link, query, shortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.LinkMapping, error) {
	var link domain.LinkMapping
	query := `SELECT id, short_id, original_url, created_at FROM links WHERE original_url = $1`

	if err := s.db.GetContext(ctx, &link, query, originalURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// mapSQLiteError discriminates which unique column rejected an insert.
// SQLite reports the column in the error text ("UNIQUE constraint failed:
// links.short_id"); there is no structured constraint name like postgres.
func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}

	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "links.short_id"):
		return &domain.ConflictError{Field: domain.FieldShortID}
	case strings.Contains(msg, "links.original_url"):
		return &domain.ConflictError{Field: domain.FieldOriginalURL}
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
