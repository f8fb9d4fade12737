package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/wren/internal/domain"
	"github.com/sp3dr4/wren/internal/rewrite"
)

// redirectPathPrefix is the path under which short identifiers resolve.
const redirectPathPrefix = "/r/"

// LinkService is the application facade over allocation, resolution and
// document rewriting.
type LinkService struct {
	allocator   *Allocator
	resolver    *Resolver
	validate    *validator.Validate
	baseURL     string
	maxDocBytes int
}

func NewLinkService(allocator *Allocator, resolver *Resolver, baseURL string, maxDocBytes int) *LinkService {
	return &LinkService{
		allocator:   allocator,
		resolver:    resolver,
		validate:    validator.New(),
		baseURL:     baseURL,
		maxDocBytes: maxDocBytes,
	}
}

type ShortenURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type ShortenURLResponse struct {
	ShortURL    string    `json:"shortUrl"`
	ShortID     string    `json:"shortId"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ShortenURL allocates (or reuses) a short identifier for a single address.
func (s *LinkService) ShortenURL(ctx context.Context, req ShortenURLRequest) (*ShortenURLResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	link, err := s.allocator.Allocate(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	return &ShortenURLResponse{
		ShortURL:    s.RedirectURL(link.ShortID),
		ShortID:     link.ShortID,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	}, nil
}

// RewriteDocument replaces every qualifying link in an HTML document with
// its absolute redirect URL, allocating identifiers as needed. Either the
// whole document is rewritten or the operation fails; no partial output.
func (s *LinkService) RewriteDocument(ctx context.Context, doc []byte) ([]byte, error) {
	if len(doc) == 0 {
		return nil, domain.ErrInvalidDocument
	}
	if s.maxDocBytes > 0 && len(doc) > s.maxDocBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrInvalidDocument, s.maxDocBytes)
	}

	return rewrite.Rewrite(ctx, doc, func(ctx context.Context, originalURL string) (string, error) {
		link, err := s.allocator.Allocate(ctx, originalURL)
		if err != nil {
			return "", err
		}
		return s.RedirectURL(link.ShortID), nil
	})
}

// Resolve maps a short identifier to its destination address.
func (s *LinkService) Resolve(ctx context.Context, shortID string) (string, error) {
	return s.resolver.Resolve(ctx, shortID)
}

// RedirectURL composes the absolute redirect address for a short identifier.
func (s *LinkService) RedirectURL(shortID string) string {
	return s.baseURL + redirectPathPrefix + shortID
}
