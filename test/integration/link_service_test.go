package integration

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/wren/internal/application"
	"github.com/sp3dr4/wren/internal/domain"
)

const testBaseURL = "http://localhost:8080"

func TestLinkService_ShortenURL_IntegrationFlow(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	resp, err := service.ShortenURL(ctx, application.ShortenURLRequest{
		URL: "https://example.com/article",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/article", resp.OriginalURL)
	assert.Len(t, resp.ShortID, application.DefaultShortIDLength)
	assert.Equal(t, testBaseURL+"/r/"+resp.ShortID, resp.ShortURL)
	assert.False(t, resp.CreatedAt.IsZero())

	// The mapping resolves back to the original URL
	originalURL, err := service.Resolve(ctx, resp.ShortID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/article", originalURL)
}

func TestLinkService_ShortenURL_Idempotent(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	req := application.ShortenURLRequest{URL: "https://example.com/stable"}

	first, err := service.ShortenURL(ctx, req)
	require.NoError(t, err)

	second, err := service.ShortenURL(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ShortID, second.ShortID)

	var count int
	require.NoError(t, env.DB.Get(&count, "SELECT COUNT(*) FROM links"))
	assert.Equal(t, 1, count)
}

func TestLinkService_ValidationErrors_Integration(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	tests := []struct {
		name    string
		request application.ShortenURLRequest
		errMsg  string
	}{
		{
			name:    "invalid URL format",
			request: application.ShortenURLRequest{URL: "not-a-url"},
			errMsg:  "URL",
		},
		{
			name:    "empty URL",
			request: application.ShortenURLRequest{URL: ""},
			errMsg:  "URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ShortenURL(ctx, tt.request)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLinkStore_ConflictDiscrimination_Integration(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()

	seed, err := domain.NewLinkMapping("seedseed", "https://example.com/seeded")
	require.NoError(t, err)
	_, err = env.Store.Create(ctx, seed)
	require.NoError(t, err)

	t.Run("duplicate short ID", func(t *testing.T) {
		dup, err := domain.NewLinkMapping("seedseed", "https://example.com/other")
		require.NoError(t, err)

		_, err = env.Store.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, domain.IsConflictOn(err, domain.FieldShortID))
		assert.False(t, domain.IsConflictOn(err, domain.FieldOriginalURL))
	})

	t.Run("duplicate original URL", func(t *testing.T) {
		dup, err := domain.NewLinkMapping("otherid1", "https://example.com/seeded")
		require.NoError(t, err)

		_, err = env.Store.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, domain.IsConflictOn(err, domain.FieldOriginalURL))
		assert.False(t, domain.IsConflictOn(err, domain.FieldShortID))
	})
}

func TestLinkService_Resolve_NotFound(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()

	_, err := env.Service.Resolve(ctx, "notfound")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLinkService_NegativeCaching_Integration(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	// First lookup misses and leaves a tombstone
	_, err := service.Resolve(ctx, "latecomer")
	require.ErrorIs(t, err, domain.ErrLinkNotFound)

	// Create the mapping behind the cache's back
	link, err := domain.NewLinkMapping("latecomer", "https://example.com/late")
	require.NoError(t, err)
	_, err = env.Store.Create(ctx, link)
	require.NoError(t, err)

	// Within the negative TTL the tombstone still answers
	_, err = service.Resolve(ctx, "latecomer")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	// After the tombstone expires the store is consulted again
	time.Sleep(150 * time.Millisecond)
	originalURL, err := service.Resolve(ctx, "latecomer")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/late", originalURL)
}

func TestLinkService_PositiveCaching_Integration(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	resp, err := service.ShortenURL(ctx, application.ShortenURLRequest{
		URL: "https://example.com/cached",
	})
	require.NoError(t, err)

	// Populate the cache
	_, err = service.Resolve(ctx, resp.ShortID)
	require.NoError(t, err)

	// Remove the row behind the cache's back; the cached entry still answers
	_, err = env.DB.Exec("DELETE FROM links WHERE short_id = $1", resp.ShortID)
	require.NoError(t, err)

	originalURL, err := service.Resolve(ctx, resp.ShortID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cached", originalURL)
}

func TestLinkService_RewriteDocument_Integration(t *testing.T) {
	env := SetupTestEnvironment(t)

	ctx := context.Background()
	service := env.Service

	doc := `<html><body>
<a href="https://example.com/one">first</a>
<a href="https://example.com/one">again</a>
<img src="https://example.com/logo.png">
<a href="mailto:team@example.com">mail</a>
</body></html>`

	rewritten, err := service.RewriteDocument(ctx, []byte(doc))
	require.NoError(t, err)

	out := string(rewritten)
	assert.NotContains(t, out, `"https://example.com/one"`)
	assert.NotContains(t, out, `"https://example.com/logo.png"`)
	assert.Contains(t, out, "mailto:team@example.com")

	shortLink := regexp.MustCompile(regexp.QuoteMeta(testBaseURL+"/r/") + `([a-zA-Z0-9_-]{8})`)
	matches := shortLink.FindAllStringSubmatch(out, -1)
	require.Len(t, matches, 3)

	// Repeated occurrences of the same URL share one short ID
	assert.Equal(t, matches[0][1], matches[1][1])
	assert.NotEqual(t, matches[0][1], matches[2][1])

	// Two distinct URLs means two rows
	var count int
	require.NoError(t, env.DB.Get(&count, "SELECT COUNT(*) FROM links"))
	assert.Equal(t, 2, count)

	// Every allocated short link resolves back to its original URL
	one, err := service.Resolve(ctx, matches[0][1])
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/one", one)

	logo, err := service.Resolve(ctx, matches[2][1])
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/logo.png", logo)

	// Rewriting the same document again reuses the existing mappings
	again, err := service.RewriteDocument(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, out, string(again))
}
