// ABOUTME: Storage interface and types for podcast persistence
// ABOUTME: Defines the contract for podcasts, episodes, crawl leases and recommendations

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/harper/podroll/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrLeaseHeld is returned when another worker holds a podcast's crawl lease.
	ErrLeaseHeld = errors.New("lease held by another worker")
	// ErrCycle is returned when a canonical pointer would point at itself or loop.
	ErrCycle = errors.New("canonical cycle")
)

// ListFilter narrows default podcast listings.
type ListFilter struct {
	Since    *time.Time
	Category string
	Limit    int
	Offset   int
}

// FeedUpdate is the atomic write for a successfully parsed, changed feed: podcast
// metadata, content hash and schedule fields together with the episode upserts.
type FeedUpdate struct {
	Podcast  *models.Podcast
	Episodes []models.Episode
}

// ApplyResult counts episode writes of one FeedUpdate. DuplicateOf is set instead
// when another podcast committed the same content first; nothing else was written.
type ApplyResult struct {
	Inserted    int
	Updated     int
	Failed      int
	DuplicateOf string
}

// RecommendationInput is one podcast's text as seen by the recommender.
type RecommendationInput struct {
	PodcastID     string
	Title         string
	Description   string
	Language      string
	Categories    []string
	Keywords      []string
	EpisodeTitles []string
}

// Stats summarizes the store.
type Stats struct {
	Podcasts    int
	Active      int
	Excluded    int
	Duplicates  int
	Errored     int
	Episodes    int
	Recommended int
}

// Store defines the storage interface for podroll data.
type Store interface {
	// Close closes the store and releases resources.
	Close() error

	// Podcast Operations

	// CreatePodcasts inserts unparsed podcasts by rss URL, ignoring URLs already
	// present. Returns how many were inserted.
	CreatePodcasts(ctx context.Context, urls []string) (int, error)

	// GetPodcast retrieves a podcast by ID.
	GetPodcast(ctx context.Context, id string) (*models.Podcast, error)

	// GetPodcastByRSS finds a podcast by its rss URL.
	GetPodcastByRSS(ctx context.Context, rss string) (*models.Podcast, error)

	// GetPodcastByRef tries an exact ID, then an rss URL, then an ID prefix (min 6 chars).
	GetPodcastByRef(ctx context.Context, ref string) (*models.Podcast, error)

	// FindByContentHash returns the oldest other podcast with the same content hash.
	FindByContentHash(ctx context.Context, hash, excludeID string) (*models.Podcast, error)

	// FindByTitle returns other non-duplicate podcasts whose title matches case-insensitively.
	FindByTitle(ctx context.Context, title, excludeID string) ([]*models.Podcast, error)

	// ListActive returns podcasts that are not canonical duplicates, newest first.
	ListActive(ctx context.Context, filter ListFilter) ([]*models.Podcast, error)

	// CountActive counts podcasts that are not canonical duplicates.
	CountActive(ctx context.Context) (int, error)

	// Search performs full-text search over titles, descriptions and keywords,
	// excluding canonical duplicates.
	Search(ctx context.Context, query string, limit int) ([]*models.Podcast, error)

	// Episode Operations

	// Episodes returns a podcast's episodes, newest first. A limit <= 0 returns all.
	Episodes(ctx context.Context, podcastID string, limit int) ([]*models.Episode, error)

	// CountEpisodes counts a podcast's episodes.
	CountEpisodes(ctx context.Context, podcastID string) (int, error)

	// RecentPubDates returns up to limit publication dates, newest first.
	RecentPubDates(ctx context.Context, podcastID string, limit int) ([]time.Time, error)

	// Crawl Operations

	// AcquireLease claims a podcast for owner until now+ttl. Returns ErrLeaseHeld
	// when an unexpired lease belongs to someone else.
	AcquireLease(ctx context.Context, podcastID, owner string, ttl time.Duration) error

	// ReleaseLease drops owner's lease on a podcast.
	ReleaseLease(ctx context.Context, podcastID, owner string) error

	// ApplyFeed writes podcast metadata and episode upserts in one transaction, or
	// folds the podcast into an existing one with the same content hash.
	// Episodes are keyed by (podcast, guid) and never deleted.
	ApplyFeed(ctx context.Context, update FeedUpdate) (*ApplyResult, error)

	// RecordOutcome stores parser_error, caching headers and schedule fields only.
	RecordOutcome(ctx context.Context, p *models.Podcast) error

	// MarkDuplicate points a podcast at its canonical and excludes it from listings.
	MarkDuplicate(ctx context.Context, id, canonicalID string) error

	// DueForPoll returns podcasts whose next poll is due, oldest first. Excluded
	// podcasts are returned only when includeExcluded is set.
	DueForPoll(ctx context.Context, now time.Time, limit int, includeExcluded bool) ([]*models.Podcast, error)

	// Recommendation Operations

	// RecommendationInputs snapshots the text of every listed podcast.
	RecommendationInputs(ctx context.Context) ([]RecommendationInput, error)

	// ReplaceRecommendations swaps the full recommendation set in one transaction.
	ReplaceRecommendations(ctx context.Context, recs []models.Recommendation) error

	// Recommendations returns a podcast's top recommendations by score.
	Recommendations(ctx context.Context, podcastID string, limit int) ([]models.Recommendation, error)

	// Statistics

	// Stats returns summary counts.
	Stats(ctx context.Context) (*Stats, error)
}
