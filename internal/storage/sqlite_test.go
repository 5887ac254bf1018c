// ABOUTME: Tests for the SQLite podcast store
// ABOUTME: Covers feed writes, canonical duplicates, leases, due queues, search and recommendations

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/podroll/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addPodcast(t *testing.T, s *SQLiteStore, rss string) *models.Podcast {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreatePodcasts(ctx, []string{rss})
	require.NoError(t, err)
	p, err := s.GetPodcastByRSS(ctx, rss)
	require.NoError(t, err)
	return p
}

func testEpisode(guid string, pub time.Time) models.Episode {
	return models.Episode{
		GUID:      guid,
		Title:     "Episode " + guid,
		MediaURL:  "https://cdn.example.com/" + guid + ".mp3",
		MediaType: "audio/mpeg",
		PubDate:   pub,
		Keywords:  []string{"go"},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file was not created")

	version, dirty, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, store.Close())

	// Reopening an up-to-date database is a no-op migration.
	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestCreatePodcasts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CreatePodcasts(ctx, []string{
		"https://a.example.com/feed",
		"https://b.example.com/feed",
		"https://a.example.com/feed",
		"   ",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CreatePodcasts(ctx, []string{"https://a.example.com/feed"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p, err := s.GetPodcastByRSS(ctx, "https://a.example.com/feed")
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, p.State)
	assert.True(t, p.Active)
	assert.Nil(t, p.CanonicalID)
	assert.Empty(t, p.Categories)

	byRef, err := s.GetPodcastByRef(ctx, p.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	byRef, err = s.GetPodcastByRef(ctx, p.RSS)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	_, err = s.GetPodcast(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPodcastByRef(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyFeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := addPodcast(t, s, "https://show.example.com/feed")

	now := time.Now().UTC()
	p.Title = "Go Time"
	p.Description = "A weekly show about Go"
	p.Categories = []string{"Technology", "News"}
	p.ContentHash = "hash-1"
	p.State = models.StateActive
	p.ParsedAt = &now
	p.PollInterval = 6 * time.Hour

	pub := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res, err := s.ApplyFeed(ctx, FeedUpdate{
		Podcast:  p,
		Episodes: []models.Episode{testEpisode("one", pub), testEpisode("two", pub.Add(24*time.Hour))},
	})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Inserted: 2}, *res)

	got, err := s.GetPodcast(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Time", got.Title)
	assert.Equal(t, []string{"Technology", "News"}, got.Categories)
	assert.Equal(t, "hash-1", got.ContentHash)
	assert.Equal(t, 6*time.Hour, got.PollInterval)
	require.NotNil(t, got.ParsedAt)
	assert.True(t, got.ParsedAt.Equal(now))

	episodes, err := s.Episodes(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "two", episodes[0].GUID, "newest first")
	assert.True(t, episodes[1].PubDate.Equal(pub))
	assert.Equal(t, []string{"go"}, episodes[0].Keywords)
	firstID := episodes[1].ID

	// Re-applying updates in place and keeps episode identity.
	changed := testEpisode("one", pub)
	changed.Title = "Renamed"
	res, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: p, Episodes: []models.Episode{changed}})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Updated: 1}, *res)

	episodes, err = s.Episodes(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, episodes, 2, "episodes missing from the feed are kept")
	assert.Equal(t, firstID, episodes[1].ID)
	assert.Equal(t, "Renamed", episodes[1].Title)

	dates, err := s.RecentPubDates(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.True(t, dates[0].Equal(pub.Add(24*time.Hour)))
}

func TestApplyFeed_FailedEpisodeIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := addPodcast(t, s, "https://show.example.com/feed")
	pub := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: p, Episodes: []models.Episode{testEpisode("a", pub)}})
	require.NoError(t, err)
	existing, err := s.Episodes(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, existing, 1)

	// A new guid reusing an existing row ID violates the primary identity.
	clash := testEpisode("b", pub)
	clash.ID = existing[0].ID

	res, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: p, Episodes: []models.Episode{clash, testEpisode("c", pub)}})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Inserted: 1, Failed: 1}, *res)

	count, err := s.CountEpisodes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestApplyFeed_UnknownPodcast(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ApplyFeed(context.Background(), FeedUpdate{Podcast: models.NewPodcast("https://x.example.com")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordOutcome_LeavesMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := addPodcast(t, s, "https://show.example.com/feed")
	p.Title = "Kept"
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: p})
	require.NoError(t, err)

	next := time.Now().UTC().Add(time.Hour)
	p.Title = "Ignored"
	p.ParserError = models.ParserErrorUnavailable
	p.State = models.StateErrorBackoff
	p.FailureCount = 3
	p.NextPollAt = &next
	p.ETag = `"v2"`
	require.NoError(t, s.RecordOutcome(ctx, p))

	got, err := s.GetPodcast(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)
	assert.Equal(t, models.ParserErrorUnavailable, got.ParserError)
	assert.Equal(t, models.StateErrorBackoff, got.State)
	assert.Equal(t, 3, got.FailureCount)
	assert.Equal(t, `"v2"`, got.ETag)
	require.NotNil(t, got.NextPollAt)
	assert.True(t, got.NextPollAt.Equal(next))
}

func TestMarkDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addPodcast(t, s, "https://a.example.com/feed")
	b := addPodcast(t, s, "https://b.example.com/feed")
	c := addPodcast(t, s, "https://c.example.com/feed")

	pub := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: b, Episodes: []models.Episode{testEpisode("1", pub), testEpisode("2", pub)}})
	require.NoError(t, err)

	require.NoError(t, s.MarkDuplicate(ctx, b.ID, a.ID))

	listed, err := s.ListActive(ctx, ListFilter{})
	require.NoError(t, err)
	ids := make([]string, len(listed))
	for i, p := range listed {
		ids[i] = p.ID
	}
	assert.Contains(t, ids, a.ID)
	assert.NotContains(t, ids, b.ID)

	count, err := s.CountEpisodes(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "duplicate keeps its episodes")

	gotA, err := s.GetPodcast(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gotA.CanonicalID)

	gotB, err := s.GetPodcast(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB.CanonicalID)
	assert.Equal(t, a.ID, *gotB.CanonicalID)
	assert.Equal(t, models.ParserErrorDuplicate, gotB.ParserError)
	assert.Equal(t, models.StateMerged, gotB.State)

	// Pointing at a duplicate resolves to the root.
	require.NoError(t, s.MarkDuplicate(ctx, c.ID, b.ID))
	gotC, err := s.GetPodcast(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *gotC.CanonicalID)

	assert.ErrorIs(t, s.MarkDuplicate(ctx, a.ID, a.ID), ErrCycle)
	assert.ErrorIs(t, s.MarkDuplicate(ctx, a.ID, b.ID), ErrCycle)
	assert.ErrorIs(t, s.MarkDuplicate(ctx, "missing", a.ID), ErrNotFound)

	// A refused merge writes nothing.
	gotA, err = s.GetPodcast(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gotA.CanonicalID)
	assert.NotEqual(t, models.StateMerged, gotA.State)
	assert.NotEqual(t, models.ParserErrorDuplicate, gotA.ParserError)

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApplyFeed_FoldsSameContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addPodcast(t, s, "https://a.example.com/feed")
	b := addPodcast(t, s, "https://b.example.com/feed")
	pub := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a.Title, a.ContentHash = "Mirror", "same"
	res, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: a, Episodes: []models.Episode{testEpisode("1", pub)}})
	require.NoError(t, err)
	assert.Empty(t, res.DuplicateOf)

	// b found no twin before a committed; the write itself must catch it.
	b.Title, b.ContentHash = "Mirror", "same"
	b.State, b.Active = models.StateActive, true
	res, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: b, Episodes: []models.Episode{testEpisode("1", pub)}})
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{DuplicateOf: a.ID}, *res)

	got, err := s.GetPodcast(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CanonicalID)
	assert.Equal(t, a.ID, *got.CanonicalID)
	assert.Equal(t, models.StateMerged, got.State)
	assert.False(t, got.Active)
	assert.Nil(t, got.NextPollAt)
	assert.Empty(t, got.Title, "metadata is not written for a duplicate")

	count, err := s.CountEpisodes(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The canonical re-applying the same content is not its own duplicate.
	res, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: a})
	require.NoError(t, err)
	assert.Empty(t, res.DuplicateOf)
}

func TestFindByContentHash_SkipsOwnDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addPodcast(t, s, "https://a.example.com/feed")
	b := addPodcast(t, s, "https://b.example.com/feed")

	a.ContentHash = "ha"
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: a})
	require.NoError(t, err)
	b.ContentHash = "hb"
	_, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: b})
	require.NoError(t, err)
	require.NoError(t, s.MarkDuplicate(ctx, b.ID, a.ID))

	_, err = s.FindByContentHash(ctx, "hb", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.FindByContentHash(ctx, "hb", "someone-else")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestLeases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := addPodcast(t, s, "https://show.example.com/feed")

	require.NoError(t, s.AcquireLease(ctx, p.ID, "w1", time.Minute))
	assert.ErrorIs(t, s.AcquireLease(ctx, p.ID, "w2", time.Minute), ErrLeaseHeld)
	require.NoError(t, s.AcquireLease(ctx, p.ID, "w1", time.Minute), "owner may renew")

	require.NoError(t, s.ReleaseLease(ctx, p.ID, "w2"))
	assert.ErrorIs(t, s.AcquireLease(ctx, p.ID, "w2", time.Minute), ErrLeaseHeld, "foreign release is a no-op")

	require.NoError(t, s.ReleaseLease(ctx, p.ID, "w1"))
	require.NoError(t, s.AcquireLease(ctx, p.ID, "w2", -time.Second))
	require.NoError(t, s.AcquireLease(ctx, p.ID, "w3", time.Minute), "expired lease can be taken")

	assert.ErrorIs(t, s.AcquireLease(ctx, "missing", "w1", time.Minute), ErrNotFound)
}

func TestDueForPoll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := addPodcast(t, s, "https://fresh.example.com/feed")
	due := addPodcast(t, s, "https://due.example.com/feed")
	later := addPodcast(t, s, "https://later.example.com/feed")
	excluded := addPodcast(t, s, "https://excluded.example.com/feed")
	dup := addPodcast(t, s, "https://dup.example.com/feed")
	leased := addPodcast(t, s, "https://leased.example.com/feed")

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	due.NextPollAt = &past
	require.NoError(t, s.RecordOutcome(ctx, due))
	later.NextPollAt = &future
	require.NoError(t, s.RecordOutcome(ctx, later))
	excluded.Active = false
	excluded.NextPollAt = &past
	require.NoError(t, s.RecordOutcome(ctx, excluded))
	require.NoError(t, s.MarkDuplicate(ctx, dup.ID, fresh.ID))
	require.NoError(t, s.AcquireLease(ctx, leased.ID, "other", time.Minute))

	got, err := s.DueForPoll(ctx, now, 0, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].ID, "never polled first")
	assert.Equal(t, due.ID, got[1].ID)

	got, err = s.DueForPoll(ctx, now, 0, true)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.DueForPoll(ctx, now, 1, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := addPodcast(t, s, "https://a.example.com/feed")
	a.Title = "Go Time"
	a.Description = "Conversations about the Go programming language"
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: a})
	require.NoError(t, err)

	b := addPodcast(t, s, "https://b.example.com/feed")
	b.Title = "Go Time Mirror"
	_, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: b})
	require.NoError(t, err)
	require.NoError(t, s.MarkDuplicate(ctx, b.ID, a.ID))

	results, err := s.Search(ctx, "programming", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].ID)

	results, err = s.Search(ctx, "time", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1, "duplicates are hidden")

	results, err = s.Search(ctx, `"go AND (`, 10)
	require.NoError(t, err, "operators are literal")
	assert.Empty(t, results)

	results, err = s.Search(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListActive_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := addPodcast(t, s, "https://a.example.com/feed")
	a.Title = "A"
	a.Categories = []string{"Comedy"}
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: a})
	require.NoError(t, err)
	addPodcast(t, s, "https://b.example.com/feed")

	got, err := s.ListActive(ctx, ListFilter{Category: "comedy"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = s.ListActive(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://b.example.com/feed", got[0].RSS, "newest first")

	future := time.Now().Add(time.Hour)
	got, err = s.ListActive(ctx, ListFilter{Since: &future})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecommendations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pub := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := addPodcast(t, s, "https://a.example.com/feed")
	a.Title = "A"
	a.Keywords = []string{"golang"}
	_, err := s.ApplyFeed(ctx, FeedUpdate{Podcast: a, Episodes: []models.Episode{testEpisode("1", pub)}})
	require.NoError(t, err)

	b := addPodcast(t, s, "https://b.example.com/feed")
	b.Title = "B"
	_, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: b})
	require.NoError(t, err)

	c := addPodcast(t, s, "https://c.example.com/feed")
	c.Title = "C"
	_, err = s.ApplyFeed(ctx, FeedUpdate{Podcast: c})
	require.NoError(t, err)

	addPodcast(t, s, "https://unparsed.example.com/feed")

	inputs, err := s.RecommendationInputs(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 3, "unparsed podcasts are skipped")
	assert.Equal(t, []string{"golang"}, inputs[0].Keywords)
	assert.Equal(t, []string{"Episode 1"}, inputs[0].EpisodeTitles)

	require.NoError(t, s.ReplaceRecommendations(ctx, []models.Recommendation{
		{PodcastID: a.ID, RecommendedID: b.ID, Score: 0.4},
		{PodcastID: a.ID, RecommendedID: c.ID, Score: 0.9},
	}))

	recs, err := s.Recommendations(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, c.ID, recs[0].RecommendedID)

	require.NoError(t, s.ReplaceRecommendations(ctx, []models.Recommendation{
		{PodcastID: b.ID, RecommendedID: c.ID, Score: 0.5},
	}))
	recs, err = s.Recommendations(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, recs, "replace drops old edges")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Podcasts)
	assert.Equal(t, 1, stats.Episodes)
	assert.Equal(t, 1, stats.Recommended)
}
