// ABOUTME: SQLite storage implementation using modernc.org/sqlite (pure Go)
// ABOUTME: Provides podcast persistence, lookups and FTS5 full-text search

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/harper/podroll/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// WAL lets readers proceed while a crawl writes; busy_timeout covers a second process.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers inside this process.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Podcast Operations

var podcastFields = []string{
	"id", "rss", "title", "slug", "description", "link", "language", "categories", "keywords",
	"owner", "owner_email", "cover", "funding_url", "explicit", "content_hash", "parser_error",
	"canonical_id", "state", "active", "etag", "last_modified", "polled_at", "parsed_at",
	"next_poll_at", "poll_interval", "failure_count", "created_at", "updated_at",
}

func podcastColumns(alias string) string {
	if alias == "" {
		return strings.Join(podcastFields, ", ")
	}
	cols := make([]string, len(podcastFields))
	for i, f := range podcastFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

// CreatePodcasts inserts pending podcasts, skipping rss URLs already stored.
func (s *SQLiteStore) CreatePodcasts(ctx context.Context, urls []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO podcasts (id, rss, state, active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := time.Now().UTC()
	for _, url := range urls {
		if url = strings.TrimSpace(url); url == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, uuid.New().String(), url, models.StatePending, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert podcast %q: %w", url, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit podcasts: %w", err)
	}
	return inserted, nil
}

// GetPodcast retrieves a podcast by ID.
func (s *SQLiteStore) GetPodcast(ctx context.Context, id string) (*models.Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns("")+` FROM podcasts WHERE id = ?`, id)
	return scanPodcast(row)
}

// GetPodcastByRSS retrieves a podcast by its rss URL.
func (s *SQLiteStore) GetPodcastByRSS(ctx context.Context, rss string) (*models.Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns("")+` FROM podcasts WHERE rss = ?`, rss)
	return scanPodcast(row)
}

// GetPodcastByRef resolves an ID, an rss URL or a unique ID prefix.
func (s *SQLiteStore) GetPodcastByRef(ctx context.Context, ref string) (*models.Podcast, error) {
	p, err := s.GetPodcast(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}
	p, err = s.GetPodcastByRSS(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}

	if len(ref) < 6 {
		return nil, fmt.Errorf("podcast %q: %w", ref, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+podcastColumns("")+` FROM podcasts WHERE id LIKE ? LIMIT 2`, ref+"%")
	if err != nil {
		return nil, fmt.Errorf("query podcast prefix: %w", err)
	}
	podcasts, err := scanPodcasts(rows)
	if err != nil {
		return nil, err
	}
	switch len(podcasts) {
	case 0:
		return nil, fmt.Errorf("podcast %q: %w", ref, ErrNotFound)
	case 1:
		return podcasts[0], nil
	default:
		return nil, fmt.Errorf("ambiguous prefix %q: matches multiple podcasts", ref)
	}
}

// FindByContentHash returns the oldest other podcast sharing hash, preferring
// podcasts that are not themselves duplicates. Podcasts already folded into
// excludeID never match.
func (s *SQLiteStore) FindByContentHash(ctx context.Context, hash, excludeID string) (*models.Podcast, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+podcastColumns("")+` FROM podcasts
		WHERE content_hash = ? AND id <> ? AND (canonical_id IS NULL OR canonical_id <> ?)
		ORDER BY canonical_id IS NOT NULL, rowid
		LIMIT 1
	`, hash, excludeID, excludeID)
	return scanPodcast(row)
}

// FindByTitle returns non-duplicate podcasts whose title matches, oldest first.
func (s *SQLiteStore) FindByTitle(ctx context.Context, title, excludeID string) ([]*models.Podcast, error) {
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+podcastColumns("")+` FROM podcasts
		WHERE title = ? COLLATE NOCASE AND id <> ? AND canonical_id IS NULL
		ORDER BY rowid
	`, strings.TrimSpace(title), excludeID)
	if err != nil {
		return nil, fmt.Errorf("query podcasts by title: %w", err)
	}
	return scanPodcasts(rows)
}

// ListActive lists podcasts that are not canonical duplicates, newest first.
func (s *SQLiteStore) ListActive(ctx context.Context, filter ListFilter) ([]*models.Podcast, error) {
	query := `SELECT ` + podcastColumns("") + ` FROM podcasts WHERE canonical_id IS NULL`
	var args []any

	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	if filter.Category != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(podcasts.categories) WHERE value = ? COLLATE NOCASE)`
		args = append(args, filter.Category)
	}

	query += ` ORDER BY rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	return scanPodcasts(rows)
}

// CountActive counts podcasts that are not canonical duplicates.
func (s *SQLiteStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM podcasts WHERE canonical_id IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count podcasts: %w", err)
	}
	return count, nil
}

// Search performs full-text search over podcasts. Every whitespace-separated term
// must match; FTS5 operators in the query are treated as literal text.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]*models.Podcast, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+podcastColumns("p")+`
		FROM podcasts p
		INNER JOIN podcasts_fts fts ON p.rowid = fts.rowid
		WHERE podcasts_fts MATCH ? AND p.canonical_id IS NULL
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search podcasts: %w", err)
	}
	return scanPodcasts(rows)
}

func ftsQuery(query string) string {
	var terms []string
	for _, t := range strings.Fields(query) {
		if strings.IndexFunc(t, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

// Statistics

// Stats returns summary counts across the store.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(canonical_id IS NULL AND active = 1), 0),
			COALESCE(SUM(canonical_id IS NULL AND active = 0), 0),
			COALESCE(SUM(canonical_id IS NOT NULL), 0),
			COALESCE(SUM(canonical_id IS NULL AND parser_error NOT IN ('', 'not_modified')), 0)
		FROM podcasts
	`).Scan(&stats.Podcasts, &stats.Active, &stats.Excluded, &stats.Duplicates, &stats.Errored)
	if err != nil {
		return nil, fmt.Errorf("count podcasts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&stats.Episodes); err != nil {
		return nil, fmt.Errorf("count episodes: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT podcast_id) FROM recommendations`).Scan(&stats.Recommended); err != nil {
		return nil, fmt.Errorf("count recommendations: %w", err)
	}

	return stats, nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPodcast(row rowScanner) (*models.Podcast, error) {
	var p models.Podcast
	var categories, keywords, parserError, state string
	var explicit, active, interval int64
	var canonicalID sql.NullString
	var polledAt, parsedAt, nextPollAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.RSS, &p.Title, &p.Slug, &p.Description, &p.Link, &p.Language, &categories, &keywords,
		&p.Owner, &p.OwnerEmail, &p.Cover, &p.FundingURL, &explicit, &p.ContentHash, &parserError,
		&canonicalID, &state, &active, &p.ETag, &p.LastModified, &polledAt, &parsedAt,
		&nextPollAt, &interval, &p.FailureCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan podcast: %w", err)
	}

	p.Categories = fromJSON(categories)
	p.Keywords = fromJSON(keywords)
	p.Explicit = explicit != 0
	p.Active = active != 0
	p.ParserError = models.ParserError(parserError)
	p.State = models.CrawlState(state)
	p.PollInterval = time.Duration(interval) * time.Second
	if canonicalID.Valid {
		p.CanonicalID = &canonicalID.String
	}
	p.PolledAt = nullTime(polledAt)
	p.ParsedAt = nullTime(parsedAt)
	p.NextPollAt = nullTime(nextPollAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}

func scanPodcasts(rows *sql.Rows) ([]*models.Podcast, error) {
	defer rows.Close()

	var podcasts []*models.Podcast
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func timeToSQL(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toJSON(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func fromJSON(s string) []string {
	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

// GetDefaultDBPath returns the default database path.
func GetDefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "./podroll.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "podroll", "podroll.db")
}

var _ Store = (*SQLiteStore)(nil)
