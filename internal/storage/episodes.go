// ABOUTME: Episode queries and the transactional feed write path
// ABOUTME: ApplyFeed upserts episodes by (podcast, guid) behind per-episode savepoints

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harper/podroll/internal/models"
)

const episodeColumns = `id, podcast_id, guid, title, description, link, keywords, media_url, media_type,
	length, pub_date, duration, explicit, episode_type, season, number, cover, created_at, updated_at`

// Episodes returns a podcast's episodes, newest first.
func (s *SQLiteStore) Episodes(ctx context.Context, podcastID string, limit int) ([]*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE podcast_id = ? ORDER BY pub_date DESC, rowid DESC`
	args := []any{podcastID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// CountEpisodes counts a podcast's episodes.
func (s *SQLiteStore) CountEpisodes(ctx context.Context, podcastID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE podcast_id = ?`, podcastID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return count, nil
}

// RecentPubDates returns a podcast's newest publication dates.
func (s *SQLiteStore) RecentPubDates(ctx context.Context, podcastID string, limit int) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pub_date FROM episodes WHERE podcast_id = ? ORDER BY pub_date DESC LIMIT ?
	`, podcastID, limit)
	if err != nil {
		return nil, fmt.Errorf("query pub dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan pub date: %w", err)
		}
		dates = append(dates, t.UTC())
	}
	return dates, rows.Err()
}

// ApplyFeed writes the podcast row and every episode in one transaction. An episode
// that fails to write is rolled back to its savepoint and counted; the rest commit.
func (s *SQLiteStore) ApplyFeed(ctx context.Context, update FeedUpdate) (*ApplyResult, error) {
	p := update.Podcast
	if p == nil {
		return nil, errors.New("apply feed: nil podcast")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Writers are serialized here, so a concurrent twin committed first is visible.
	if p.ContentHash != "" {
		var twin string
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(canonical_id, id) FROM podcasts
			WHERE content_hash = ? AND id <> ? AND (canonical_id IS NULL OR canonical_id <> ?)
			ORDER BY canonical_id IS NOT NULL, rowid
			LIMIT 1
		`, p.ContentHash, p.ID, p.ID).Scan(&twin)
		switch {
		case err == nil:
			root, err := markDuplicate(ctx, tx, p.ID, twin)
			if err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit duplicate: %w", err)
			}
			return &ApplyResult{DuplicateOf: root}, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("check content hash: %w", err)
		}
	}

	p.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE podcasts SET
			title = ?, slug = ?, description = ?, link = ?, language = ?, categories = ?, keywords = ?,
			owner = ?, owner_email = ?, cover = ?, funding_url = ?, explicit = ?, content_hash = ?,
			parser_error = ?, state = ?, active = ?, etag = ?, last_modified = ?,
			polled_at = ?, parsed_at = ?, next_poll_at = ?, poll_interval = ?, failure_count = ?,
			updated_at = ?
		WHERE id = ?
	`,
		p.Title, p.Slug, p.Description, p.Link, p.Language, toJSON(p.Categories), toJSON(p.Keywords),
		p.Owner, p.OwnerEmail, p.Cover, p.FundingURL, boolToInt(p.Explicit), p.ContentHash,
		string(p.ParserError), string(p.State), boolToInt(p.Active), p.ETag, p.LastModified,
		timeToSQL(p.PolledAt), timeToSQL(p.ParsedAt), timeToSQL(p.NextPollAt), int64(p.PollInterval/time.Second), p.FailureCount,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update podcast: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("podcast %s: %w", p.ID, ErrNotFound)
	}

	result := &ApplyResult{}
	for i := range update.Episodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ep := &update.Episodes[i]
		ep.PodcastID = p.ID

		if _, err := tx.ExecContext(ctx, `SAVEPOINT episode`); err != nil {
			return nil, fmt.Errorf("savepoint: %w", err)
		}
		inserted, err := upsertEpisode(ctx, tx, ep)
		if err != nil {
			if _, rerr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT episode`); rerr != nil {
				return nil, fmt.Errorf("rollback episode %q: %w", ep.GUID, rerr)
			}
			result.Failed++
		} else if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT episode`); err != nil {
			return nil, fmt.Errorf("release savepoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit feed: %w", err)
	}
	return result, nil
}

// upsertEpisode keeps an existing row's ID and created_at, replacing everything else.
func upsertEpisode(ctx context.Context, tx *sql.Tx, ep *models.Episode) (bool, error) {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT id FROM episodes WHERE podcast_id = ? AND guid = ?`, ep.PodcastID, ep.GUID).Scan(&existing)
	switch {
	case err == nil:
		ep.ID = existing
	case errors.Is(err, sql.ErrNoRows):
		if ep.ID == "" {
			ep.ID = uuid.New().String()
		}
	default:
		return false, fmt.Errorf("lookup episode: %w", err)
	}

	now := time.Now().UTC()
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	ep.UpdatedAt = now
	if ep.EpisodeType == "" {
		ep.EpisodeType = models.EpisodeFull
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO episodes (`+episodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(podcast_id, guid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			link = excluded.link,
			keywords = excluded.keywords,
			media_url = excluded.media_url,
			media_type = excluded.media_type,
			length = excluded.length,
			pub_date = excluded.pub_date,
			duration = excluded.duration,
			explicit = excluded.explicit,
			episode_type = excluded.episode_type,
			season = excluded.season,
			number = excluded.number,
			cover = excluded.cover,
			updated_at = excluded.updated_at
	`,
		ep.ID, ep.PodcastID, ep.GUID, ep.Title, ep.Description, ep.Link, toJSON(ep.Keywords), ep.MediaURL, ep.MediaType,
		ep.Length, ep.PubDate.UTC(), ep.Duration, boolToInt(ep.Explicit), string(ep.EpisodeType), ep.Season, ep.Number, ep.Cover,
		ep.CreatedAt, ep.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert episode %q: %w", ep.GUID, err)
	}
	return existing == "", nil
}

func scanEpisode(row rowScanner) (*models.Episode, error) {
	var ep models.Episode
	var keywords, episodeType string
	var explicit int64

	err := row.Scan(
		&ep.ID, &ep.PodcastID, &ep.GUID, &ep.Title, &ep.Description, &ep.Link, &keywords, &ep.MediaURL, &ep.MediaType,
		&ep.Length, &ep.PubDate, &ep.Duration, &explicit, &episodeType, &ep.Season, &ep.Number, &ep.Cover,
		&ep.CreatedAt, &ep.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan episode: %w", err)
	}

	ep.Keywords = fromJSON(keywords)
	ep.Explicit = explicit != 0
	ep.EpisodeType = models.EpisodeType(episodeType)
	ep.PubDate = ep.PubDate.UTC()
	ep.CreatedAt = ep.CreatedAt.UTC()
	ep.UpdatedAt = ep.UpdatedAt.UTC()
	return &ep, nil
}
