// ABOUTME: Recommendation snapshot and replacement queries
// ABOUTME: The recommender reads one consistent snapshot and swaps the edge set atomically

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/podroll/internal/models"
)

// maxEpisodeTitles caps how many recent episode titles feed one podcast's document.
const maxEpisodeTitles = 20

// RecommendationInputs snapshots every parsed, non-duplicate podcast.
func (s *SQLiteStore) RecommendationInputs(ctx context.Context) ([]RecommendationInput, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, description, language, categories, keywords
		FROM podcasts
		WHERE canonical_id IS NULL AND title <> ''
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query podcasts: %w", err)
	}

	var inputs []RecommendationInput
	index := make(map[string]int)
	for rows.Next() {
		var in RecommendationInput
		var categories, keywords string
		if err := rows.Scan(&in.PodcastID, &in.Title, &in.Description, &in.Language, &categories, &keywords); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		in.Categories = fromJSON(categories)
		in.Keywords = fromJSON(keywords)
		index[in.PodcastID] = len(inputs)
		inputs = append(inputs, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT e.podcast_id, e.title
		FROM episodes e
		INNER JOIN podcasts p ON p.id = e.podcast_id
		WHERE p.canonical_id IS NULL AND e.title <> ''
		ORDER BY e.podcast_id, e.pub_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query episode titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var podcastID, title string
		if err := rows.Scan(&podcastID, &title); err != nil {
			return nil, fmt.Errorf("scan episode title: %w", err)
		}
		i, ok := index[podcastID]
		if !ok || len(inputs[i].EpisodeTitles) >= maxEpisodeTitles {
			continue
		}
		inputs[i].EpisodeTitles = append(inputs[i].EpisodeTitles, title)
	}
	return inputs, rows.Err()
}

// ReplaceRecommendations deletes every stored edge and inserts recs.
func (s *SQLiteStore) ReplaceRecommendations(ctx context.Context, recs []models.Recommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations`); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (podcast_id, recommended_id, score, created_at) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range recs {
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, r.PodcastID, r.RecommendedID, r.Score, created.UTC()); err != nil {
			return fmt.Errorf("insert recommendation %s -> %s: %w", r.PodcastID, r.RecommendedID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recommendations: %w", err)
	}
	return nil
}

// Recommendations returns podcastID's edges, best first.
func (s *SQLiteStore) Recommendations(ctx context.Context, podcastID string, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = 12
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT podcast_id, recommended_id, score, created_at
		FROM recommendations
		WHERE podcast_id = ?
		ORDER BY score DESC, recommended_id
		LIMIT ?
	`, podcastID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var r models.Recommendation
		if err := rows.Scan(&r.PodcastID, &r.RecommendedID, &r.Score, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
