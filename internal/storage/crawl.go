// ABOUTME: Crawl bookkeeping: leases, poll outcomes, canonical pointers and due queues
// ABOUTME: Writes here touch schedule columns only and never podcast metadata

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harper/podroll/internal/models"
)

// maxCanonicalDepth bounds canonical chain walks.
const maxCanonicalDepth = 64

// AcquireLease claims podcastID for owner until now+ttl.
func (s *SQLiteStore) AcquireLease(ctx context.Context, podcastID, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcasts SET lease_owner = ?, lease_until = ?
		WHERE id = ? AND (lease_until IS NULL OR lease_until < ? OR lease_owner = ?)
	`, owner, now.Add(ttl), podcastID, now, owner)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM podcasts WHERE id = ?`, podcastID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("podcast %s: %w", podcastID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check podcast: %w", err)
	}
	return ErrLeaseHeld
}

// ReleaseLease drops owner's lease. Releasing a lease held by someone else is a no-op.
func (s *SQLiteStore) ReleaseLease(ctx context.Context, podcastID, owner string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE podcasts SET lease_owner = NULL, lease_until = NULL WHERE id = ? AND lease_owner = ?
	`, podcastID, owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// RecordOutcome stores the poll result and schedule of a podcast.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, p *models.Podcast) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcasts SET
			parser_error = ?, state = ?, active = ?, etag = ?, last_modified = ?,
			polled_at = ?, parsed_at = ?, next_poll_at = ?, poll_interval = ?, failure_count = ?,
			updated_at = ?
		WHERE id = ?
	`,
		string(p.ParserError), string(p.State), boolToInt(p.Active), p.ETag, p.LastModified,
		timeToSQL(p.PolledAt), timeToSQL(p.ParsedAt), timeToSQL(p.NextPollAt), int64(p.PollInterval/time.Second), p.FailureCount,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("podcast %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// MarkDuplicate points id at the root of canonicalID's chain, hides it from listings
// and re-points anything that was already folded into id. The merged state is
// written only when the pointer is.
func (s *SQLiteStore) MarkDuplicate(ctx context.Context, id, canonicalID string) error {
	if id == canonicalID {
		return ErrCycle
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM podcasts WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("podcast %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("check podcast: %w", err)
	}
	if _, err := markDuplicate(ctx, tx, id, canonicalID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit duplicate: %w", err)
	}
	return nil
}

// markDuplicate resolves the root of canonicalID and folds id into it. Returns the root.
func markDuplicate(ctx context.Context, tx *sql.Tx, id, canonicalID string) (string, error) {
	root := canonicalID
	for depth := 0; ; depth++ {
		if root == id || depth >= maxCanonicalDepth {
			return "", ErrCycle
		}
		var next sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT canonical_id FROM podcasts WHERE id = ?`, root).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("canonical %s: %w", root, ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("walk canonical chain: %w", err)
		}
		if !next.Valid {
			break
		}
		root = next.String
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE podcasts SET
			canonical_id = ?, parser_error = ?, state = ?, active = 0, next_poll_at = NULL,
			lease_owner = NULL, lease_until = NULL, updated_at = ?
		WHERE id = ?
	`, root, string(models.ParserErrorDuplicate), string(models.StateMerged), now, id); err != nil {
		return "", fmt.Errorf("mark duplicate: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE podcasts SET canonical_id = ?, updated_at = ? WHERE canonical_id = ?
	`, root, now, id); err != nil {
		return "", fmt.Errorf("re-point duplicates: %w", err)
	}
	return root, nil
}

// DueForPoll returns unleased podcasts whose next poll is at or before now. Never
// polled podcasts come first.
func (s *SQLiteStore) DueForPoll(ctx context.Context, now time.Time, limit int, includeExcluded bool) ([]*models.Podcast, error) {
	now = now.UTC()
	query := `
		SELECT ` + podcastColumns("") + ` FROM podcasts
		WHERE canonical_id IS NULL
			AND (next_poll_at IS NULL OR next_poll_at <= ?)
			AND (lease_until IS NULL OR lease_until < ?)
			AND (active = 1 OR ?)
		ORDER BY next_poll_at IS NOT NULL, next_poll_at, rowid`
	args := []any{now, now, boolToInt(includeExcluded)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due podcasts: %w", err)
	}
	return scanPodcasts(rows)
}
