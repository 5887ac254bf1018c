// ABOUTME: Bounded-concurrency crawl of every due podcast
// ABOUTME: A file lock keeps two batches from overlapping; each podcast commits on its own

package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrBatchRunning is returned when another process holds the crawl lock.
var ErrBatchRunning = errors.New("another crawl batch is running")

// BatchOptions selects and paces a crawl batch.
type BatchOptions struct {
	Limit           int
	Workers         int
	IncludeExcluded bool
	Force           bool
	// LockPath names the lock file; empty skips locking.
	LockPath string
}

// Report tallies a batch by outcome.
type Report struct {
	Due        int
	Updated    int
	Unchanged  int
	Duplicates int
	Errored    int
	Leased     int
	Episodes   int
}

// Batch crawls podcasts that are due now. Per-podcast failures are counted, not returned;
// the error is non-nil only when the batch could not run or ctx ended.
func (in *Ingester) Batch(ctx context.Context, opts BatchOptions) (*Report, error) {
	if opts.LockPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LockPath), 0755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		lock := flock.New(opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire crawl lock: %w", err)
		}
		if !locked {
			return nil, ErrBatchRunning
		}
		defer lock.Unlock()
	}

	due, err := in.store.DueForPoll(ctx, in.now(), opts.Limit, opts.IncludeExcluded)
	if err != nil {
		return nil, fmt.Errorf("select due podcasts: %w", err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	report := &Report{Due: len(due)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range due {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := in.Run(gctx, p, opts.Force)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, storage.ErrLeaseHeld):
				report.Leased++
			case err != nil:
				if gctx.Err() != nil {
					return err
				}
				report.Errored++
				in.logger.Error("ingest failed", "podcast", p.ID, "rss", p.RSS, "error", err)
			default:
				report.add(res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (r *Report) add(res *Result) {
	switch res.Outcome {
	case models.ParserErrorNone:
		r.Updated++
		r.Episodes += res.Inserted
	case models.ParserErrorNotModified:
		r.Unchanged++
	case models.ParserErrorDuplicate:
		r.Duplicates++
	default:
		r.Errored++
	}
}
