// ABOUTME: Per-podcast ingest: lease, conditional fetch, parse, dedupe, persist, reschedule
// ABOUTME: Every outcome is recorded on the podcast so the scheduler can react to it

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harper/podroll/internal/canonical"
	"github.com/harper/podroll/internal/fetch"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/parse"
	"github.com/harper/podroll/internal/schedule"
	"github.com/harper/podroll/internal/storage"
)

// DefaultLeaseTTL bounds how long a crashed worker can block a podcast.
const DefaultLeaseTTL = 10 * time.Minute

// Result describes one ingest run.
type Result struct {
	Outcome     models.ParserError
	Inserted    int
	Updated     int
	Failed      int
	Skipped     int
	CanonicalID string
}

// Ingester runs podcasts through the fetch-parse-store pipeline.
type Ingester struct {
	store    storage.Store
	fetcher  *fetch.Fetcher
	resolver *canonical.Resolver
	policy   schedule.Policy
	logger   *slog.Logger
	owner    string
	leaseTTL time.Duration
	now      func() time.Time
	rand     schedule.Rand
	parsers  sync.Pool
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) {
		in.logger = logger
	}
}

// WithPolicy sets the scheduling policy.
func WithPolicy(policy schedule.Policy) Option {
	return func(in *Ingester) {
		in.policy = policy
	}
}

// WithResolver sets the duplicate resolver.
func WithResolver(r *canonical.Resolver) Option {
	return func(in *Ingester) {
		in.resolver = r
	}
}

// WithLeaseTTL sets how long a podcast stays claimed by this ingester.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(in *Ingester) {
		if ttl > 0 {
			in.leaseTTL = ttl
		}
	}
}

// WithClock sets the time source for scheduling.
func WithClock(now func() time.Time) Option {
	return func(in *Ingester) {
		in.now = now
	}
}

// WithRand sets the jitter source. nil disables jitter.
func WithRand(r schedule.Rand) Option {
	return func(in *Ingester) {
		in.rand = r
	}
}

// New creates an ingester. The lease owner is unique per ingester.
func New(store storage.Store, fetcher *fetch.Fetcher, opts ...Option) *Ingester {
	host, _ := os.Hostname()
	in := &Ingester{
		store:    store,
		fetcher:  fetcher,
		resolver: canonical.NewResolver(store),
		policy:   schedule.DefaultPolicy(),
		logger:   slog.Default(),
		owner:    fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.New().String()[:8]),
		leaseTTL: DefaultLeaseTTL,
		now:      time.Now,
		rand:     rand.Float64,
	}
	in.parsers.New = func() any { return parse.NewParser() }
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run ingests one podcast. force skips the HTTP validators and the content hash
// comparison. Returns storage.ErrLeaseHeld when another worker owns the podcast.
func (in *Ingester) Run(ctx context.Context, p *models.Podcast, force bool) (*Result, error) {
	if err := in.store.AcquireLease(ctx, p.ID, in.owner, in.leaseTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := in.store.ReleaseLease(context.WithoutCancel(ctx), p.ID, in.owner); err != nil {
			in.logger.Warn("release lease failed", "podcast", p.ID, "error", err)
		}
	}()

	// The caller's copy may predate another worker's commit.
	fresh, err := in.store.GetPodcast(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload podcast: %w", err)
	}
	*p = *fresh

	log := in.logger.With("podcast", p.ID, "rss", p.RSS)

	if p.CanonicalID != nil {
		log.Debug("podcast is merged, not crawling", "canonical", *p.CanonicalID)
		return &Result{Outcome: models.ParserErrorDuplicate, CanonicalID: *p.CanonicalID}, nil
	}

	etag, lastModified := p.ETag, p.LastModified
	if force {
		etag, lastModified = "", ""
	}

	fetched, err := in.fetcher.Fetch(ctx, p.RSS, etag, lastModified)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		outcome := classifyFetch(err)
		log.Info("fetch failed", "outcome", outcome, "error", err)
		return in.record(ctx, p, outcome)
	}
	if fetched.ETag != "" || fetched.LastModified != "" {
		p.ETag, p.LastModified = fetched.ETag, fetched.LastModified
	}

	parser := in.parsers.Get().(*parse.Parser)
	feed, err := parser.Parse(fetched.Body)
	in.parsers.Put(parser)
	if err != nil {
		outcome := classifyParse(err)
		log.Info("parse failed", "outcome", outcome, "error", err)
		return in.record(ctx, p, outcome)
	}

	hash := feed.ContentHash()
	if !force && hash == p.ContentHash {
		log.Debug("content unchanged")
		res, err := in.record(ctx, p, models.ParserErrorNotModified)
		if res != nil {
			res.Skipped = feed.Skipped
		}
		return res, err
	}

	feed.Apply(p)
	canonicalID, err := in.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("resolve duplicate: %w", err)
	}
	if canonicalID != "" {
		return in.duplicate(ctx, p, canonicalID, log)
	}

	in.policy.Next(p, models.ParserErrorNone, newest(feed.PubDates(), schedule.HistorySize), in.now(), in.rand)
	applied, err := in.store.ApplyFeed(ctx, storage.FeedUpdate{Podcast: p, Episodes: feed.Episodes(p.ID)})
	if err != nil {
		return nil, fmt.Errorf("apply feed: %w", err)
	}
	if applied.DuplicateOf != "" {
		in.policy.Next(p, models.ParserErrorDuplicate, nil, in.now(), in.rand)
		p.CanonicalID = &applied.DuplicateOf
		log.Info("podcast is a duplicate", "outcome", models.ParserErrorDuplicate, "canonical", applied.DuplicateOf)
		return &Result{Outcome: models.ParserErrorDuplicate, CanonicalID: applied.DuplicateOf}, nil
	}

	log.Info("podcast updated",
		"outcome", "ok",
		"inserted", applied.Inserted,
		"updated", applied.Updated,
		"failed", applied.Failed,
		"skipped", feed.Skipped,
	)
	return &Result{
		Outcome:  models.ParserErrorNone,
		Inserted: applied.Inserted,
		Updated:  applied.Updated,
		Failed:   applied.Failed,
		Skipped:  feed.Skipped,
	}, nil
}

// duplicate folds p into canonicalID. The merged state reaches the store only
// together with the canonical pointer.
func (in *Ingester) duplicate(ctx context.Context, p *models.Podcast, canonicalID string, log *slog.Logger) (*Result, error) {
	if err := in.store.MarkDuplicate(ctx, p.ID, canonicalID); err != nil {
		return nil, fmt.Errorf("mark duplicate: %w", err)
	}
	in.policy.Next(p, models.ParserErrorDuplicate, nil, in.now(), in.rand)
	p.CanonicalID = &canonicalID
	log.Info("podcast is a duplicate", "outcome", models.ParserErrorDuplicate, "canonical", canonicalID)
	return &Result{Outcome: models.ParserErrorDuplicate, CanonicalID: canonicalID}, nil
}

// record stores a run that wrote no episodes.
func (in *Ingester) record(ctx context.Context, p *models.Podcast, outcome models.ParserError) (*Result, error) {
	history, err := in.store.RecentPubDates(ctx, p.ID, schedule.HistorySize)
	if err != nil {
		return nil, err
	}
	in.policy.Next(p, outcome, history, in.now(), in.rand)
	if err := in.store.RecordOutcome(ctx, p); err != nil {
		return nil, err
	}
	return &Result{Outcome: outcome}, nil
}

func classifyFetch(err error) models.ParserError {
	if errors.Is(err, fetch.ErrNotModified) {
		return models.ParserErrorNotModified
	}
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.Kind == fetch.Inaccessible {
		return models.ParserErrorInaccessible
	}
	return models.ParserErrorUnavailable
}

func classifyParse(err error) models.ParserError {
	if errors.Is(err, parse.ErrInvalidData) {
		return models.ParserErrorInvalidData
	}
	return models.ParserErrorInvalidRSS
}

// newest returns up to n of the latest dates.
func newest(dates []time.Time, n int) []time.Time {
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return b.Compare(a) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
