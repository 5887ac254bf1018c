// ABOUTME: Periodic recommendation batch over a point-in-time store snapshot
// ABOUTME: Replaces the whole edge set in one write so readers never see a half-built graph

package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/podroll/internal/logging"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
)

// Store is the slice of storage the recommender reads and writes.
type Store interface {
	RecommendationInputs(ctx context.Context) ([]storage.RecommendationInput, error)
	ReplaceRecommendations(ctx context.Context, recs []models.Recommendation) error
}

// Summary reports what a run produced.
type Summary struct {
	Podcasts int
	Edges    int
	Duration time.Duration
}

// Run snapshots the store, rebuilds every podcast's recommendations and persists them.
func Run(ctx context.Context, store Store, opts Options, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	start := time.Now()

	inputs, err := store.RecommendationInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recommendation inputs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs := Build(inputs, opts)
	now := time.Now().UTC()
	for i := range recs {
		recs[i].CreatedAt = now
	}

	if err := store.ReplaceRecommendations(ctx, recs); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}

	summary := &Summary{Podcasts: len(inputs), Edges: len(recs), Duration: time.Since(start)}
	logger.Info("recommendations rebuilt", "podcasts", summary.Podcasts, "edges", summary.Edges, "duration", summary.Duration)
	return summary, nil
}
