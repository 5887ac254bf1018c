// ABOUTME: Bulk subscription import from OPML and single-feed add via discovery
// ABOUTME: Both insert-ignore by rss URL so repeated imports are harmless

package ingest

import (
	"context"
	"fmt"

	"github.com/harper/podroll/internal/coerce"
	"github.com/harper/podroll/internal/discover"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/opml"
)

// importChunk bounds how many URLs share one insert transaction.
const importChunk = 500

// ImportOPML inserts every feed URL in an OPML document and returns how many were new.
// URLs that are not http(s) are skipped.
func (in *Ingester) ImportOPML(ctx context.Context, data []byte) (int, error) {
	inserted := 0
	chunk := make([]string, 0, importChunk)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := in.store.CreatePodcasts(ctx, chunk)
		if err != nil {
			return fmt.Errorf("import podcasts: %w", err)
		}
		inserted += n
		chunk = chunk[:0]
		return nil
	}

	for raw := range opml.Feeds(data) {
		u := coerce.URL(raw)
		if u == "" {
			in.logger.Debug("skipping outline", "url", raw)
			continue
		}
		chunk = append(chunk, u)
		if len(chunk) == importChunk {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// Add discovers the feed behind siteURL and subscribes to it. created is false when
// the feed was already stored.
func (in *Ingester) Add(ctx context.Context, siteURL string) (p *models.Podcast, created bool, err error) {
	found, err := discover.New(in.fetcher).Discover(ctx, siteURL)
	if err != nil {
		return nil, false, err
	}
	n, err := in.store.CreatePodcasts(ctx, []string{found.URL})
	if err != nil {
		return nil, false, err
	}
	p, err = in.store.GetPodcastByRSS(ctx, found.URL)
	if err != nil {
		return nil, false, err
	}
	return p, n > 0, nil
}
