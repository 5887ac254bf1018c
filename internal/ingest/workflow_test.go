// ABOUTME: Integration test for the full subscription workflow
// ABOUTME: Imports OPML, crawls a batch, rebuilds recommendations and exports OPML again

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/harper/podroll/internal/logging"
	"github.com/harper/podroll/internal/opml"
	"github.com/harper/podroll/internal/recommend"
	"github.com/harper/podroll/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	systems, _ := feedServer(t, staticBody(fmt.Sprintf(showFeed, "Systems Talk")), "")
	hour, _ := feedServer(t, staticBody(fmt.Sprintf(showFeed, "Systems Hour")), "")
	mirror, _ := feedServer(t, staticBody(fmt.Sprintf(showFeed, "Systems Talk")), "")

	subscriptions := fmt.Sprintf(`<opml version="2.0"><body>
<outline xmlUrl="%s"/>
<outline xmlUrl="%s"/>
<outline xmlUrl="%s"/>
</body></opml>`, systems.URL, hour.URL, mirror.URL)

	n, err := f.in.ImportOPML(ctx, []byte(subscriptions))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// One worker keeps duplicate detection ordered.
	report, err := f.in.Batch(ctx, BatchOptions{Workers: 1, LockPath: filepath.Join(t.TempDir(), "crawl.lock")})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 4, report.Episodes)

	talk, err := f.store.GetPodcastByRSS(ctx, systems.URL)
	require.NoError(t, err)
	copied, err := f.store.GetPodcastByRSS(ctx, mirror.URL)
	require.NoError(t, err)
	assert.NotEqual(t, talk.IsDuplicate(), copied.IsDuplicate(), "exactly one copy should be folded")

	summary, err := recommend.Run(ctx, f.store, recommend.Options{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Podcasts)
	assert.Equal(t, 2, summary.Edges)

	listed, err := f.store.ListActive(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	recs, err := f.store.Recommendations(ctx, listed[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, listed[1].ID, recs[0].RecommendedID)

	doc := opml.NewDocument("podroll export")
	for _, p := range listed {
		var folder string
		if len(p.Categories) > 0 {
			folder = p.Categories[0]
		}
		require.NoError(t, doc.AddFeed(p.RSS, p.DisplayName(), folder))
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))

	exported := slices.Collect(opml.Feeds(buf.Bytes()))
	assert.Len(t, exported, 2)
	assert.Contains(t, exported, hour.URL)

	// Re-importing the export adds nothing.
	n, err = f.in.ImportOPML(ctx, buf.Bytes())
	require.NoError(t, err)
	assert.Zero(t, n)
}
