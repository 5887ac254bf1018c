// ABOUTME: Duplicate detection for freshly parsed podcasts and operator merges
// ABOUTME: Exact content-hash matches always count; title+host matching is opt-in

package canonical

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
	"golang.org/x/text/cases"
)

// ErrCycle is returned when a merge would make a podcast its own canonical.
var ErrCycle = storage.ErrCycle

// Lookup is the slice of the store the resolver reads.
type Lookup interface {
	FindByContentHash(ctx context.Context, hash, excludeID string) (*models.Podcast, error)
	FindByTitle(ctx context.Context, title, excludeID string) ([]*models.Podcast, error)
}

// Resolver decides whether a parsed podcast duplicates one already stored.
type Resolver struct {
	store      Lookup
	fuzzyMatch bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFuzzyMatch also treats podcasts with the same casefolded title and the same
// website host as duplicates.
func WithFuzzyMatch(enabled bool) Option {
	return func(r *Resolver) {
		r.fuzzyMatch = enabled
	}
}

// NewResolver creates a resolver over store.
func NewResolver(store Lookup, opts ...Option) *Resolver {
	r := &Resolver{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the ID of the podcast p duplicates, or "" when p is unique.
// p must carry the metadata and content hash of its latest parse.
func (r *Resolver) Resolve(ctx context.Context, p *models.Podcast) (string, error) {
	match, err := r.store.FindByContentHash(ctx, p.ContentHash, p.ID)
	switch {
	case err == nil:
		// A podcast already folded into p is not something p duplicates.
		if id := root(match); id != p.ID {
			return id, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return "", fmt.Errorf("find by content hash: %w", err)
	}

	if !r.fuzzyMatch || p.Title == "" || p.Link == "" {
		return "", nil
	}

	host := linkHost(p.Link)
	if host == "" {
		return "", nil
	}
	candidates, err := r.store.FindByTitle(ctx, p.Title, p.ID)
	if err != nil {
		return "", fmt.Errorf("find by title: %w", err)
	}
	// Casers carry state, so each call folds with its own.
	fold := cases.Fold()
	title := fold.String(strings.TrimSpace(p.Title))
	for _, c := range candidates {
		if fold.String(strings.TrimSpace(c.Title)) == title && linkHost(c.Link) == host {
			return c.ID, nil
		}
	}
	return "", nil
}

func root(p *models.Podcast) string {
	if p.CanonicalID != nil {
		return *p.CanonicalID
	}
	return p.ID
}

func linkHost(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Merger is the slice of the store Merge writes through.
type Merger interface {
	GetPodcast(ctx context.Context, id string) (*models.Podcast, error)
	MarkDuplicate(ctx context.Context, id, canonicalID string) error
}

// Merge folds duplicateID into the root of canonicalID's chain. Nothing is deleted:
// the duplicate keeps its episodes and drops out of listings.
func Merge(ctx context.Context, store Merger, duplicateID, canonicalID string) error {
	if duplicateID == canonicalID {
		return ErrCycle
	}
	if _, err := store.GetPodcast(ctx, duplicateID); err != nil {
		return fmt.Errorf("load duplicate: %w", err)
	}
	if _, err := store.GetPodcast(ctx, canonicalID); err != nil {
		return fmt.Errorf("load canonical: %w", err)
	}
	if err := store.MarkDuplicate(ctx, duplicateID, canonicalID); err != nil {
		return fmt.Errorf("merge %s into %s: %w", duplicateID, canonicalID, err)
	}
	return nil
}
