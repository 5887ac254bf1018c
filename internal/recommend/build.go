// ABOUTME: Similarity graph over podcast keyword vectors and categories
// ABOUTME: Pairs are only scored inside shared keyword or category buckets

package recommend

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/harper/podroll/internal/coerce"
	"github.com/harper/podroll/internal/content"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
)

const (
	DefaultKeywords  = 30
	DefaultTopK      = 12
	DefaultMaxBucket = 1000

	categoryWeight = 0.5
)

// Options tunes a recommendation build. Zero values take the defaults.
type Options struct {
	Keywords  int // keywords kept per podcast
	TopK      int // edges kept per podcast
	MaxBucket int // buckets larger than this are too common to signal similarity
}

func (o Options) withDefaults() Options {
	if o.Keywords <= 0 {
		o.Keywords = DefaultKeywords
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxBucket <= 0 {
		o.MaxBucket = DefaultMaxBucket
	}
	return o
}

type profile struct {
	id         string
	weights    map[string]float64
	norm       float64
	categories map[string]struct{}
}

// Text joins everything the recommender knows about a podcast into one document.
func Text(in storage.RecommendationInput) string {
	parts := make([]string, 0, 3+len(in.EpisodeTitles))
	parts = append(parts, in.Title, content.CleanText(in.Description), strings.Join(in.Keywords, " "))
	parts = append(parts, in.EpisodeTitles...)
	return strings.Join(parts, "\n")
}

func newProfile(in storage.RecommendationInput, n int, fold cases.Caser) profile {
	p := profile{
		id:         in.PodcastID,
		weights:    make(map[string]float64),
		categories: make(map[string]struct{}),
	}

	terms := countTerms(Text(in), coerce.Language(in.Language))
	if len(terms) > n {
		terms = terms[:n]
	}
	for _, t := range terms {
		w := float64(t.count)
		p.weights[t.term] = w
		p.norm += w * w
	}
	p.norm = math.Sqrt(p.norm)

	for _, c := range in.Categories {
		if c = strings.TrimSpace(fold.String(c)); c != "" {
			p.categories[c] = struct{}{}
		}
	}
	return p
}

func cosine(a, b profile) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a.weights, b.weights
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for term, w := range small {
		dot += w * large[term]
	}
	return dot / (a.norm * b.norm)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for c := range a {
		if _, ok := b[c]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// Score is the similarity of two podcasts in [0, 1.5].
func score(a, b profile) float64 {
	return cosine(a, b) + categoryWeight*jaccard(a.categories, b.categories)
}

// Build computes the top-K recommendations for every input. The result is
// deterministic: ties in score are broken by recommended podcast ID.
func Build(inputs []storage.RecommendationInput, opts Options) []models.Recommendation {
	opts = opts.withDefaults()

	sorted := slices.Clone(inputs)
	slices.SortFunc(sorted, func(a, b storage.RecommendationInput) int {
		return strings.Compare(a.PodcastID, b.PodcastID)
	})

	fold := cases.Fold()
	profiles := make([]profile, len(sorted))
	buckets := make(map[string][]int)
	for i, in := range sorted {
		profiles[i] = newProfile(in, opts.Keywords, fold)
		for term := range profiles[i].weights {
			buckets["k:"+term] = append(buckets["k:"+term], i)
		}
		for c := range profiles[i].categories {
			buckets["c:"+c] = append(buckets["c:"+c], i)
		}
	}

	edges := make([][]models.Recommendation, len(profiles))
	seen := make([]int, len(profiles))
	for i := range seen {
		seen[i] = -1
	}

	for i := range profiles {
		for key := range profiles[i].bucketKeys() {
			members := buckets[key]
			if len(members) > opts.MaxBucket {
				continue
			}
			for _, j := range members {
				// Each pair is scored once, from its lower index.
				if j <= i || seen[j] == i {
					continue
				}
				seen[j] = i

				s := score(profiles[i], profiles[j])
				if s <= 0 {
					continue
				}
				edges[i] = append(edges[i], models.Recommendation{PodcastID: profiles[i].id, RecommendedID: profiles[j].id, Score: s})
				edges[j] = append(edges[j], models.Recommendation{PodcastID: profiles[j].id, RecommendedID: profiles[i].id, Score: s})
			}
		}
	}

	var recs []models.Recommendation
	for _, list := range edges {
		slices.SortFunc(list, func(a, b models.Recommendation) int {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			return strings.Compare(a.RecommendedID, b.RecommendedID)
		})
		if len(list) > opts.TopK {
			list = list[:opts.TopK]
		}
		recs = append(recs, list...)
	}
	return recs
}

func (p profile) bucketKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(p.weights)+len(p.categories))
	for term := range p.weights {
		keys["k:"+term] = struct{}{}
	}
	for c := range p.categories {
		keys["c:"+c] = struct{}{}
	}
	return keys
}
