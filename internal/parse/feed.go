// ABOUTME: Transient Feed and Item aggregates produced by one parse run
// ABOUTME: Computes the content hash and maps parsed values onto stored podcast records

package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gosimple/slug"

	"github.com/harper/podroll/internal/models"
)

// Feed is the normalized result of parsing one fetched document. It is consumed
// immediately by the store and never persisted as is.
type Feed struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	Language    string   `json:"language"`
	Categories  []string `json:"categories"`
	Keywords    []string `json:"keywords"`
	Owner       string   `json:"owner"`
	OwnerEmail  string   `json:"owner_email"`
	Cover       string   `json:"cover"`
	FundingURL  string   `json:"funding_url"`
	Explicit    bool     `json:"explicit"`
	Items       []Item   `json:"items"`

	// Skipped counts items dropped for missing or invalid required fields.
	Skipped int `json:"-"`
}

// Item is one episode entry of a Feed.
type Item struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Keywords    []string  `json:"keywords"`
	MediaURL    string    `json:"media_url"`
	MediaType   string    `json:"media_type"`
	Length      int64     `json:"length"`
	PubDate     time.Time `json:"pub_date"`
	Duration    string    `json:"duration"`
	Explicit    bool      `json:"explicit"`
	EpisodeType string    `json:"episode_type"`
	Season      int32     `json:"season"`
	Number      int32     `json:"number"`
	Cover       string    `json:"cover"`
}

// ContentHash returns the hex sha256 of the feed's canonical JSON encoding. Two
// parses of the same normalized payload always hash equal.
func (f *Feed) ContentHash() string {
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Apply copies feed-level metadata onto p and stamps the content hash.
func (f *Feed) Apply(p *models.Podcast) {
	p.Title = f.Title
	p.Slug = slug.Make(f.Title)
	p.Description = f.Description
	p.Link = f.Link
	p.Language = f.Language
	p.Categories = f.Categories
	p.Keywords = f.Keywords
	p.Owner = f.Owner
	p.OwnerEmail = f.OwnerEmail
	p.Cover = f.Cover
	p.FundingURL = f.FundingURL
	p.Explicit = f.Explicit
	p.ContentHash = f.ContentHash()
}

// Episodes converts items to episode records owned by podcastID.
func (f *Feed) Episodes(podcastID string) []models.Episode {
	episodes := make([]models.Episode, 0, len(f.Items))
	for _, it := range f.Items {
		ep := models.NewEpisode(podcastID, it.GUID)
		ep.Title = it.Title
		ep.Description = it.Description
		ep.Link = it.Link
		ep.Keywords = it.Keywords
		ep.MediaURL = it.MediaURL
		ep.MediaType = it.MediaType
		ep.Length = it.Length
		ep.PubDate = it.PubDate
		ep.Duration = it.Duration
		ep.Explicit = it.Explicit
		ep.EpisodeType = models.EpisodeType(it.EpisodeType)
		ep.Season = it.Season
		ep.Number = it.Number
		ep.Cover = it.Cover
		episodes = append(episodes, *ep)
	}
	return episodes
}

// PubDates returns item publication dates in feed order.
func (f *Feed) PubDates() []time.Time {
	out := make([]time.Time, 0, len(f.Items))
	for _, it := range f.Items {
		out = append(out, it.PubDate)
	}
	return out
}
