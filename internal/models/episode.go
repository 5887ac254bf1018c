// ABOUTME: Episode model representing one audio entry of a podcast
// ABOUTME: Episodes are keyed by (podcast, guid) and are never removed when they leave the feed

package models

import (
	"time"

	"github.com/google/uuid"
)

// EpisodeType follows the itunes:episodeType vocabulary.
type EpisodeType string

const (
	EpisodeFull    EpisodeType = "full"
	EpisodeTrailer EpisodeType = "trailer"
	EpisodeBonus   EpisodeType = "bonus"
)

// Episode represents one enclosure-bearing item of a podcast feed.
type Episode struct {
	ID          string
	PodcastID   string
	GUID        string
	Title       string
	Description string
	Link        string
	Keywords    []string
	MediaURL    string
	MediaType   string
	Length      int64
	PubDate     time.Time
	Duration    string
	Explicit    bool
	EpisodeType EpisodeType
	Season      int32
	Number      int32
	Cover       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEpisode creates an episode with a generated ID.
func NewEpisode(podcastID, guid string) *Episode {
	now := time.Now().UTC()
	return &Episode{
		ID:          uuid.New().String(),
		PodcastID:   podcastID,
		GUID:        guid,
		EpisodeType: EpisodeFull,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
