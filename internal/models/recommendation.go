// ABOUTME: Recommendation model linking two podcasts with a similarity score
// ABOUTME: Edges are stored per source podcast; only the top-K per podcast are kept

package models

import "time"

// Recommendation is a scored similarity edge from PodcastID to RecommendedID.
type Recommendation struct {
	PodcastID     string
	RecommendedID string
	Score         float64
	CreatedAt     time.Time
}
