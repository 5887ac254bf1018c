// ABOUTME: Podcast model representing one subscribed feed and its crawl schedule
// ABOUTME: Tracks parsed metadata, content hash, canonical pointer and HTTP caching headers

package models

import (
	"time"

	"github.com/google/uuid"
)

// ParserError records why the most recent parse run did not update a podcast.
type ParserError string

const (
	ParserErrorNone         ParserError = ""
	ParserErrorDuplicate    ParserError = "duplicate"
	ParserErrorInaccessible ParserError = "inaccessible"
	ParserErrorInvalidData  ParserError = "invalid_data"
	ParserErrorInvalidRSS   ParserError = "invalid_rss"
	ParserErrorNotModified  ParserError = "not_modified"
	ParserErrorUnavailable  ParserError = "unavailable"
)

// Valid reports whether e is one of the known parser error values.
func (e ParserError) Valid() bool {
	switch e {
	case ParserErrorNone, ParserErrorDuplicate, ParserErrorInaccessible, ParserErrorInvalidData,
		ParserErrorInvalidRSS, ParserErrorNotModified, ParserErrorUnavailable:
		return true
	}
	return false
}

// Unrecoverable reports whether the error is a content failure that retrying will not fix.
func (e ParserError) Unrecoverable() bool {
	return e == ParserErrorInvalidRSS || e == ParserErrorInvalidData
}

// FetchFailure reports whether the error came from the fetch layer rather than parsing.
func (e ParserError) FetchFailure() bool {
	return e == ParserErrorInaccessible || e == ParserErrorUnavailable
}

// CrawlState is the scheduler state of a podcast.
type CrawlState string

const (
	StatePending      CrawlState = "pending"
	StateActive       CrawlState = "active"
	StateErrorBackoff CrawlState = "error_backoff"
	StateMerged       CrawlState = "merged"
)

// Podcast represents a podcast feed identified by its RSS URL.
type Podcast struct {
	ID          string
	RSS         string
	Title       string
	Slug        string
	Description string
	Link        string
	Language    string
	Categories  []string
	Keywords    []string
	Owner       string
	OwnerEmail  string
	Cover       string
	FundingURL  string
	Explicit    bool

	ContentHash string
	ParserError ParserError
	CanonicalID *string

	State        CrawlState
	Active       bool
	ETag         string
	LastModified string
	PolledAt     *time.Time
	ParsedAt     *time.Time
	NextPollAt   *time.Time
	PollInterval time.Duration
	FailureCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPodcast creates an unparsed podcast for the given RSS URL.
func NewPodcast(rss string) *Podcast {
	now := time.Now().UTC()
	return &Podcast{
		ID:        uuid.New().String(),
		RSS:       rss,
		State:     StatePending,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDuplicate reports whether the podcast has been folded into another podcast.
func (p *Podcast) IsDuplicate() bool {
	return p.CanonicalID != nil
}

// DisplayName returns the title, falling back to the RSS URL for unparsed podcasts.
func (p *Podcast) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.RSS
}
