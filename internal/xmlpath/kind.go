// ABOUTME: Feed dialect sniffing so callers know which element names to stream
// ABOUTME: Wraps gofeed's detector and falls back to every known tag when unsure

package xmlpath

import (
	"bytes"

	"github.com/mmcdole/gofeed"
)

// Kind is the syndication dialect of a document.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindRSS     Kind = "rss"
	KindAtom    Kind = "atom"
)

// FeedKind sniffs the dialect of a feed document.
func FeedKind(data []byte) Kind {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return KindRSS
	case gofeed.FeedTypeAtom:
		return KindAtom
	default:
		return KindUnknown
	}
}

// Tags returns the container and entry element names to stream for the dialect.
// An unknown dialect streams both families, which costs nothing on documents that
// only use one.
func (k Kind) Tags() (container, entries []string) {
	switch k {
	case KindRSS:
		return []string{"channel"}, []string{"item"}
	case KindAtom:
		return []string{"feed"}, []string{"entry"}
	default:
		return []string{"channel", "feed"}, []string{"item", "entry"}
	}
}
