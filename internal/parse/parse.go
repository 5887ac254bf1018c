// ABOUTME: Maps streamed RSS/Atom elements onto a normalized Feed aggregate
// ABOUTME: Coerces every field through ordered fallbacks and isolates per-item failures

package parse

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/harper/podroll/internal/coerce"
	"github.com/harper/podroll/internal/content"
	"github.com/harper/podroll/internal/dates"
	"github.com/harper/podroll/internal/xmlpath"
)

var (
	// ErrInvalidXML means the document has no parseable root element.
	ErrInvalidXML = xmlpath.ErrInvalidXML
	// ErrInvalidRSS means the document parsed but has no channel, no title or no items.
	ErrInvalidRSS = errors.New("invalid rss")
	// ErrInvalidData means the document has items but none carry the required fields.
	ErrInvalidData = errors.New("invalid data")
)

const (
	maxTitle    = 500
	maxName     = 255
	maxMimeType = 64
)

// mediaTypes covers enclosure extensions the platform mime table may not know.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".m4b":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// Parser maps feed documents to Feeds. It owns an xmlpath.Parser and its path
// cache, so each worker needs its own.
type Parser struct {
	xp  *xmlpath.Parser
	now func() time.Time
}

// NewParser creates a parser that rejects items dated after the current time.
func NewParser() *Parser {
	return &Parser{
		xp:  xmlpath.NewParser(),
		now: time.Now,
	}
}

// WithClock sets the time source used to reject future-dated items.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Parse reads a feed document. Items missing a guid, media URL or publication date,
// or with a non audio/video media type, are skipped and counted in Feed.Skipped.
func (p *Parser) Parse(data []byte) (*Feed, error) {
	containers, entries := xmlpath.FeedKind(data).Tags()
	isContainer := make(map[string]bool, len(containers))
	for _, c := range containers {
		isContainer[c] = true
	}

	feed := &Feed{Items: []Item{}}
	var channel *xmlpath.Element
	seen := make(map[string]bool)
	raw := 0
	now := p.now().UTC()

	for el, err := range p.xp.Iterate(data, append(containers, entries...)...) {
		if err != nil {
			return nil, err
		}

		if isContainer[el.Local()] {
			if channel == nil {
				channel = el
			}
			continue
		}

		raw++
		item, ok := p.item(el, now)
		if !ok || seen[item.GUID] {
			feed.Skipped++
			continue
		}
		seen[item.GUID] = true
		feed.Items = append(feed.Items, item)
	}
	// Items lost to broken markup count as skipped too.
	dropped := p.xp.Dropped()
	raw += dropped
	feed.Skipped += dropped

	if channel == nil {
		return nil, fmt.Errorf("%w: no channel or feed element", ErrInvalidRSS)
	}
	p.channel(channel, feed)
	if feed.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidRSS)
	}
	if raw == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidRSS)
	}
	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("%w: all %d items skipped", ErrInvalidData, raw)
	}
	return feed, nil
}

func (p *Parser) values(el *xmlpath.Element, paths map[string][]string, field string) []string {
	return p.xp.All(el, paths[field]...)
}

func (p *Parser) channel(el *xmlpath.Element, feed *Feed) {
	v := func(field string) []string { return p.values(el, feedPaths, field) }

	feed.Title = coerce.String(maxTitle, v("title")...)
	feed.Description = content.Markdownify(coerce.String(0, v("description")...))
	feed.Link = coerce.URL(v("link")...)
	feed.Language = coerce.Language(v("language")...)
	feed.Categories = coerce.Unique(v("categories")...)
	feed.Keywords = coerce.Split(v("keywords")...)
	feed.Owner = coerce.String(maxName, v("owner")...)
	feed.OwnerEmail = coerce.Email(v("owner_email")...)
	feed.Cover = coerce.URL(v("cover")...)
	feed.FundingURL = coerce.URL(v("funding")...)
	feed.Explicit = coerce.Bool(v("explicit")...)
}

func (p *Parser) item(el *xmlpath.Element, now time.Time) (Item, bool) {
	v := func(field string) []string { return p.values(el, itemPaths, field) }

	it := Item{
		GUID:     coerce.String(maxName, v("guid")...),
		MediaURL: coerce.URL(v("media_url")...),
	}
	if it.GUID == "" || it.MediaURL == "" {
		return it, false
	}

	it.MediaType = mediaType(coerce.String(maxMimeType, v("media_type")...), it.MediaURL)
	if it.MediaType == "" {
		return it, false
	}

	pub, ok := coerce.First(v("pub_date"), dates.Parse, coerce.Before(now)).Get()
	if !ok {
		return it, false
	}
	it.PubDate = pub

	it.Title = coerce.String(maxTitle, v("title")...)
	it.Description = content.Markdownify(coerce.String(0, v("description")...))
	it.Link = coerce.URL(v("link")...)
	it.Keywords = coerce.Split(v("keywords")...)
	it.Length = coerce.Size(v("length")...)
	it.Duration = duration(v("duration"))
	it.Explicit = coerce.Bool(v("explicit")...)
	it.EpisodeType = episodeType(v("episode_type"))
	it.Season = positive(coerce.Int32(v("season")...).Or(0))
	it.Number = positive(coerce.Int32(v("number")...).Or(0))
	it.Cover = coerce.URL(v("cover")...)
	return it, true
}

// mediaType normalizes the declared type or infers it from the URL extension.
// Only audio and video types are accepted.
func mediaType(declared, mediaURL string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	if t == "" {
		if u, err := url.Parse(mediaURL); err == nil {
			ext := strings.ToLower(path.Ext(u.Path))
			if known, ok := mediaTypes[ext]; ok {
				t = known
			} else if guessed := mime.TypeByExtension(ext); guessed != "" {
				t, _, _ = strings.Cut(guessed, ";")
			}
		}
	}

	if strings.HasPrefix(t, "audio/") || strings.HasPrefix(t, "video/") {
		return t
	}
	return ""
}

func duration(candidates []string) string {
	for _, c := range candidates {
		if d := dates.Duration(c); d != "" {
			return d
		}
	}
	return ""
}

func episodeType(candidates []string) string {
	for _, c := range candidates {
		switch t := strings.ToLower(strings.TrimSpace(c)); t {
		case "full", "trailer", "bonus":
			return t
		}
	}
	return "full"
}

func positive(n int32) int32 {
	if n < 0 {
		return 0
	}
	return n
}
