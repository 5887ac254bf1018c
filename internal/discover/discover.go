// ABOUTME: Finds the podcast feed behind a show page or feed URL for the add command
// ABOUTME: Only feeds with playable episodes qualify; iTunes-tagged feeds win ties

package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/harper/podroll/internal/fetch"
	"github.com/harper/podroll/internal/parse"
	"github.com/harper/podroll/internal/xmlpath"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// probePaths are tried under the show's own path and then under the site root.
var probePaths = []string{
	"/podcast.xml",
	"/podcast.rss",
	"/feed/podcast",
	"/podcast/feed",
	"/podcast/rss",
	"/itunes.xml",
	"/episodes.rss",
	"/feed.xml",
	"/rss.xml",
	"/feed",
	"/rss",
}

var (
	ErrInvalidURL  = errors.New("invalid URL")
	ErrNoFeedFound = errors.New("no podcast feed found at URL")
	// ErrNotPodcast means feeds were found but none carries audio or video episodes.
	ErrNotPodcast = errors.New("feed has no playable episodes")
)

// DiscoveredFeed is a verified podcast feed.
type DiscoveredFeed struct {
	URL      string
	Title    string
	Episodes int
	// ITunes is set when the feed carries itunes: channel tags.
	ITunes bool
}

// Discoverer finds feeds using a shared fetcher.
type Discoverer struct {
	fetcher *fetch.Fetcher
}

// New creates a discoverer.
func New(fetcher *fetch.Fetcher) *Discoverer {
	return &Discoverer{fetcher: fetcher}
}

// search tracks what a discovery run has verified so far.
type search struct {
	tried    map[string]bool
	best     *DiscoveredFeed
	sawFeeds bool
}

// offer records a verified feed. It reports true once an iTunes feed is found,
// since nothing later can beat it.
func (s *search) offer(f *DiscoveredFeed) bool {
	if f == nil {
		return false
	}
	s.sawFeeds = true
	if f.Episodes == 0 {
		return false
	}
	if s.best == nil || (f.ITunes && !s.best.ITunes) {
		s.best = f
	}
	return s.best.ITunes
}

// Discover returns the podcast feed for inputURL. The URL itself is tried first, then
// feed links on the page, then well known podcast feed paths.
func (d *Discoverer) Discover(ctx context.Context, inputURL string) (*DiscoveredFeed, error) {
	base, err := url.Parse(strings.TrimSpace(inputURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: need an http(s) URL with a host", ErrInvalidURL)
	}
	base.Fragment = ""

	s := &search{tried: map[string]bool{base.String(): true}}
	feed, body, err := d.tryFeed(ctx, base.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if s.offer(feed) {
		return s.best, nil
	}

	if feed == nil {
		for _, c := range pageCandidates(body, base) {
			if s.tried[c.URL] {
				continue
			}
			s.tried[c.URL] = true
			found, _, err := d.tryFeed(ctx, c.URL)
			if err != nil {
				continue
			}
			if found != nil && found.Title == "" {
				found.Title = c.Title
			}
			if s.offer(found) {
				return s.best, nil
			}
		}
	}
	if s.best != nil {
		return s.best, nil
	}

	for _, u := range probeURLs(base) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.tried[u] {
			continue
		}
		s.tried[u] = true
		found, _, err := d.tryFeed(ctx, u)
		if err != nil {
			continue
		}
		if s.offer(found) {
			return s.best, nil
		}
	}
	if s.best != nil {
		return s.best, nil
	}

	if s.sawFeeds {
		return nil, ErrNotPodcast
	}
	return nil, ErrNoFeedFound
}

// tryFeed fetches feedURL. A nil feed with a nil error means the body is not a feed;
// the body is returned for page scanning.
func (d *Discoverer) tryFeed(ctx context.Context, feedURL string) (*DiscoveredFeed, []byte, error) {
	result, err := d.fetcher.Fetch(ctx, feedURL, "", "")
	if err != nil {
		return nil, nil, err
	}
	if xmlpath.FeedKind(result.Body) == xmlpath.KindUnknown {
		return nil, result.Body, nil
	}

	found := &DiscoveredFeed{URL: feedURL, ITunes: hasITunes(result.Body)}
	parsed, err := parse.NewParser().Parse(result.Body)
	switch {
	case err == nil:
		found.Title = parsed.Title
		found.Episodes = len(parsed.Items)
	case errors.Is(err, parse.ErrInvalidXML):
		return nil, result.Body, nil
	}
	return found, result.Body, nil
}

func hasITunes(body []byte) bool {
	f, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	return err == nil && f.ITunesExt != nil
}

// candidate is a feed URL named by a page.
type candidate struct {
	URL   string
	Title string
	// podcast is set when the link says it is one.
	podcast bool
}

// pageCandidates returns feed URLs from <link rel="alternate"> tags and from anchors
// that look like feed addresses. Links labelled as podcasts sort first.
func pageCandidates(body []byte, base *url.URL) []candidate {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var out []candidate
	seen := make(map[string]bool)
	add := func(href, title, kind string) {
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		if seen[u.String()] {
			return
		}
		seen[u.String()] = true
		label := strings.ToLower(title + " " + kind + " " + u.Path)
		out = append(out, candidate{
			URL:     u.String(),
			Title:   strings.TrimSpace(title),
			podcast: strings.Contains(label, "podcast") || strings.Contains(label, "itunes"),
		})
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "link":
				if strings.EqualFold(attr(n, "rel"), "alternate") && isFeedType(attr(n, "type")) && attr(n, "href") != "" {
					add(attr(n, "href"), attr(n, "title"), attr(n, "type"))
				}
			case "a":
				if href := attr(n, "href"); looksLikeFeed(href) {
					add(href, text(n), "")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	slices.SortStableFunc(out, func(a, b candidate) int {
		switch {
		case a.podcast == b.podcast:
			return 0
		case a.podcast:
			return -1
		default:
			return 1
		}
	})
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isFeedType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "xml")
}

// looksLikeFeed matches subscribe links such as feeds.example.com/show or /show.rss.
func looksLikeFeed(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || href == "" {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.HasPrefix(strings.ToLower(u.Hostname()), "feeds.") ||
		strings.HasSuffix(p, ".rss") ||
		strings.HasSuffix(p, "/podcast.xml") ||
		strings.HasSuffix(p, "/feed/podcast")
}

// probeURLs lists probe targets under the show path first, then under the site root.
func probeURLs(base *url.URL) []string {
	dirs := []string{strings.TrimSuffix(path.Clean("/"+base.Path), "/")}
	if dirs[0] != "" {
		dirs = append(dirs, "")
	}

	var out []string
	for _, dir := range dirs {
		for _, p := range probePaths {
			u := url.URL{Scheme: base.Scheme, Host: base.Host, Path: dir + p}
			out = append(out, u.String())
		}
	}
	return out
}
