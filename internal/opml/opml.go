// ABOUTME: OPML subscription import and export for podcast feed lists
// ABOUTME: Import streams xmlUrl attributes lazily; export groups podcasts into category folders

package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/podroll/internal/xmlpath"
)

// Feeds lazily yields the xmlUrl of every outline under body, at any depth.
// Nested outlines come out innermost first. Duplicates are kept and a document
// that cannot be parsed yields nothing.
func Feeds(data []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		p := xmlpath.NewParser()
		for el, err := range p.Iterate(data, "outline") {
			if err != nil {
				return
			}
			if !el.HasAncestor("body") {
				continue
			}
			url, ok := el.Attr("xmlUrl")
			if !ok {
				continue
			}
			if url = strings.TrimSpace(url); url == "" {
				continue
			}
			if !yield(url) {
				return
			}
		}
	}
}

// Document is an OPML export with podcasts grouped into category folders
type Document struct {
	Title    string
	Outlines []Outline
	feedURLs map[string]bool
}

// Outline is either a folder (with Children) or a feed (with XMLURL)
type Outline struct {
	Text     string
	Title    string
	Type     string
	XMLURL   string
	Children []Outline
}

// Feed is a flattened feed outline with its folder
type Feed struct {
	URL    string
	Title  string
	Folder string
}

type opmlXML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Title string `xml:"title"`
}

type bodyXML struct {
	Outlines []outlineXML `xml:"outline"`
}

type outlineXML struct {
	Text     string       `xml:"text,attr"`
	Title    string       `xml:"title,attr,omitempty"`
	Type     string       `xml:"type,attr,omitempty"`
	XMLURL   string       `xml:"xmlUrl,attr,omitempty"`
	Children []outlineXML `xml:"outline,omitempty"`
}

// NewDocument creates an empty export document
func NewDocument(title string) *Document {
	return &Document{
		Title:    title,
		Outlines: []Outline{},
		feedURLs: make(map[string]bool),
	}
}

// AddFeed adds a podcast feed under the category folder, creating the folder on first use.
// An empty category places the feed at the root. Adding the same URL twice is an error.
func (d *Document) AddFeed(url, title, category string) error {
	if d.feedURLs == nil {
		d.feedURLs = make(map[string]bool)
	}
	if d.feedURLs[url] {
		return fmt.Errorf("feed with URL %s already exists", url)
	}
	if title == "" {
		title = url
	}

	feed := Outline{
		Text:   title,
		Title:  title,
		Type:   "rss",
		XMLURL: url,
	}

	if category == "" {
		d.Outlines = append(d.Outlines, feed)
	} else {
		folder := d.folder(category)
		if folder == nil {
			d.Outlines = append(d.Outlines, Outline{Text: category})
			folder = &d.Outlines[len(d.Outlines)-1]
		}
		folder.Children = append(folder.Children, feed)
	}

	d.feedURLs[url] = true
	return nil
}

func (d *Document) folder(name string) *Outline {
	for i := range d.Outlines {
		if d.Outlines[i].Text == name && d.Outlines[i].XMLURL == "" {
			return &d.Outlines[i]
		}
	}
	return nil
}

// AllFeeds returns every feed in the document with its folder
func (d *Document) AllFeeds() []Feed {
	var feeds []Feed
	for _, o := range d.Outlines {
		if o.XMLURL != "" {
			feeds = append(feeds, Feed{URL: o.XMLURL, Title: o.Title, Folder: ""})
			continue
		}
		for _, c := range o.Children {
			feeds = append(feeds, Feed{URL: c.XMLURL, Title: c.Title, Folder: o.Text})
		}
	}
	return feeds
}

// Write renders the document as OPML 2.0
func (d *Document) Write(w io.Writer) error {
	doc := opmlXML{
		Version: "2.0",
		Head:    headXML{Title: d.Title},
		Body:    bodyXML{Outlines: make([]outlineXML, len(d.Outlines))},
	}
	for i, o := range d.Outlines {
		doc.Body.Outlines[i] = toXML(o)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}
	return nil
}

// WriteFile writes the document to path, creating parent directories
func (d *Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return d.Write(file)
}

func toXML(o Outline) outlineXML {
	x := outlineXML{
		Text:   o.Text,
		Title:  o.Title,
		Type:   o.Type,
		XMLURL: o.XMLURL,
	}
	for _, c := range o.Children {
		x.Children = append(x.Children, toXML(c))
	}
	return x
}
