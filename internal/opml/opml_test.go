// ABOUTME: Test suite for OPML import streaming and grouped export
// ABOUTME: Covers nested outlines, malformed input and export round-trips through Feeds

package opml

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const nestedOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="News">
      <outline type="rss" text="A" xmlUrl="https://a.example.com/feed"/>
      <outline type="rss" text="B" xmlUrl="https://b.example.com/feed"/>
      <outline text="Deep">
        <outline type="rss" text="C" xmlUrl="https://c.example.com/feed"/>
        <outline type="rss" text="D" xmlUrl="https://d.example.com/feed"/>
        <outline text="Deeper">
          <outline type="rss" text="E" xmlUrl="https://e.example.com/feed"/>
          <outline type="rss" text="F" xmlUrl="https://f.example.com/feed"/>
        </outline>
      </outline>
    </outline>
    <outline text="Comedy">
      <outline type="rss" text="G" xmlUrl="https://g.example.com/feed"/>
      <outline type="rss" text="H" xmlUrl="https://h.example.com/feed"/>
      <outline type="rss" text="I" xmlUrl="https://i.example.com/feed"/>
    </outline>
    <outline type="rss" text="J" xmlUrl="https://j.example.com/feed"/>
    <outline type="rss" text="K" xmlUrl="https://k.example.com/feed"/>
    <outline text="Empty folder"/>
  </body>
</opml>`

func TestFeeds_Nested(t *testing.T) {
	urls := slices.Collect(Feeds([]byte(nestedOPML)))

	if len(urls) != 11 {
		t.Fatalf("Feeds() yielded %d urls, want 11: %v", len(urls), urls)
	}
	if !slices.Contains(urls, "https://f.example.com/feed") {
		t.Error("deeply nested outline missing")
	}
}

func TestFeeds_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"garbage", "this is not opml"},
		{"no body", `<opml version="2.0"><head><title>x</title></head></opml>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if urls := slices.Collect(Feeds([]byte(tt.data))); len(urls) != 0 {
				t.Errorf("Feeds() = %v, want none", urls)
			}
		})
	}
}

func TestFeeds_KeepsDuplicates(t *testing.T) {
	data := `<opml><body>
<outline xmlUrl="https://a.example.com/feed"/>
<outline xmlUrl="https://a.example.com/feed"/>
<outline xmlUrl="  "/>
</body></opml>`

	if urls := slices.Collect(Feeds([]byte(data))); len(urls) != 2 {
		t.Errorf("Feeds() = %v, want 2 urls", urls)
	}
}

func TestFeeds_StopsEarly(t *testing.T) {
	n := 0
	for range Feeds([]byte(nestedOPML)) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("consumed %d, want 3", n)
	}
}

func TestDocument_AddFeed(t *testing.T) {
	doc := NewDocument("Export")

	if err := doc.AddFeed("https://a.example.com/feed", "A", "Technology"); err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	if err := doc.AddFeed("https://b.example.com/feed", "B", "Technology"); err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	if err := doc.AddFeed("https://c.example.com/feed", "", ""); err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	if err := doc.AddFeed("https://a.example.com/feed", "A", "Comedy"); err == nil {
		t.Error("duplicate AddFeed() should fail")
	}

	if len(doc.Outlines) != 2 {
		t.Fatalf("len(Outlines) = %d, want 2", len(doc.Outlines))
	}
	if len(doc.Outlines[0].Children) != 2 {
		t.Errorf("Technology folder has %d feeds, want 2", len(doc.Outlines[0].Children))
	}

	feeds := doc.AllFeeds()
	if len(feeds) != 3 {
		t.Fatalf("AllFeeds() = %d, want 3", len(feeds))
	}
	if feeds[2].Title != "https://c.example.com/feed" {
		t.Errorf("untitled feed title = %q, want its url", feeds[2].Title)
	}
}

func TestDocument_WriteRoundTrip(t *testing.T) {
	doc := NewDocument("Export")
	_ = doc.AddFeed("https://a.example.com/feed", "A & B", "News")
	_ = doc.AddFeed("https://c.example.com/feed", "C", "")

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	urls := slices.Collect(Feeds(buf.Bytes()))
	slices.Sort(urls)
	want := []string{"https://a.example.com/feed", "https://c.example.com/feed"}
	if !slices.Equal(urls, want) {
		t.Errorf("round trip urls = %v, want %v", urls, want)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`version="2.0"`)) {
		t.Error("missing OPML version")
	}
}

func TestDocument_WriteFile(t *testing.T) {
	doc := NewDocument("Export")
	_ = doc.AddFeed("https://a.example.com/feed", "A", "")

	path := filepath.Join(t.TempDir(), "nested", "out.opml")
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if urls := slices.Collect(Feeds(data)); len(urls) != 1 {
		t.Errorf("Feeds() = %v, want 1 url", urls)
	}
}
