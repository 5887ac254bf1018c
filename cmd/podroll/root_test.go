// ABOUTME: Tests for root command wiring and display helpers
// ABOUTME: Runs commands end to end against a temporary database and config

package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/opml"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567"},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelative(t *testing.T) {
	if got := relative(nil); got != "-" {
		t.Errorf("relative(nil) = %q, want -", got)
	}
	past := time.Now().Add(-3 * time.Hour)
	if got := relative(&past); !strings.Contains(got, "ago") {
		t.Errorf("relative(past) = %q, want something ago", got)
	}
}

func TestStateLabel(t *testing.T) {
	p := models.NewPodcast("https://example.com/feed.xml")
	p.State = models.StateActive
	p.Active = true
	if got := stateLabel(p); !strings.Contains(got, "active") {
		t.Errorf("stateLabel() = %q", got)
	}

	p.Active = false
	if got := stateLabel(p); !strings.Contains(got, "excluded") {
		t.Errorf("stateLabel(excluded) = %q", got)
	}

	p.Active = true
	p.ParserError = models.ParserErrorUnavailable
	if got := stateLabel(p); !strings.Contains(got, "unavailable") {
		t.Errorf("stateLabel(errored) = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Errorf("renderTable() = %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("renderTable() with no headers should be empty")
	}
}

// run executes the root command against an isolated home directory.
func run(t *testing.T, dir string, args ...string) error {
	t.Helper()
	full := append([]string{
		"--db", filepath.Join(dir, "podroll.db"),
		"--config", filepath.Join(dir, "config.toml"),
		"--log-level", "error",
	}, args...)
	rootCmd.SetArgs(full)
	return rootCmd.Execute()
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func TestImportAndExport(t *testing.T) {
	dir := isolate(t)

	doc := opml.NewDocument("subs")
	_ = doc.AddFeed("https://a.example.com/feed.xml", "A", "News")
	_ = doc.AddFeed("https://b.example.com/feed.xml", "B", "")
	in := filepath.Join(dir, "subs.opml")
	if err := doc.WriteFile(in); err != nil {
		t.Fatal(err)
	}

	if err := run(t, dir, "import-opml", in); err != nil {
		t.Fatalf("import-opml error = %v", err)
	}

	out := filepath.Join(dir, "export.opml")
	if err := run(t, dir, "export", "--output", out); err != nil {
		t.Fatalf("export error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	urls := slices.Sorted(opml.Feeds(data))
	want := []string{"https://a.example.com/feed.xml", "https://b.example.com/feed.xml"}
	if !slices.Equal(urls, want) {
		t.Errorf("exported %v, want %v", urls, want)
	}
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	if err := run(t, dir, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if err := run(t, dir, "config", "init"); err == nil {
		t.Error("second config init without --force should fail")
	}
	if err := run(t, dir, "status"); err != nil {
		t.Errorf("status with generated config error = %v", err)
	}
}
