// ABOUTME: Tolerant date normalization for feed timestamps
// ABOUTME: Repairs timezone abbreviations and impossible offsets, always returns UTC

package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// zones maps abbreviations publishers use to fixed offsets. Go's layout parser accepts
// any abbreviation but only knows the offset of the local zone.
var zones = map[string]string{
	"GMT":  "+0000",
	"UT":   "+0000",
	"UTC":  "+0000",
	"Z":    "+0000",
	"EST":  "-0500",
	"EDT":  "-0400",
	"CST":  "-0600",
	"CDT":  "-0500",
	"MST":  "-0700",
	"MDT":  "-0600",
	"PST":  "-0800",
	"PDT":  "-0700",
	"BST":  "+0100",
	"CET":  "+0100",
	"CEST": "+0200",
}

var trailingOffset = regexp.MustCompile(`\s*([+-])(\d{2}):?(\d{2})$`)

var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
	"Mon, 2 January 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006",
	"2 Jan 2006",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse normalizes a feed timestamp. Unparseable input returns false; it never panics.
func Parse(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseEpoch(s); ok {
		return t, true
	}

	s = repairZone(s)
	for _, layouts := range [][]string{rfc822Layouts, isoLayouts} {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return FromTime(t)
			}
		}
	}

	return fallback(s)
}

// FromTime converts an aware time to UTC. The zero time is rejected.
func FromTime(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parseEpoch accepts integers of at least nine digits as unix seconds, or milliseconds
// when the value is too large to be seconds.
func parseEpoch(s string) (time.Time, bool) {
	if len(s) < 9 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e11 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// repairZone rewrites a trailing zone abbreviation as a numeric offset and drops
// numeric offsets that cannot exist, leaving the value to be read as UTC.
func repairZone(s string) string {
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		if off, ok := zones[strings.ToUpper(s[i+1:])]; ok {
			return s[:i+1] + off
		}
	}

	m := trailingOffset.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	hours, _ := strconv.Atoi(s[m[4]:m[5]])
	minutes, _ := strconv.Atoi(s[m[6]:m[7]])
	if hours > 14 || minutes > 59 {
		return strings.TrimSpace(s[:m[0]])
	}
	return s
}

func fallback(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return FromTime(parsed)
}
