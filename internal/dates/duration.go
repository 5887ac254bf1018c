// ABOUTME: Episode duration normalization for itunes:duration style values
// ABOUTME: Keeps at most three colon parts, drops out-of-range parts, converts to seconds

package dates

import (
	"fmt"
	"strconv"
	"strings"
)

// Duration normalizes a duration to plain seconds or H:MM:SS / M:SS. Parts beyond the
// third are discarded and parts outside 0-59 are dropped. Returns "" when nothing is
// salvageable.
func Duration(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil && !strings.Contains(s, ":") {
		if !(n >= 0 && n <= 1e9) {
			return ""
		}
		return strconv.Itoa(int(n))
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return ""
		}
		if n < 0 || n > 59 {
			continue
		}
		if len(kept) == 0 {
			kept = append(kept, strconv.Itoa(n))
		} else {
			kept = append(kept, fmt.Sprintf("%02d", n))
		}
	}
	return strings.Join(kept, ":")
}

// Seconds converts a normalized duration to total seconds, reading parts from the right.
func Seconds(duration string) int {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0
	}

	parts := strings.Split(duration, ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}
