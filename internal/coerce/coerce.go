// ABOUTME: Typed field coercion for untrusted feed values with safe defaults
// ABOUTME: Strings, truthy flags, bounded integers, web URLs, emails, lists, languages and times

package coerce

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/harper/podroll/internal/dates"
)

var validate = validator.New()

// DefaultLanguage is used when no candidate names a usable language.
const DefaultLanguage = "en"

var truthy = map[string]bool{
	"yes":      true,
	"y":        true,
	"true":     true,
	"1":        true,
	"on":       true,
	"explicit": true,
	"no":       false,
	"n":        false,
	"false":    false,
	"0":        false,
	"off":      false,
	"clean":    false,
}

func trimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// String returns the first non-blank candidate, truncated to limit runes when limit > 0.
func String(limit int, candidates ...string) string {
	s := First(candidates, trimmed).Or("")
	if limit > 0 {
		if r := []rune(s); len(r) > limit {
			s = strings.TrimSpace(string(r[:limit]))
		}
	}
	return s
}

// Bool returns the first candidate that reads as a recognized flag, false otherwise.
func Bool(candidates ...string) bool {
	return First(candidates, func(s string) (bool, bool) {
		v, ok := truthy[strings.ToLower(strings.TrimSpace(s))]
		return v, ok
	}).Or(false)
}

// Int32 returns the first candidate that is an integer within the signed 32-bit range.
func Int32(candidates ...string) Option[int32] {
	n := First(candidates, parseInt, func(v int64) bool {
		return v >= math.MinInt32 && v <= math.MaxInt32
	})
	if v, ok := n.Get(); ok {
		return Some(int32(v))
	}
	return None[int32]()
}

// Int64 returns the first candidate that is an integer.
func Int64(candidates ...string) Option[int64] {
	return First(candidates, parseInt)
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// Size returns the first candidate that is a non-negative integer, or 0.
func Size(candidates ...string) int64 {
	return First(candidates, parseInt, NonNegative).Or(0)
}

// NonNegative rejects values below zero.
func NonNegative(v int64) bool {
	return v >= 0
}

// URL returns the first candidate that is an http or https URL. A candidate without
// a scheme is tried as http. Returns "" when none qualify.
func URL(candidates ...string) string {
	return First(candidates, normalizeURL, isWebURL).Or("")
}

func normalizeURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "http://" + strings.TrimPrefix(s, "//")
	}
	return s, true
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return validate.Var(s, "url") == nil
}

// Email returns the first candidate that is a valid address. A mailto: prefix and a
// trailing "(Name)" are stripped.
func Email(candidates ...string) string {
	return First(candidates, func(s string) (string, bool) {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "mailto:")
		if i := strings.IndexByte(s, ' '); i > 0 {
			s = s[:i]
		}
		return s, s != ""
	}, func(s string) bool {
		return validate.Var(s, "email") == nil
	}).Or("")
}

// List returns the non-blank candidates in order, never nil.
func List(candidates ...string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if s, ok := trimmed(c); ok {
			out = append(out, s)
		}
	}
	return out
}

// Unique returns the non-blank candidates in order without case-insensitive duplicates.
func Unique(candidates ...string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(candidates))
	for _, c := range List(candidates...) {
		if key := strings.ToLower(c); !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

// Split breaks comma separated values into a List, dropping case-insensitive duplicates.
func Split(candidates ...string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, c := range candidates {
		for _, part := range strings.Split(c, ",") {
			part = strings.TrimSpace(part)
			key := strings.ToLower(part)
			if part == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, part)
		}
	}
	return out
}

// Language returns the lowercase two-letter base language of the first parseable
// candidate, or DefaultLanguage.
func Language(candidates ...string) string {
	return First(candidates, func(s string) (string, bool) {
		s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
		if s == "" {
			return "", false
		}
		tag, err := language.Parse(s)
		if err != nil {
			return "", false
		}
		base, conf := tag.Base()
		if conf == language.No {
			return "", false
		}
		return strings.ToLower(base.String()), true
	}, func(s string) bool {
		return len(s) == 2
	}).Or(DefaultLanguage)
}

// Time returns the first candidate that parses as a date.
func Time(candidates ...string) Option[time.Time] {
	return First(candidates, dates.Parse)
}

// Before rejects times after the bound.
func Before(bound time.Time) Validator[time.Time] {
	return func(t time.Time) bool {
		return !t.After(bound)
	}
}
