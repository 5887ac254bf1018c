// ABOUTME: Tests for timestamp normalization, duration parsing and look-back periods
// ABOUTME: Checks offset repair, abbreviation handling and that no input panics

package dates

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc1123z", "Mon, 02 Jan 2006 15:04:05 +0000", want},
		{"rfc1123 gmt", "Mon, 02 Jan 2006 15:04:05 GMT", want},
		{"abbreviation", "Mon, 02 Jan 2006 10:04:05 EST", want},
		{"single digit day", "Mon, 2 Jan 2006 08:04:05 PDT", want},
		{"impossible offset", "Mon, 02 Jan 2006 15:04:05 +9900", want},
		{"impossible minutes", "Mon, 02 Jan 2006 15:04:05 +0175", want},
		{"iso offset", "2006-01-02T17:04:05+02:00", want},
		{"iso zulu", "2006-01-02T15:04:05Z", want},
		{"naive", "2006-01-02 15:04:05", want},
		{"extra whitespace", "  Mon,  02 Jan 2006\n15:04:05 +0000 ", want},
		{"epoch seconds", "1136214245", want},
		{"epoch millis", "1136214245000", want},
		{"date only", "2006-01-02", time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if !ok {
				t.Fatalf("Parse(%q) failed", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("Parse(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"garbage",
		"Mon, 99 Foo 2006",
		"2006-13-45T99:99:99Z",
		"+0000",
		"::::",
		"Mon, 02 Jan 2006 15:04:05 +",
		"\x00\xff\xfe",
		"0000000000000000000000000000",
	}

	for _, in := range inputs {
		got, ok := Parse(in)
		if ok && got.Location() != time.UTC {
			t.Errorf("Parse(%q) = %v, not UTC", in, got)
		}
	}

	if _, ok := Parse(""); ok {
		t.Error("Parse(\"\") should fail")
	}
	if _, ok := Parse("garbage"); ok {
		t.Error("Parse(\"garbage\") should fail")
	}
}

func TestFromTime(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	in := time.Date(2006, 1, 2, 18, 4, 5, 0, loc)

	got, ok := FromTime(in)
	if !ok || got.Hour() != 15 || got.Location() != time.UTC {
		t.Errorf("FromTime() = %v, %v", got, ok)
	}
	if _, ok := FromTime(time.Time{}); ok {
		t.Error("FromTime(zero) should fail")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2:30:40:2903903", "2:30:40"},
		{"30:40", "30:40"},
		{"", ""},
		{"3600", "3600"},
		{"125.7", "125"},
		{"1:5:3", "1:05:03"},
		{"1:75:30", "1:30"},
		{"abc", ""},
		{"1:xx:30", ""},
		{"-5", ""},
	}

	for _, tt := range tests {
		if got := Duration(tt.input); got != tt.want {
			t.Errorf("Duration(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"30:40", 1840},
		{"2:30:40", 9040},
		{"3600", 3600},
		{"", 0},
		{"x:10", 0},
	}

	for _, tt := range tests {
		if got := Seconds(tt.input); got != tt.want {
			t.Errorf("Seconds(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}

	if got := Seconds(Duration("30:40")); got != 1840 {
		t.Errorf("Seconds(Duration(30:40)) = %d, want 1840", got)
	}
}

func TestSince(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 5, 15, 13, 30, 0, 0, time.UTC)

	tests := []struct {
		period string
		want   time.Time
		ok     bool
	}{
		{"today", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), true},
		{"week", time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), true},
		{"month", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"decade", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := Since(tt.period, now)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("Since(%q) = %v, %v; want %v, %v", tt.period, got, ok, tt.want, tt.ok)
		}
	}
}
