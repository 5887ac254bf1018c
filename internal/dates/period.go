// ABOUTME: Named look-back periods for listing recently updated podcasts
// ABOUTME: Resolves today, week and month to UTC cutoffs relative to a supplied clock

package dates

import "time"

// StartOfDay returns midnight UTC of the day containing now
func StartOfDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Since converts a period name to its cutoff.
// Supported values: "today", "yesterday", "week" (Sunday start), "month"
func Since(period string, now time.Time) (time.Time, bool) {
	today := StartOfDay(now)
	switch period {
	case "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "week":
		return today.AddDate(0, 0, -int(today.Weekday())), true
	case "month":
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}
