package services

import (
	"math"
	"time"

	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

const (
	milesPerMeter = 0.000621371
	dateLayout    = "2006-01-02"
	defaultTitle  = "None"
)

// NormalizeActivity converts a raw provider record into the persisted shape.
// It is total: malformed input degrades to defaults instead of failing.
// Distance is converted from meters to miles and rounded to two decimals;
// the date falls back to now's calendar day when nothing parseable is
// present.
func NormalizeActivity(raw ports.RawActivity, now time.Time) domain.Activity {
	title := raw.Name
	if title == "" {
		title = defaultTitle
	}

	miles := math.Round(raw.Distance*milesPerMeter*100) / 100
	if miles < 0 {
		miles = 0
	}

	return domain.Activity{
		Date:     activityDate(raw, now),
		Distance: miles,
		Title:    title,
	}
}

// activityDate extracts the calendar day from the local start timestamp,
// falling back to the UTC one. The provider is inconsistent about timezone
// suffixes, so several layouts are tried before cutting the first ten
// characters as a last resort.
func activityDate(raw ports.RawActivity, now time.Time) string {
	start := raw.StartDateLocal
	if start == "" {
		start = raw.StartDate
	}
	if start == "" {
		return now.Format(dateLayout)
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		dateLayout,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, start); err == nil {
			return t.Format(dateLayout)
		}
	}

	if len(start) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, start[:len(dateLayout)]); err == nil {
			return t.Format(dateLayout)
		}
	}

	return now.Format(dateLayout)
}
