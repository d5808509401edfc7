// Package window resolves the date ranges statistics are computed over.
package window

import (
	"strings"
	"time"

	"github.com/dsablic/devpulse/internal/model"
)

// DefaultDays is the length of the trailing window used when no valid range
// is given.
const DefaultDays = 30

// Trend intervals.
const (
	Weekly  = "weekly"
	Monthly = "monthly"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Range is a resolved, inclusive date range.
type Range struct {
	Since     time.Time
	Until     time.Time
	Defaulted bool
}

// Model renders r for reports.
func (r Range) Model() model.Window {
	return model.Window{
		Since:     r.Since.Format(time.RFC3339),
		Until:     r.Until.Format(time.RFC3339),
		Defaulted: r.Defaulted,
	}
}

// Default returns the trailing window of days ending at now.
func Default(now time.Time, days int) Range {
	if days <= 0 {
		days = DefaultDays
	}
	now = now.UTC()
	return Range{Since: now.AddDate(0, 0, -days), Until: now, Defaulted: true}
}

// Parse resolves since and until, given as YYYY-MM-DD or RFC 3339. A
// date-only until covers its whole day. An empty until means now and an
// empty since means days before until. Any unparsable value, or a since
// after until, yields Default(now, days). Parse never fails.
func Parse(since, until string, now time.Time, days int) Range {
	since, until = strings.TrimSpace(since), strings.TrimSpace(until)
	if since == "" && until == "" {
		return Default(now, days)
	}
	if days <= 0 {
		days = DefaultDays
	}

	end := now.UTC()
	if until != "" {
		t, dateOnly, ok := parseTime(until)
		if !ok {
			return Default(now, days)
		}
		if dateOnly {
			t = endOfDay(t)
		}
		end = t
	}

	start := end.AddDate(0, 0, -days)
	if since != "" {
		t, _, ok := parseTime(since)
		if !ok {
			return Default(now, days)
		}
		start = t
	}

	if start.After(end) {
		return Default(now, days)
	}
	return Range{Since: start, Until: end}
}

func parseTime(s string) (time.Time, bool, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), true, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, true
	}
	return time.Time{}, false, false
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
