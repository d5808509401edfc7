package window

import "time"

// GenerateDates produces a slice of target dates based on interval.
//
// For "monthly": since/until are "YYYY-MM" strings. Returns end-of-month
// dates (last day, 23:59:59 UTC) for each month from since to until inclusive.
//
// For "weekly": since/until are "YYYY-MM-DD" strings. Returns end-of-day
// dates (23:59:59 UTC) every 7 days from since to until inclusive.
func GenerateDates(since, until, interval string) []time.Time {
	switch interval {
	case Monthly:
		return generateMonthly(since, until)
	case Weekly:
		return generateWeekly(since, until)
	default:
		return nil
	}
}

func generateMonthly(since, until string) []time.Time {
	start, err := time.Parse(monthLayout, since)
	if err != nil {
		return nil
	}
	end, err := time.Parse(monthLayout, until)
	if err != nil {
		return nil
	}

	var dates []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		lastDay := cur.AddDate(0, 1, -1)
		dates = append(dates, endOfDay(lastDay))
	}
	return dates
}

func generateWeekly(since, until string) []time.Time {
	start, err := time.Parse(dateLayout, since)
	if err != nil {
		return nil
	}
	end, err := time.Parse(dateLayout, until)
	if err != nil {
		return nil
	}

	var dates []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 7) {
		dates = append(dates, endOfDay(cur))
	}
	return dates
}

// FormatPeriod formats a date according to the interval type.
func FormatPeriod(d time.Time, interval string) string {
	switch interval {
	case Monthly:
		return d.Format(monthLayout)
	case Weekly:
		return d.Format(dateLayout)
	default:
		return d.Format(time.RFC3339)
	}
}

// Period is one labelled slice of a trend range.
type Period struct {
	Label string
	Range Range
}

// Periods splits r into consecutive weekly or monthly periods, clipped to
// r. Weeks start on r.Since's day; months are calendar months. An unknown
// interval yields nil.
func Periods(r Range, interval string) []Period {
	since, until := r.Since.UTC(), r.Until.UTC()
	if since.After(until) {
		return nil
	}

	var periods []Period
	switch interval {
	case Weekly:
		for _, d := range GenerateDates(since.Format(dateLayout), until.Format(dateLayout), Weekly) {
			start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			end := endOfDay(start.AddDate(0, 0, 6))
			periods = append(periods, clip(FormatPeriod(start, Weekly), start, end, since, until))
		}
	case Monthly:
		for _, d := range GenerateDates(since.Format(monthLayout), until.Format(monthLayout), Monthly) {
			start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
			periods = append(periods, clip(FormatPeriod(d, Monthly), start, d, since, until))
		}
	}
	return periods
}

func clip(label string, start, end, since, until time.Time) Period {
	if start.Before(since) {
		start = since
	}
	if end.After(until) {
		end = until
	}
	return Period{Label: label, Range: Range{Since: start, Until: end}}
}
