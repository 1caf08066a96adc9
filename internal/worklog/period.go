package worklog

import (
	"fmt"
	"time"
)

// Period is the inclusive date range an entry's work spanned, derived from the
// completion date and the duration fields.
type Period struct {
	StartDate string
	EndDate   string
	TotalDays int
}

// ParseYMD parses a strict YYYY-MM-DD date in UTC. Returns the zero time and
// false on any malformed input.
func ParseYMD(date string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatYMD(t time.Time) string {
	return t.Format("2006-01-02")
}

// NormalizeDuration clamps a duration value to a non-negative integer,
// substituting fallback for negative input.
func NormalizeDuration(value, fallback int) int {
	if value < 0 {
		return fallback
	}
	return value
}

// CalcPeriod converts a completion date plus week/day durations into an
// inclusive range ending on the completion date. A zero total still yields a
// one-day period. Returns false when the date cannot be parsed.
func CalcPeriod(date string, weeks, days int) (Period, bool) {
	end, ok := ParseYMD(date)
	if !ok {
		return Period{}, false
	}
	totalDays := NormalizeDuration(weeks, 0)*7 + NormalizeDuration(days, 0)
	if totalDays < 1 {
		totalDays = 1
	}
	start := end.AddDate(0, 0, -(totalDays - 1))
	return Period{
		StartDate: formatYMD(start),
		EndDate:   formatYMD(end),
		TotalDays: totalDays,
	}, true
}

// PeriodLabel renders an entry's period as "start ~ end (N일)", or "-" when
// the completion date is unusable.
func PeriodLabel(entry Entry) string {
	period, ok := CalcPeriod(entry.Date, entry.DurationWeeks, entry.DurationDays)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%s ~ %s (%d일)", period.StartDate, period.EndDate, period.TotalDays)
}
