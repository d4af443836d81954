package booking

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	timeOfDayPattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	// trailingTimePattern splits "<date> [at] 2pm" so the date half can be
	// parsed on its own and the time overlaid afterwards.
	trailingTimePattern = regexp.MustCompile(`(?i)^(.*?)[\s,]+(?:at\s+)?(\d{1,2}(?::\d{2})?\s*(?:am|pm)|\d{1,2}:\d{2})$`)
	// monthDayYearPattern adds the comma in "Jan 15 2099".
	monthDayYearPattern = regexp.MustCompile(`^([A-Za-z]{3,9}\.?\s+\d{1,2})\s+(\d{4})\b`)
	digitsOnly          = regexp.MustCompile(`^\d+$`)
)

// ParseFutureDateTime turns free text into an instant strictly after now.
//
// Calendar dates in any common format ("1/15/2099 2:00 PM", "15 January
// 2099", "2099-01-15 2pm") are parsed first. Otherwise "tomorrow" (checked
// before "next week") supplies the date and the first H[:MM][am|pm] token
// supplies the time of day. This is a best-effort heuristic. A nil result
// means no future instant could be derived.
func ParseFutureDateTime(s string, now time.Time, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	input := strings.TrimSpace(s)
	if input == "" {
		return nil
	}

	parsed, ok := parseDirect(input, loc)
	if !ok {
		parsed, ok = parseRelative(input, now, loc)
	}
	if !ok || !parsed.After(now) {
		return nil
	}
	return &parsed
}

func parseDirect(input string, loc *time.Location) (time.Time, bool) {
	// Bare digit runs would be read as unix timestamps.
	if digitsOnly.MatchString(input) {
		return time.Time{}, false
	}
	input = monthDayYearPattern.ReplaceAllString(input, "$1, $2")
	if t, err := dateparse.ParseIn(input, loc); err == nil {
		return t, true
	}

	m := trailingTimePattern.FindStringSubmatch(input)
	if m == nil || digitsOnly.MatchString(m[1]) {
		return time.Time{}, false
	}
	day, err := dateparse.ParseIn(m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	return overlayTimeOfDay(day.In(loc), m[2], loc)
}

func parseRelative(input string, now time.Time, loc *time.Location) (time.Time, bool) {
	lower := strings.ToLower(input)
	local := now.In(loc)

	var base time.Time
	switch {
	case strings.Contains(lower, "tomorrow"):
		base = local.AddDate(0, 0, 1)
	case strings.Contains(lower, "next week"):
		base = local.AddDate(0, 0, 7)
	default:
		return time.Time{}, false
	}

	if !timeOfDayPattern.MatchString(input) {
		return base, true
	}
	return overlayTimeOfDay(base, input, loc)
}

// overlayTimeOfDay replaces the clock of base with the first time token in
// text. Seconds are zeroed.
func overlayTimeOfDay(base time.Time, text string, loc *time.Location) (time.Time, bool) {
	match := timeOfDayPattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}
	minutes := 0
	if match[2] != "" {
		if minutes, err = strconv.Atoi(match[2]); err != nil {
			return time.Time{}, false
		}
	}
	switch strings.ToLower(match[3]) {
	case "pm":
		if hours < 12 {
			hours += 12
		}
	case "am":
		if hours == 12 {
			hours = 0
		}
	}
	if hours > 23 || minutes > 59 {
		return time.Time{}, false
	}

	y, m, d := base.Date()
	return time.Date(y, m, d, hours, minutes, 0, 0, loc), true
}
