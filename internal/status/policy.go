// Package status derives the display status (ongoing, upcoming, past) of
// catalog events and orders them for the board.
//
// Every function here is pure given (event, now). Nothing is cached: a
// status is only valid for the instant it was computed against.
package status

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Policy constants. They describe the catalog, not the data: event dates
// carry no year and events carry no end time.
const (
	DefaultYear     = 2025
	DefaultDuration = 3 * time.Hour

	// DefaultAllCategory is the sentinel filter value that selects every event.
	DefaultAllCategory = "All Events"
)

// Policy holds the parameters needed to turn catalog date/time strings
// into absolute instants.
type Policy struct {
	// Year is combined with the year-less catalog dates.
	Year int
	// Duration is the assumed event length; End = Start + Duration.
	Duration time.Duration
	// Location is the timezone the catalog times are expressed in.
	// If nil, time.Local is used.
	Location *time.Location
}

// DefaultPolicy returns the 2025 / 3h / local-time policy.
func DefaultPolicy() Policy {
	return Policy{
		Year:     DefaultYear,
		Duration: DefaultDuration,
		Location: time.Local,
	}
}

func (p Policy) normalized() Policy {
	if p.Year <= 0 {
		p.Year = DefaultYear
	}
	if p.Duration <= 0 {
		p.Duration = DefaultDuration
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	return p
}

// ParseError reports a catalog date or time string that cannot be turned
// into an instant.
type ParseError struct {
	// Field is "date" or "time".
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("status: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

var dayToken = regexp.MustCompile(`^(?i)(\d{1,2})(st|nd|rd|th)?$`)

// Window returns the start instant of an event and its assumed end
// (start + Duration).
func (p Policy) Window(date, timeRange string) (start, end time.Time, err error) {
	p = p.normalized()

	month, day, err := parseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	hour, minute, err := parseStartTime(timeRange)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start = time.Date(p.Year, month, day, hour, minute, 0, 0, p.Location)
	// time.Date normalizes overflow ("31st February" -> March 3rd).
	if start.Month() != month || start.Day() != day {
		return time.Time{}, time.Time{}, &ParseError{
			Field:  "date",
			Value:  date,
			Reason: fmt.Sprintf("day %d does not exist in %s %d", day, month, p.Year),
		}
	}

	return start, start.Add(p.Duration), nil
}

// parseDate accepts "21st August", "August 21st", "21 Aug" and the same
// with a comma. The ordinal suffix is stripped from the day token only.
func parseDate(date string) (time.Month, int, error) {
	fields := strings.Fields(strings.ReplaceAll(date, ",", " "))
	if len(fields) != 2 {
		return 0, 0, &ParseError{Field: "date", Value: date, Reason: "expected a day and a month"}
	}

	var (
		day     int
		month   time.Month
		haveDay bool
		haveMon bool
	)
	for _, f := range fields {
		if m := dayToken.FindStringSubmatch(f); m != nil && !haveDay {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, 0, &ParseError{Field: "date", Value: date, Reason: err.Error()}
			}
			day, haveDay = n, true
			continue
		}
		if mon, ok := lookupMonth(f); ok && !haveMon {
			month, haveMon = mon, true
			continue
		}
		return 0, 0, &ParseError{Field: "date", Value: date, Reason: fmt.Sprintf("unexpected token %q", f)}
	}

	if !haveDay || !haveMon {
		return 0, 0, &ParseError{Field: "date", Value: date, Reason: "expected a day and a month"}
	}
	if day < 1 || day > 31 {
		return 0, 0, &ParseError{Field: "date", Value: date, Reason: "day out of range"}
	}
	return month, day, nil
}

func lookupMonth(tok string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(tok, name) || strings.EqualFold(tok, name[:3]) {
			return m, true
		}
	}
	return 0, false
}

// parseStartTime takes the part of "HH:MM-HH:MM" before the first '-'.
// A value without a separator is treated as a bare start time.
func parseStartTime(timeRange string) (hour, minute int, err error) {
	startStr, _, _ := strings.Cut(timeRange, "-")
	startStr = strings.TrimSpace(startStr)
	if startStr == "" {
		return 0, 0, &ParseError{Field: "time", Value: timeRange, Reason: "missing start time"}
	}

	t, perr := time.Parse("15:04", startStr)
	if perr != nil {
		return 0, 0, &ParseError{Field: "time", Value: timeRange, Reason: "start is not HH:MM"}
	}
	return t.Hour(), t.Minute(), nil
}

// FormatDate renders t the way catalog dates are written, e.g. "21st August".
// It is the inverse of the date parsing done by Window.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d%s %s", t.Day(), ordinal(t.Day()), t.Month())
}

// FormatTimeRange renders "HH:MM-HH:MM".
func FormatTimeRange(start, end time.Time) string {
	return start.Format("15:04") + "-" + end.Format("15:04")
}

func ordinal(day int) string {
	if n := day % 100; n >= 11 && n <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
