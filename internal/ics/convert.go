package ics

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"eventboard/internal/model"
	"eventboard/internal/status"
)

// YearRange returns the expansion window covering the policy year.
func YearRange(p status.Policy) ExpandConfig {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	year := p.Year
	if year <= 0 {
		year = status.DefaultYear
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return ExpandConfig{
		Location:   loc,
		RangeStart: start,
		RangeEnd:   start.AddDate(1, 0, 0).Add(-time.Nanosecond),
	}
}

// ToEvents renders occurrences as catalog events, so feed entries go
// through the same date/time parsing as hand-written ones.
func ToEvents(occs []Occurrence) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		timeRange := status.FormatTimeRange(o.Start, o.End)
		if o.AllDay {
			timeRange = "00:00-23:59"
		}
		out = append(out, model.Event{
			ID:          OccurrenceID(o.Source.ID, o.UID, o.Start),
			Title:       o.Summary,
			Category:    o.Source.Category,
			Date:        status.FormatDate(o.Start),
			Time:        timeRange,
			Venue:       o.Location,
			Description: o.Description,
			Source:      o.Source.ID,
		})
	}
	return out
}

// occurrenceNamespace seeds feed occurrence IDs.
var occurrenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("eventboard/ics"))

// OccurrenceID is the stable board ID of one feed occurrence. Feed IDs and
// UIDs may contain '/', so the parts are hashed into a UUID that is safe
// as a URL path segment.
func OccurrenceID(sourceID, uid string, start time.Time) string {
	key := strings.Join([]string{sourceID, uid, start.UTC().Format("20060102T150405Z")}, "\x1f")
	return uuid.NewSHA1(occurrenceNamespace, []byte(key)).String()
}
