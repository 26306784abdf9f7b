package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "eventboard/internal/log"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are converted to. If nil, time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrence start instants (inclusive).
	// An occurrence that starts before RangeStart is dropped even if it
	// runs into the range.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is a single concrete instance of a feed event.
type Occurrence struct {
	Source      Source
	UID         string
	Summary     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// ExpandOccurrences turns parsed events into concrete occurrences within
// the configured range. It handles single events, RRULE recurrences,
// EXDATE exclusions and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are keyed by UID; base events keep feed order.
	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	out := make([]Occurrence, 0, len(bases))
	for _, ev := range bases {
		if ev.RawRRule == "" {
			out = append(out, expandSingle(ev, overrides[ev.UID], cfg)...)
			continue
		}
		occ, truncated := expandRecurring(ev, overrides[ev.UID], cfg)
		if truncated {
			appLog.Warn("expand: occurrences truncated", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if !startsInRange(ev.Start, cfg) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, ev.Start, ev.End, cfg.Location)}
}

func startsInRange(start time.Time, cfg ExpandConfig) bool {
	return !start.Before(cfg.RangeStart) && !start.After(cfg.RangeEnd)
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	truncated := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		truncated = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		base, start, end := ev, s, s.Add(dur)
		if o, ok := findOverride(overrides, s); ok {
			base, start, end = o, o.Start, o.End
		}
		// A moved instance may leave the range.
		if !startsInRange(start, cfg) {
			continue
		}
		out = append(out, makeOccurrence(base, start, end, cfg.Location))
	}
	return out, truncated
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	return Occurrence{
		Source:      ev.Source,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start.In(loc),
		End:         end.In(loc),
	}
}
