package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventboard/internal/model"
)

// ProductID identifies exported calendars.
const ProductID = "-//eventboard//events//EN"

// Export writes the cards as an iCalendar feed. Each card becomes one
// VEVENT spanning its assumed window; the status is not exported because
// it only holds for the instant the cards were computed at.
func Export(w io.Writer, cards []model.Card, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, c := range cards {
		ve := cal.AddEvent(c.Event.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(c.Start)
		ve.SetEndAt(c.End)
		ve.SetSummary(c.Event.Title)
		if c.Event.Venue != "" {
			ve.SetLocation(c.Event.Venue)
		}
		if c.Event.Description != "" {
			ve.SetDescription(c.Event.Description)
		}
		if c.Event.Category != "" {
			ve.AddProperty(ical.ComponentPropertyCategories, c.Event.Category)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
