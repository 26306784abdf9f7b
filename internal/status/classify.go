package status

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"eventboard/internal/model"
)

// Bucket classifies now against the [start, end] window. Both bounds are
// inclusive.
func Bucket(start, end, now time.Time) model.Status {
	if now.After(end) {
		return model.StatusPast
	}
	if !now.Before(start) {
		return model.StatusOngoing
	}
	return model.StatusUpcoming
}

// Classify returns the status of an event given its catalog date and time
// strings. Malformed input yields a *ParseError and no status.
func (p Policy) Classify(date, timeRange string, now time.Time) (model.Status, error) {
	start, end, err := p.Window(date, timeRange)
	if err != nil {
		return "", err
	}
	return Bucket(start, end, now), nil
}

// StatusOf is Classify for a catalog event.
func (p Policy) StatusOf(ev model.Event, now time.Time) (model.Status, error) {
	return p.Classify(ev.Date, ev.Time, now)
}

// Rank is the display rank of a status: ongoing, then upcoming, then past.
func Rank(s model.Status) int {
	switch s {
	case model.StatusOngoing:
		return 0
	case model.StatusUpcoming:
		return 1
	case model.StatusPast:
		return 2
	default:
		return 3
	}
}

// Compare orders two events for display at now: by status rank, then by
// start instant. It returns a negative, zero or positive value.
func (p Policy) Compare(a, b model.Event, now time.Time) (int, error) {
	ca, err := p.card(a, now)
	if err != nil {
		return 0, err
	}
	cb, err := p.card(b, now)
	if err != nil {
		return 0, err
	}
	return compareCards(ca, cb), nil
}

// Sort places events on the board at now. Every event is parsed once up
// front; the first parse error aborts the sort. The order is stable, so
// events with equal status and start keep their input order.
func (p Policy) Sort(events []model.Event, now time.Time) ([]model.Card, error) {
	cards := make([]model.Card, 0, len(events))
	for _, ev := range events {
		c, err := p.card(ev, now)
		if err != nil {
			return nil, fmt.Errorf("sort: event %q: %w", ev.ID, err)
		}
		cards = append(cards, c)
	}

	slices.SortStableFunc(cards, compareCards)
	for i := range cards {
		cards[i].Position = i
	}
	return cards, nil
}

// Card evaluates a single event at now without placing it on the board.
func (p Policy) Card(ev model.Event, now time.Time) (model.Card, error) {
	return p.card(ev, now)
}

func (p Policy) card(ev model.Event, now time.Time) (model.Card, error) {
	start, end, err := p.Window(ev.Date, ev.Time)
	if err != nil {
		return model.Card{}, err
	}
	return model.Card{
		Event:  ev,
		Status: Bucket(start, end, now),
		Start:  start,
		End:    end,
	}, nil
}

func compareCards(a, b model.Card) int {
	if r := cmp.Compare(Rank(a.Status), Rank(b.Status)); r != 0 {
		return r
	}
	return a.Start.Compare(b.Start)
}
