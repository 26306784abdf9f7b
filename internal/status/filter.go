package status

import "eventboard/internal/model"

// Filter returns the events of the given category. When category equals
// the all sentinel the input slice itself is returned. An unknown category
// yields an empty slice.
func Filter(events []model.Event, category, all string) []model.Event {
	if all == "" {
		all = DefaultAllCategory
	}
	if category == all {
		return events
	}

	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Category == category {
			out = append(out, ev)
		}
	}
	return out
}
