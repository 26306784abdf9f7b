package model

import "time"

// Event is a single entry of the event catalog. The display fields are
// opaque to the status engine; only Date and Time are interpreted.
type Event struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Category string `yaml:"category" json:"category"`

	// Date is a day-of-month with ordinal suffix plus a month name,
	// e.g. "21st August". The year comes from the status policy.
	Date string `yaml:"date" json:"date"`
	// Time is a 24h range "HH:MM-HH:MM". Only the start is used.
	Time string `yaml:"time" json:"time"`

	Venue           string `yaml:"venue" json:"venue"`
	PrizePool       string `yaml:"prize_pool" json:"prize_pool"`
	Description     string `yaml:"description" json:"description"`
	TeamSize        string `yaml:"team_size" json:"team_size"`
	RegistrationFee string `yaml:"registration_fee" json:"registration_fee"`
	Image           string `yaml:"image" json:"image"`

	// Source is the catalog origin ("catalog" or a feed ID).
	Source string `yaml:"-" json:"source,omitempty"`
}

// Category is a filter tab shown above the event list.
type Category struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Status is the time-derived classification of an event. It is never
// stored; it is recomputed for every evaluation instant.
type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusUpcoming Status = "upcoming"
	StatusPast     Status = "past"
)

// Card is an event as placed on the board for one evaluation instant.
type Card struct {
	Event Event

	Status Status

	// Start / End are the parsed start instant and start+duration.
	Start time.Time
	End   time.Time

	// Position is the zero-based index in display order.
	Position int
}
