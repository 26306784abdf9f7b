// Package board is the view model of the event page: it owns the "now"
// reference the statuses are computed against, the refresh ticker that
// advances it, and renders filtered, ordered cards plus the selected event.
package board

import (
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "eventboard/internal/log"
	"eventboard/internal/metrics"
	"eventboard/internal/model"
	"eventboard/internal/refresh"
	"eventboard/internal/status"
)

// ErrUnknownEvent is returned when a selected event ID is not on the board.
var ErrUnknownEvent = errors.New("board: unknown event")

// Options configures a Board.
type Options struct {
	Policy status.Policy
	// AllCategory is the sentinel category; empty means "All Events".
	AllCategory string
	// RefreshSpec is the cron spec of the re-evaluation ticker.
	RefreshSpec string
	// Clock returns the wall-clock time; defaults to time.Now.
	Clock func() time.Time
}

// Board holds the catalog and the current evaluation instant.
type Board struct {
	policy      status.Policy
	allCategory string
	refreshSpec string
	clock       func() time.Time

	mu         sync.RWMutex
	categories []model.Category
	events     []model.Event
	now        time.Time
	revision   uint64
	last       map[string]model.Status
	ticker     *refresh.Ticker
}

// New creates an inactive board evaluated at the current clock time.
func New(categories []model.Category, events []model.Event, opts Options) *Board {
	if opts.AllCategory == "" {
		opts.AllCategory = status.DefaultAllCategory
	}
	if opts.RefreshSpec == "" {
		opts.RefreshSpec = "@every 60s"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Board{
		policy:      opts.Policy,
		allCategory: opts.AllCategory,
		refreshSpec: opts.RefreshSpec,
		clock:       opts.Clock,
		categories:  categories,
		events:      events,
		now:         opts.Clock(),
		last:        make(map[string]model.Status),
	}
}

// Activate starts the refresh ticker. If the ticker cannot be scheduled
// the board stays usable with a static "now"; the error says why.
func (b *Board) Activate() error {
	b.mu.Lock()
	if b.ticker == nil {
		loc := b.policy.Location
		b.ticker = refresh.New("board", b.refreshSpec, loc, b.tick)
	}
	t := b.ticker
	b.mu.Unlock()

	b.tick()
	return t.Start()
}

// Deactivate stops the refresh ticker and waits for an in-flight tick.
// It is safe to call on an inactive board.
func (b *Board) Deactivate() {
	b.mu.RLock()
	t := b.ticker
	b.mu.RUnlock()
	if t == nil {
		return
	}
	<-t.Stop().Done()
}

// Active reports whether the refresh ticker is running.
func (b *Board) Active() bool {
	b.mu.RLock()
	t := b.ticker
	b.mu.RUnlock()
	return t != nil && t.Running()
}

func (b *Board) tick() {
	metrics.ObserveTick()
	b.Tick(b.clock())
}

// Tick moves the board to now and bumps the revision. Status transitions
// since the previous tick are logged and per-status counts exported.
func (b *Board) Tick(now time.Time) {
	b.mu.Lock()
	b.now = now
	b.revision++
	rev := b.revision
	events := b.events
	b.mu.Unlock()

	cards, err := b.policy.Sort(events, now)
	if err != nil {
		appLog.Error("board refresh failed", err, "revision", rev)
		return
	}

	counts := countStatuses(cards)
	metrics.ObserveStatuses(counts)

	// Rebuilt from the current cards so events dropped by SetEvents are
	// forgotten.
	current := make(map[string]model.Status, len(cards))
	b.mu.Lock()
	for _, c := range cards {
		if prev, ok := b.last[c.Event.ID]; ok && prev != c.Status {
			appLog.Info("event status changed", "id", c.Event.ID, "title", c.Event.Title, "from", prev, "to", c.Status)
		}
		current[c.Event.ID] = c.Status
	}
	b.last = current
	b.mu.Unlock()

	appLog.Debug("board refreshed",
		"revision", rev,
		"ongoing", counts[model.StatusOngoing],
		"upcoming", counts[model.StatusUpcoming],
		"past", counts[model.StatusPast],
	)
}

// SetEvents replaces the event list (e.g. after a feed refresh).
func (b *Board) SetEvents(events []model.Event) {
	b.mu.Lock()
	b.events = events
	b.revision++
	b.mu.Unlock()
}

// Now returns the instant the board is currently evaluated at.
func (b *Board) Now() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.now
}

// tracked returns how many events the transition log currently follows.
func (b *Board) tracked() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.last)
}

// Revision increases on every tick and event list change.
func (b *Board) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// AllCategory returns the sentinel category name.
func (b *Board) AllCategory() string {
	return b.allCategory
}

// Policy returns the status policy of the board.
func (b *Board) Policy() status.Policy {
	return b.policy
}

// Request selects what to render.
type Request struct {
	// Category filters the cards; empty means the all sentinel.
	Category string
	// Selected is the ID of the event opened in the detail view, if any.
	Selected string
	// At overrides the board's now; zero uses the board's now.
	At time.Time
}

// Tab is a category filter button.
type Tab struct {
	model.Category
	Active bool
}

// View is everything a renderer needs for one pass. Detail-view state is
// part of the view: the layout reads ModalOpen instead of a global flag.
type View struct {
	Revision       uint64
	Now            time.Time
	ActiveCategory string
	Categories     []Tab
	Cards          []model.Card
	Counts         map[model.Status]int
	Selected       *model.Card
	ModalOpen      bool
}

// Render evaluates the board for one request.
func (b *Board) Render(req Request) (View, error) {
	b.mu.RLock()
	now := b.now
	rev := b.revision
	events := b.events
	categories := b.categories
	b.mu.RUnlock()

	if !req.At.IsZero() {
		now = req.At
	}
	category := req.Category
	if category == "" {
		category = b.allCategory
	}

	cards, err := b.policy.Sort(status.Filter(events, category, b.allCategory), now)
	if err != nil {
		return View{}, fmt.Errorf("board: render: %w", err)
	}

	v := View{
		Revision:       rev,
		Now:            now,
		ActiveCategory: category,
		Categories:     make([]Tab, 0, len(categories)),
		Cards:          cards,
		Counts:         countStatuses(cards),
	}
	for _, c := range categories {
		v.Categories = append(v.Categories, Tab{Category: c, Active: c.Name == category})
	}

	if req.Selected != "" {
		sel, err := b.selected(req.Selected, cards, events, now)
		if err != nil {
			return View{}, err
		}
		v.Selected = sel
		v.ModalOpen = true
	}

	return v, nil
}

// selected prefers the card as placed on the board; an event filtered out
// of the current category is still shown, with Position -1.
func (b *Board) selected(id string, cards []model.Card, events []model.Event, now time.Time) (*model.Card, error) {
	for i := range cards {
		if cards[i].Event.ID == id {
			c := cards[i]
			return &c, nil
		}
	}
	for _, ev := range events {
		if ev.ID != id {
			continue
		}
		c, err := b.policy.Card(ev, now)
		if err != nil {
			return nil, fmt.Errorf("board: event %q: %w", id, err)
		}
		c.Position = -1
		return &c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, id)
}

func countStatuses(cards []model.Card) map[model.Status]int {
	counts := map[model.Status]int{
		model.StatusOngoing:  0,
		model.StatusUpcoming: 0,
		model.StatusPast:     0,
	}
	for _, c := range cards {
		counts[c.Status]++
	}
	return counts
}
