// Package catalog loads the static list of categories and events the board
// displays, and validates every event's date and time up front so that
// status derivation never meets malformed data at render time.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	appLog "eventboard/internal/log"
	"eventboard/internal/model"
	"eventboard/internal/status"
)

// SourceCatalog marks events that came from the catalog file.
const SourceCatalog = "catalog"

// idNamespace seeds derived event IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("eventboard"))

// file is the on-disk YAML shape.
type file struct {
	Categories []model.Category `yaml:"categories"`
	Events     []model.Event    `yaml:"events"`
}

// Options controls validation.
type Options struct {
	// Policy is used to check that every date/time string parses.
	Policy status.Policy
	// Strict turns the first invalid event into a load error.
	Strict bool
	// AllCategory is the sentinel category; it is added to the category
	// list when missing.
	AllCategory string
}

// Rejection records an event excluded from the catalog and why.
type Rejection struct {
	Source string
	Index  int
	Event  model.Event
	Err    error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("catalog: %s event #%d (%q): %v", r.Source, r.Index, r.Event.Title, r.Err)
}

func (r Rejection) Unwrap() error {
	return r.Err
}

// Catalog is the validated, read-only event data.
type Catalog struct {
	Categories []model.Category
	Events     []model.Event
	Rejected   []Rejection
}

// Load reads and validates a catalog YAML file.
func Load(path string, opts Options) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return Parse(data, opts)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte, opts Options) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	if opts.AllCategory == "" {
		opts.AllCategory = status.DefaultAllCategory
	}

	c := &Catalog{
		Categories: withAllCategory(f.Categories, opts.AllCategory),
	}

	valid, rejected, err := Validate(SourceCatalog, f.Events, opts)
	if err != nil {
		return nil, err
	}
	c.Events = valid
	c.Rejected = rejected

	known := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat.Name] = true
	}
	for _, ev := range c.Events {
		if !known[ev.Category] {
			appLog.Warn("catalog: event category is not listed", "id", ev.ID, "category", ev.Category)
		}
	}

	appLog.Info("catalog loaded",
		"categories", len(c.Categories),
		"events", len(c.Events),
		"rejected", len(c.Rejected),
	)
	return c, nil
}

// Validate normalizes events (trimmed fields, source, derived IDs) and
// checks their date/time against the policy. Invalid or duplicate events
// are returned as rejections, or as an error in strict mode.
func Validate(source string, events []model.Event, opts Options) ([]model.Event, []Rejection, error) {
	valid := make([]model.Event, 0, len(events))
	var rejected []Rejection
	seen := make(map[string]bool, len(events))

	for i, ev := range events {
		ev = normalize(ev, source)

		var err error
		if _, _, perr := opts.Policy.Window(ev.Date, ev.Time); perr != nil {
			err = perr
		} else if seen[ev.ID] {
			err = fmt.Errorf("duplicate id %q", ev.ID)
		}

		if err != nil {
			rej := Rejection{Source: source, Index: i, Event: ev, Err: err}
			if opts.Strict {
				return nil, nil, rej
			}
			appLog.Error("catalog: event rejected", err, "source", source, "index", i, "title", ev.Title)
			rejected = append(rejected, rej)
			continue
		}

		seen[ev.ID] = true
		valid = append(valid, ev)
	}

	return valid, rejected, nil
}

// DeriveID returns the stable ID used for events without one.
func DeriveID(ev model.Event) string {
	key := strings.Join([]string{ev.Source, ev.Title, ev.Date, ev.Time}, "\x1f")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func normalize(ev model.Event, source string) model.Event {
	ev.ID = strings.TrimSpace(ev.ID)
	ev.Title = strings.TrimSpace(ev.Title)
	ev.Category = strings.TrimSpace(ev.Category)
	ev.Date = strings.TrimSpace(ev.Date)
	ev.Time = strings.TrimSpace(ev.Time)
	if ev.Source == "" {
		ev.Source = source
	}
	if ev.ID == "" {
		ev.ID = DeriveID(ev)
	}
	return ev
}

func withAllCategory(cats []model.Category, all string) []model.Category {
	for _, c := range cats {
		if c.Name == all {
			return cats
		}
	}
	out := make([]model.Category, 0, len(cats)+1)
	out = append(out, model.Category{Name: all, Description: "Every event on the board"})
	return append(out, cats...)
}

// Merge returns the catalog events followed by extra (already validated)
// events, skipping extras whose ID is already present.
func (c *Catalog) Merge(extra []model.Event) []model.Event {
	out := make([]model.Event, 0, len(c.Events)+len(extra))
	out = append(out, c.Events...)

	seen := make(map[string]bool, len(out))
	for _, ev := range out {
		seen[ev.ID] = true
	}
	for _, ev := range extra {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out
}
