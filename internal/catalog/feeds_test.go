package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventboard/internal/ics"
)

type stubFetcher struct {
	results []ics.FetchResult
	err     error
}

func (s stubFetcher) FetchAll(_ context.Context, _ []ics.Source) ([]ics.FetchResult, error) {
	return s.results, s.err
}

func calendar(vevents ...string) []byte {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}
	lines = append(lines, vevents...)
	lines = append(lines, "END:VCALENDAR")
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestLoadFeeds(t *testing.T) {
	src := ics.Source{ID: "club", URL: "https://example.com/club.ics", Category: "Workshops"}
	body := calendar(
		"BEGIN:VEVENT",
		"UID:talk",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250821T100000Z",
		"DTEND:20250821T110000Z",
		"SUMMARY:Lightning Talks",
		"END:VEVENT",
	)

	f := stubFetcher{
		results: []ics.FetchResult{
			{Source: src, Body: body},
			{Source: ics.Source{ID: "broken"}, Body: []byte("not a calendar")},
		},
		err: errors.New("feed down: 502"),
	}

	events, err := LoadFeeds(context.Background(), f, []ics.Source{src}, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")

	require.Len(t, events, 1)
	assert.Equal(t, "Lightning Talks", events[0].Title)
	assert.Equal(t, "Workshops", events[0].Category)
	assert.Equal(t, "21st August", events[0].Date)
	assert.Equal(t, "10:00-11:00", events[0].Time)
	assert.Equal(t, "club", events[0].Source)
}

func TestLoadFeeds_NoSources(t *testing.T) {
	events, err := LoadFeeds(context.Background(), stubFetcher{}, nil, testOptions())
	assert.NoError(t, err)
	assert.Empty(t, events)
}
