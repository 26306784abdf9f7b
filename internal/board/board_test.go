package board

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventboard/internal/model"
	"eventboard/internal/status"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.August, day, hour, minute, 0, 0, time.UTC)
}

func fixture() ([]model.Category, []model.Event) {
	cats := []model.Category{
		{Name: "All Events", Description: "everything"},
		{Name: "Technical", Description: "code"},
		{Name: "Cultural", Description: "music"},
	}
	events := []model.Event{
		{ID: "hackathon", Title: "Hackathon", Category: "Technical", Date: "21st August", Time: "10:00-12:00"},
		{ID: "bands", Title: "Battle of Bands", Category: "Cultural", Date: "22nd August", Time: "18:00-21:00"},
		{ID: "robo", Title: "Robo Wars", Category: "Technical", Date: "20th August", Time: "09:00-10:00"},
	}
	return cats, events
}

func newBoard(t *testing.T, clock *fakeClock, spec string) *Board {
	t.Helper()
	cats, events := fixture()
	b := New(cats, events, Options{
		Policy:      status.Policy{Year: 2025, Duration: 3 * time.Hour, Location: time.UTC},
		RefreshSpec: spec,
		Clock:       clock.Now,
	})
	t.Cleanup(b.Deactivate)
	return b
}

func ids(cards []model.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Event.ID)
	}
	return out
}

func TestRender_AllEventsOrdered(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")

	v, err := b.Render(Request{})
	require.NoError(t, err)

	assert.Equal(t, "All Events", v.ActiveCategory)
	assert.Equal(t, []string{"hackathon", "bands", "robo"}, ids(v.Cards))
	assert.Equal(t, model.StatusOngoing, v.Cards[0].Status)
	assert.Equal(t, model.StatusUpcoming, v.Cards[1].Status)
	assert.Equal(t, model.StatusPast, v.Cards[2].Status)
	assert.Equal(t, 1, v.Counts[model.StatusOngoing])
	assert.False(t, v.ModalOpen)
	assert.Nil(t, v.Selected)

	require.Len(t, v.Categories, 3)
	assert.True(t, v.Categories[0].Active)
	assert.False(t, v.Categories[1].Active)
}

func TestRender_CategoryFilter(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")

	v, err := b.Render(Request{Category: "Technical"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hackathon", "robo"}, ids(v.Cards))
	assert.True(t, v.Categories[1].Active)

	v, err = b.Render(Request{Category: "Sports"})
	require.NoError(t, err)
	assert.Empty(t, v.Cards)
	assert.Equal(t, 0, v.Counts[model.StatusPast])
}

func TestRender_AtOverride(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")

	v, err := b.Render(Request{At: at(22, 19, 0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"bands", "robo", "hackathon"}, ids(v.Cards))
	assert.True(t, at(22, 19, 0).Equal(v.Now))
	assert.True(t, at(21, 11, 0).Equal(b.Now()), "override does not move the board")
}

func TestRender_Selection(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")

	v, err := b.Render(Request{Selected: "bands"})
	require.NoError(t, err)
	require.NotNil(t, v.Selected)
	assert.True(t, v.ModalOpen)
	assert.Equal(t, "Battle of Bands", v.Selected.Event.Title)
	assert.Equal(t, 1, v.Selected.Position)

	v, err = b.Render(Request{Category: "Technical", Selected: "bands"})
	require.NoError(t, err)
	require.NotNil(t, v.Selected)
	assert.Equal(t, -1, v.Selected.Position)
	assert.Equal(t, model.StatusUpcoming, v.Selected.Status)

	_, err = b.Render(Request{Selected: "nope"})
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestTick_AdvancesNowAndRevision(t *testing.T) {
	clock := &fakeClock{t: at(21, 9, 0)}
	b := newBoard(t, clock, "")

	v, err := b.Render(Request{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUpcoming, v.Cards[0].Status)
	rev := v.Revision

	b.Tick(at(21, 10, 30))
	assert.Greater(t, b.Revision(), rev)

	v, err = b.Render(Request{})
	require.NoError(t, err)
	assert.Equal(t, "hackathon", v.Cards[0].Event.ID)
	assert.Equal(t, model.StatusOngoing, v.Cards[0].Status)
}

func TestSetEvents(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")
	rev := b.Revision()

	b.SetEvents([]model.Event{{ID: "solo", Category: "Technical", Date: "30th August", Time: "10:00"}})
	assert.Greater(t, b.Revision(), rev)

	v, err := b.Render(Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, ids(v.Cards))
}

func TestTick_ForgetsRemovedEvents(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")

	b.Tick(at(21, 11, 0))
	assert.Equal(t, 3, b.tracked())

	b.SetEvents([]model.Event{{ID: "solo", Category: "Technical", Date: "30th August", Time: "10:00"}})
	b.Tick(at(21, 11, 1))
	assert.Equal(t, 1, b.tracked())
}

func TestRender_InvalidEventFails(t *testing.T) {
	clock := &fakeClock{t: at(21, 11, 0)}
	b := newBoard(t, clock, "")
	b.SetEvents([]model.Event{{ID: "bad", Date: "soon", Time: "10:00"}})

	_, err := b.Render(Request{})
	var perr *status.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestActivate_TicksPeriodically(t *testing.T) {
	clock := &fakeClock{t: at(21, 9, 0)}
	b := newBoard(t, clock, "@every 1s")

	require.NoError(t, b.Activate())
	assert.True(t, b.Active())
	rev := b.Revision()

	clock.Set(at(21, 10, 30))
	assert.Eventually(t, func() bool {
		return b.Revision() > rev && b.Now().Equal(at(21, 10, 30))
	}, 3*time.Second, 50*time.Millisecond)

	b.Deactivate()
	assert.False(t, b.Active())
	b.Deactivate()
}

func TestActivate_InvalidSpecDegradesToStatic(t *testing.T) {
	clock := &fakeClock{t: at(21, 9, 0)}
	b := newBoard(t, clock, "whenever")

	clock.Set(at(21, 11, 0))
	err := b.Activate()
	require.Error(t, err)
	assert.False(t, b.Active())

	v, err := b.Render(Request{})
	require.NoError(t, err)
	assert.True(t, at(21, 11, 0).Equal(v.Now), "activation still evaluates once")
	assert.Equal(t, model.StatusOngoing, v.Cards[0].Status)
}
