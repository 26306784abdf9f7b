package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventboard/internal/model"
)

func TestObserveStatuses(t *testing.T) {
	ObserveStatuses(map[model.Status]int{
		model.StatusOngoing: 2,
		model.StatusPast:    5,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(eventsByStatus.WithLabelValues("ongoing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(eventsByStatus.WithLabelValues("upcoming")))
	assert.Equal(t, 5.0, testutil.ToFloat64(eventsByStatus.WithLabelValues("past")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(refreshTicks)
	ObserveTick()
	assert.Equal(t, before+1, testutil.ToFloat64(refreshTicks))

	okBefore := testutil.ToFloat64(feedRefreshes.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(feedRefreshes.WithLabelValues("error"))
	ObserveFeedRefresh(nil)
	ObserveFeedRefresh(errors.New("boom"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(feedRefreshes.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(feedRefreshes.WithLabelValues("error")))

	SetRejected(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(rejectedEvents))
}

func TestHandler(t *testing.T) {
	ObserveTick()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventboard_refresh_ticks_total")
}
