package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventboard/internal/model"
)

var (
	eventsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventboard_events",
			Help: "Events on the board per derived status at the last refresh",
		},
		[]string{"status"},
	)

	refreshTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventboard_refresh_ticks_total",
			Help: "Status re-evaluations triggered by the refresh ticker",
		},
	)

	rejectedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventboard_rejected_events",
			Help: "Catalog and feed events excluded because their date or time did not parse",
		},
	)

	feedRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventboard_feed_refreshes_total",
			Help: "ICS feed refresh runs by result",
		},
		[]string{"result"},
	)
)

// ObserveStatuses records the per-status event counts of a board render.
func ObserveStatuses(counts map[model.Status]int) {
	for _, s := range []model.Status{model.StatusOngoing, model.StatusUpcoming, model.StatusPast} {
		eventsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ObserveTick counts one refresh tick.
func ObserveTick() {
	refreshTicks.Inc()
}

// SetRejected records how many events were excluded at load time.
func SetRejected(n int) {
	rejectedEvents.Set(float64(n))
}

// ObserveFeedRefresh counts a feed refresh run.
func ObserveFeedRefresh(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	feedRefreshes.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
