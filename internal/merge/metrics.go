package merge

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unison",
			Subsystem: "merge",
			Name:      "source_fetches_total",
			Help:      "Page sub-requests issued to sources.",
		},
		[]string{"collection", "source", "success"},
	)
	sourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unison",
			Subsystem: "merge",
			Name:      "source_fetch_duration_seconds",
			Help:      "Page sub-request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection", "source"},
	)
	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unison",
			Subsystem: "merge",
			Name:      "mutations_total",
			Help:      "Routed insert and remove requests.",
		},
		[]string{"collection", "source", "op", "success"},
	)
	publishedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unison",
			Subsystem: "merge",
			Name:      "events_total",
			Help:      "Events published to collection subscribers.",
		},
		[]string{"collection", "kind"},
	)
)

// RegisterMetrics registers the engine collectors with the default registry. Safe to call repeatedly.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sourceFetches, sourceFetchDuration, mutations, publishedEvents)
	})
}

func recordFetch(collection, source string, duration time.Duration, err error) {
	sourceFetches.WithLabelValues(collection, source, successLabel(err)).Inc()
	sourceFetchDuration.WithLabelValues(collection, source).Observe(duration.Seconds())
}

func recordMutation(collection, source, op string, err error) {
	mutations.WithLabelValues(collection, source, op, successLabel(err)).Inc()
}

func recordEvent(collection string, kind EventKind) {
	publishedEvents.WithLabelValues(collection, kind.String()).Inc()
}

func successLabel(err error) string {
	if err != nil {
		return "false"
	}
	return "true"
}
