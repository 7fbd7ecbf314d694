package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityMutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daytrack",
		Subsystem: "persistence",
		Name:      "activity_mutations_total",
		Help:      "Number of activity mutations committed, labeled by action.",
	}, []string{"action"})

	capacityRejectionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daytrack",
		Subsystem: "domain",
		Name:      "capacity_rejections_total",
		Help:      "Number of mutations rejected by the 1440-minute daily cap.",
	})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daytrack",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity mutation persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(activityMutationCounter, capacityRejectionCounter, activityPersistGauge)
}

// RecordActivityMutation counts a committed create/update/delete.
func RecordActivityMutation(action string) {
	activityMutationCounter.WithLabelValues(action).Inc()
}

// RecordCapacityRejection counts a mutation rejected by the daily cap.
func RecordCapacityRejection() {
	capacityRejectionCounter.Inc()
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}
