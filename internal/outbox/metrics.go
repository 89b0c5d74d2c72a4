package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of signup events successfully published to Kafka, labeled by topic.",
	}, []string{"topic"})

	publishFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "events",
		Name:      "publish_failed_total",
		Help:      "Number of signup events that could not be published, labeled by topic.",
	}, []string{"topic"})

	publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mergington",
		Subsystem: "events",
		Name:      "publish_duration_seconds",
		Help:      "Time spent resolving the schema id and writing a signup event.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(publishedCounter, publishFailedCounter, publishDuration)
}
