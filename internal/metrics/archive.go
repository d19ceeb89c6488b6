package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	archiveFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsurety",
		Subsystem: "archive",
		Name:      "flush_total",
		Help:      "Count of event batches written to the archive.",
	}, []string{"status"})

	archiveFlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flightsurety",
		Subsystem: "archive",
		Name:      "flush_duration_seconds",
		Help:      "Duration of archive batch writes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	archiveFlushSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flightsurety",
		Subsystem: "archive",
		Name:      "flush_size",
		Help:      "Number of events per archive batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	})

	archiveCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flightsurety",
		Subsystem: "archive",
		Name:      "cursor_seq",
		Help:      "Sequence number of the last event handed to the archive.",
	})
)

// Archive records event archive metrics.
type Archive struct{}

// NewArchive creates an Archive metrics collector.
func NewArchive() *Archive {
	return &Archive{}
}

func (m Archive) ObserveFlush(err error, events int, started time.Time) {
	status := statusLabel(err)
	archiveFlushTotal.WithLabelValues(status).Inc()
	archiveFlushDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	archiveFlushSize.Observe(float64(events))
}

func (m Archive) SetCursor(seq uint64) {
	archiveCursor.Set(float64(seq))
}
