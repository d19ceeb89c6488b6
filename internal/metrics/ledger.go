package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

var (
	ledgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsurety",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Count of ledger operations.",
	}, []string{"operation", "status"})

	ledgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flightsurety",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger operations.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"operation", "status"})

	ledgerRoundsFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsurety",
		Subsystem: "ledger",
		Name:      "rounds_finalized_total",
		Help:      "Count of oracle rounds finalized, by agreed status code.",
	}, []string{"status_code"})

	ledgerPayoutsGwei = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flightsurety",
		Subsystem: "ledger",
		Name:      "payouts_gwei_total",
		Help:      "Total value paid out to insurees in gwei.",
	})
)

// Ledger records ledger operation metrics.
type Ledger struct{}

// NewLedger creates a Ledger metrics collector.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Observe records the outcome and duration of one ledger operation.
func (m Ledger) Observe(operation string, err error, started time.Time) {
	status := statusLabel(err)
	ledgerOperationsTotal.WithLabelValues(operation, status).Inc()
	ledgerOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

func (m Ledger) ObserveFinalized(status model.StatusCode) {
	ledgerRoundsFinalizedTotal.WithLabelValues(strconv.Itoa(int(status))).Inc()
}

func (m Ledger) ObservePayout(amount model.Amount) {
	ledgerPayoutsGwei.Add(float64(amount))
}
