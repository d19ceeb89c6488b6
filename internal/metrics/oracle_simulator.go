package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var simulatorResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "flightsurety",
	Subsystem: "oracle_simulator",
	Name:      "responses_total",
	Help:      "Count of simulated oracle responses by outcome.",
}, []string{"status"})

// OracleSimulator records simulated oracle activity.
type OracleSimulator struct{}

func NewOracleSimulator() *OracleSimulator {
	return &OracleSimulator{}
}

func (m OracleSimulator) ObserveResponse(err error) {
	simulatorResponsesTotal.WithLabelValues(statusLabel(err)).Inc()
}
