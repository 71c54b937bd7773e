package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transmitLatency  *prometheus.HistogramVec
	ticketsPrinted   *prometheus.CounterVec
	transmitFailures *prometheus.CounterVec
	dispatchRuns     *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "print_transmit_latency_seconds",
			Help:    "Latency of ticket transmission per printer target",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"printer"},
	)
	printed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "print_tickets_total",
			Help: "Number of tickets delivered per printer target",
		},
		[]string{"printer"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "print_transmit_failures_total",
			Help: "Number of failed transmissions per printer target and kind",
		},
		[]string{"printer", "kind"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "print_dispatch_runs_total",
			Help: "Number of dispatch runs by outcome",
		},
		[]string{"outcome"},
	)
	return lat, printed, failures, runs
}

func init() {
	transmitLatency, ticketsPrinted, transmitFailures, dispatchRuns = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(transmitLatency, ticketsPrinted, transmitFailures, dispatchRuns)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	transmitLatency, ticketsPrinted, transmitFailures, dispatchRuns = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
