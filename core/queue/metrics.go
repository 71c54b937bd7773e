package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	queueDepth      prometheus.Gauge
	deadLetterDepth prometheus.Gauge
	retriesTotal    *prometheus.CounterVec
	deadLetterTotal prometheus.Counter
)

func newCollectors() (prometheus.Gauge, prometheus.Gauge, *prometheus.CounterVec, prometheus.Counter) {
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "print_retry_queue_depth",
		Help: "Number of pending retry entries",
	})
	dead := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "print_dead_letter_depth",
		Help: "Number of dead-lettered jobs awaiting operator action",
	})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "print_retry_attempts_total",
		Help: "Replay attempts per printer target",
	}, []string{"printer"})
	deadTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "print_dead_letter_total",
		Help: "Jobs moved to the dead-letter list",
	})
	return depth, dead, retries, deadTotal
}

func init() {
	queueDepth, deadLetterDepth, retriesTotal, deadLetterTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers queue metrics on the provided registry. If
// reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(queueDepth, deadLetterDepth, retriesTotal, deadLetterTotal)
}

// ResetMetrics reinitializes collectors for testing purposes.
func ResetMetrics(reg prometheus.Registerer) {
	queueDepth, deadLetterDepth, retriesTotal, deadLetterTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
