package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the engine updates as it
// processes events. Pass a nil *Metrics to New when metrics collection
// isn't wired up (e.g. in unit tests); a zero-value Metrics with nil
// instruments is not safe to use.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
	ProcessLatency  *prometheus.HistogramVec
	SignalsEmitted  *prometheus.CounterVec
}

// NewMetrics registers the engine's instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hftcore_events_processed_total",
			Help: "Events processed per symbol, by event kind.",
		}, []string{"symbol", "kind"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hftcore_symbol_queue_depth",
			Help: "Current per-symbol worker queue depth.",
		}, []string{"symbol"}),
		ProcessLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hftcore_event_process_seconds",
			Help:    "Time spent applying one event to a symbol's book and strategies.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"symbol"}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hftcore_signals_emitted_total",
			Help: "Trade signals emitted per strategy.",
		}, []string{"strategy"}),
	}
	reg.MustRegister(m.EventsProcessed, m.QueueDepth, m.ProcessLatency, m.SignalsEmitted)
	return m
}
