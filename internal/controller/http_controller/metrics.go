package http_controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requestsCnt   prometheus.Counter
	watchersGauge prometheus.Gauge
}

func newMetrics() *metrics {
	const ss = "http_doc_controller"
	return &metrics{
		requestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "requests_cnt",
			Subsystem: ss,
			Help:      "Count of incoming requests",
		}),
		watchersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "watchers_gauge",
			Subsystem: ss,
			Help:      "Count of attached SSE watchers",
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsCnt,
		m.watchersGauge,
	}
}
