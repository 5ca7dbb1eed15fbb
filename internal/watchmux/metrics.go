package watchmux

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	channelsGauge prometheus.Gauge
	watchersGauge prometheus.Gauge
	emissionsCnt  prometheus.Counter
}

func newMetrics() *metrics {
	const ss = "watchmux"
	return &metrics{
		channelsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "channels_gauge",
			Subsystem: ss,
			Help:      "Count of live shared channels",
		}),
		watchersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "watchers_gauge",
			Subsystem: ss,
			Help:      "Count of acquired watcher views",
		}),
		emissionsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "emissions_cnt",
			Subsystem: ss,
			Help:      "Count of backend feed emissions fanned out",
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.channelsGauge,
		m.watchersGauge,
		m.emissionsCnt,
	}
}
