package inmemory_document_store

import (
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	handleTimeHist    prometheus.Histogram
	requestsCnt       prometheus.Counter
	successProcessCnt prometheus.Counter
	errProcessCnt     prometheus.Counter
	docsGauge         prometheus.GaugeFunc
	watchersGauge     prometheus.Gauge
}

func newMetrics(store *inmemoryDocumentStore) *metrics {
	const ss = "inmemory_document_store"
	return &metrics{
		handleTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"handle_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("Handle time distribution"),
		)),
		requestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "requests_cnt",
			Subsystem: ss,
			Help:      "Count of incoming requests",
		}),
		successProcessCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "success_processes_cnt",
			Subsystem: ss,
			Help:      "Count of successfully finished processes",
		}),
		errProcessCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "err_processes_cnt",
			Subsystem: ss,
			Help:      "Count of processes finished with non-nil error",
		}),
		docsGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "docs_gauge",
			Subsystem: ss,
			Help:      "Count of stored documents",
		}, func() float64 {
			store.mu.RLock()
			defer store.mu.RUnlock()
			return float64(len(store.docs))
		}),
		watchersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "watchers_gauge",
			Subsystem: ss,
			Help:      "Count of live watch feeds",
		}),
	}
}

func (m *metrics) observe(resErr error) {
	m.requestsCnt.Inc()
	switch resErr {
	case nil:
		m.successProcessCnt.Inc()
	default:
		m.errProcessCnt.Inc()
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.handleTimeHist,
		m.requestsCnt,
		m.successProcessCnt,
		m.errProcessCnt,
		m.docsGauge,
		m.watchersGauge,
	}
}
