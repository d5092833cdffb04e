package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexo_alert_fetch_total",
		Help: "The total number of source fetches",
	}, []string{"source", "status"})

	metricNewItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexo_alert_new_items_total",
		Help: "The total number of new items found",
	}, []string{"source"})

	metricNotify = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexo_alert_notify_total",
		Help: "The total number of notification attempts",
	}, []string{"transport", "status"})

	metricPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexo_alert_price_usd",
		Help: "The last recorded price in USD",
	})

	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexo_alert_runs_total",
		Help: "The total number of pipeline runs",
	}, []string{"status"})
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
