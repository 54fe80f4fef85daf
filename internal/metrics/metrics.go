package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preventivi_registered_total",
		Help: "Total number of new quotes announced to groups",
	})
	Reminders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preventivi_reminders_total",
		Help: "Total number of reminder notices sent",
	})
	Confirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preventivi_confirmed_total",
		Help: "Total number of quotes confirmed by groups",
	})
	Expired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preventivi_expired_total",
		Help: "Total number of quotes expired without confirmation",
	})
	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preventivi_delivery_failures_total",
		Help: "Total number of Telegram messages that could not be delivered",
	})
	// CycleFailures stage: scan, share, flush, panic
	CycleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "preventivi_cycle_failures_total",
		Help: "Total number of scheduling cycle failures by stage",
	}, []string{"stage"})
	Pending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "preventivi_pending",
		Help: "Number of quotes currently awaiting confirmation",
	})
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "preventivi_cycle_duration_seconds",
		Help:    "Duration of a scan and tick cycle",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Registered)
	prometheus.MustRegister(Reminders)
	prometheus.MustRegister(Confirmed)
	prometheus.MustRegister(Expired)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(CycleFailures)
	prometheus.MustRegister(Pending)
	prometheus.MustRegister(CycleDuration)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
