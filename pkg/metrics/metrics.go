package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_signals_received_total",
			Help: "Inbound webhook signals received",
		},
	)

	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_signals_rejected_total",
			Help: "Signals rejected before dispatch",
		},
		[]string{"reason"},
	)

	OrdersDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_orders_dispatched_total",
			Help: "Orders accepted by the exchange",
		},
	)

	OrdersSimulated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_orders_simulated_total",
			Help: "Orders handled in simulated dispatch mode",
		},
	)

	DispatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dispatch_failures_total",
			Help: "Dispatch attempts that failed or were rejected remotely",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsReceived,
		SignalsRejected,
		OrdersDispatched,
		OrdersSimulated,
		DispatchFailures,
	)
}

// Handler exposes the registered collectors in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
