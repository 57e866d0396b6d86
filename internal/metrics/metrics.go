package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "alpatrader_cycles_total", Help: "Trading cycles completed"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alpatrader_signals_total", Help: "Signals ingested"},
		[]string{"source"},
	)
	SignalsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alpatrader_signals_dropped_total", Help: "Signals dropped before aggregation"},
		[]string{"reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alpatrader_orders_total", Help: "Orders submitted"},
		[]string{"side", "asset_class"},
	)
	OrdersRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "alpatrader_orders_rejected_total", Help: "Orders rejected by the broker"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alpatrader_exits_total", Help: "Positions closed by exit rules"},
		[]string{"reason"},
	)
	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alpatrader_fetch_errors_total", Help: "Data feed fetch failures"},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, SignalsTotal, SignalsDropped,
		OrdersTotal, OrdersRejected, ExitsTotal, FetchErrors)
}

// Serve exposes /metrics on the given address. The returned server should be
// shut down by the caller.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
