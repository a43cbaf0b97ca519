package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipedeck"

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	recorderStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "starts_total",
			Help:      "Number of successful recorder spawns.",
		},
	)
	recorderStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "stops_total",
			Help:      "Number of stop requests that signalled the recorder.",
		},
	)
	recorderExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "exits_total",
			Help:      "Number of observed recorder exits by cause.",
		}, []string{"cause"},
	)
	recorderRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "running",
			Help:      "1 while the supervisor holds a live recorder handle.",
		},
	)
	installs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "installer",
			Name:      "runs_total",
			Help:      "Number of installer runs by result.",
		}, []string{"result"},
	)
	healthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Number of health polls by result (healthy, unhealthy, error).",
		}, []string{"result"},
	)
	bridgeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Number of bridge calls by channel and result.",
		}, []string{"channel", "result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{recorderStarts, recorderStops, recorderExits, recorderRunning, installs, healthChecks, bridgeCalls}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// The helpers below no-op until Register has succeeded.

func IncStart() {
	if regOK.Load() {
		recorderStarts.Inc()
	}
}

func IncStop() {
	if regOK.Load() {
		recorderStops.Inc()
	}
}

// IncExit records an exit; cause is "stopped" when the supervisor asked for it,
// "exited" otherwise.
func IncExit(cause string) {
	if regOK.Load() {
		recorderExits.WithLabelValues(cause).Inc()
	}
}

func SetRunning(running bool) {
	if regOK.Load() {
		v := 0.0
		if running {
			v = 1
		}
		recorderRunning.Set(v)
	}
}

func IncInstall(ok bool) {
	if regOK.Load() {
		installs.WithLabelValues(result(ok)).Inc()
	}
}

// IncHealthCheck records one poll; result is "healthy", "unhealthy" or "error".
func IncHealthCheck(res string) {
	if regOK.Load() {
		healthChecks.WithLabelValues(res).Inc()
	}
}

func IncBridgeCall(channel string, ok bool) {
	if regOK.Load() {
		bridgeCalls.WithLabelValues(channel, result(ok)).Inc()
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
