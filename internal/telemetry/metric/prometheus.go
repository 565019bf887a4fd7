package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
)

const namespace = "respkv"

// Command status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Keys            prometheus.Gauge
	ExpiredKeys     prometheus.Counter
	SnapshotKeys    prometheus.Gauge

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ProtocolErrors    *prometheus.CounterVec
	RateLimited       prometheus.Counter
}

// NewRegistry creates a registry with Go runtime, process and build
// metrics already registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	info := buildinfo.Get()
	promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information; always 1.",
		ConstLabels: prometheus.Labels{"version": info.Version, "commit": info.Commit, "go_version": info.GoVersion},
	}).Set(1)

	f := promauto.With(reg)
	return &Registry{
		registry: reg,

		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "commands_total",
			Help:      "Commands applied by the store actor.",
		}, []string{"command", "status"}),

		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "command_duration_seconds",
			Help:      "Time spent applying a command on the actor goroutine.",
			Buckets:   []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"command"}),

		Keys: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "keys",
			Help:      "Keys currently held, including expired keys not yet evicted.",
		}),

		ExpiredKeys: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "keys_expired_total",
			Help:      "Keys evicted after their deadline passed.",
		}),

		SnapshotKeys: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "keys_loaded",
			Help:      "Keys loaded from the snapshot at startup.",
		}),

		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Current number of client connections.",
		}),

		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),

		ProtocolErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "protocol_errors_total",
			Help:      "Requests rejected before reaching the store, by reason.",
		}, []string{"reason"}),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "rate_limited_total",
			Help:      "Commands delayed by the per-connection rate limiter.",
		}),
	}
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// CommandApplied records one command applied by the store actor.
func (r *Registry) CommandApplied(name string, failed bool, elapsed time.Duration) {
	status := StatusOK
	if failed {
		status = StatusError
	}
	r.CommandsTotal.WithLabelValues(name, status).Inc()
	r.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// KeysChanged records the current key count.
func (r *Registry) KeysChanged(count int) {
	r.Keys.Set(float64(count))
}

// KeysExpired records evicted keys.
func (r *Registry) KeysExpired(count int) {
	r.ExpiredKeys.Add(float64(count))
}

// SnapshotLoaded records the number of keys recovered at startup.
func (r *Registry) SnapshotLoaded(count int) {
	r.SnapshotKeys.Set(float64(count))
}

// ConnOpened records an accepted client connection.
func (r *Registry) ConnOpened() {
	r.ConnectionsActive.Inc()
	r.ConnectionsTotal.Inc()
}

// ConnClosed records a closed client connection.
func (r *Registry) ConnClosed() {
	r.ConnectionsActive.Dec()
}

// ProtocolError records a request rejected by the gateway.
func (r *Registry) ProtocolError(reason string) {
	r.ProtocolErrors.WithLabelValues(reason).Inc()
}

// CommandThrottled records a command delayed by the rate limiter.
func (r *Registry) CommandThrottled() {
	r.RateLimited.Inc()
}
