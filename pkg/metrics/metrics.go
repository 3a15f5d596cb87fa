// Package metrics wires the additive Prometheus observability surface
// described in SPEC_FULL.md §2: a connection gauge, per-command-type
// counters, and eviction/expiration/snapshot counters, exposed over a
// second, plain net/http listener separate from the RESP/HTTP client
// port.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry groups kvmir's counters and gauges under one Prometheus
// registerer, so a server and its tests can each hold an independent set
// without colliding on the global default registry.
type Registry struct {
	reg *prometheus.Registry

	Connections   prometheus.Gauge
	CommandsTotal *prometheus.CounterVec
	Evictions     prometheus.Counter
	Expirations   prometheus.Counter
	SnapshotOK    prometheus.Counter
	SnapshotFail  prometheus.Counter
}

// New builds a Registry with all kvmir collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvmir",
			Name:      "connections_open",
			Help:      "Number of currently open client connections.",
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvmir",
			Name:      "commands_total",
			Help:      "Number of commands processed, by command name.",
		}, []string{"command"}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kvmir",
			Name:      "evictions_total",
			Help:      "Number of keys evicted due to capacity limits.",
		}),
		Expirations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kvmir",
			Name:      "expirations_total",
			Help:      "Number of keys removed due to TTL expiry.",
		}),
		SnapshotOK: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kvmir",
			Name:      "snapshot_writes_total",
			Help:      "Number of successful snapshot writes.",
		}),
		SnapshotFail: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kvmir",
			Name:      "snapshot_write_failures_total",
			Help:      "Number of snapshot writes that failed.",
		}),
	}
}

// ObserveCommand increments the per-command counter for name.
func (r *Registry) ObserveCommand(name string) {
	r.CommandsTotal.WithLabelValues(name).Inc()
}

// Server serves the registry's collectors over /metrics on its own
// listener, kept separate from the client-facing RESP/HTTP port per
// SPEC_FULL.md §2.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer builds a metrics HTTP server bound to addr. Call Serve to run
// it; it shuts down when Serve's context is canceled.
func NewServer(addr string, reg *Registry, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		logger:     logger,
	}
}

// Serve runs the metrics listener until ctx is canceled or the server
// fails. It never returns http.ErrServerClosed as an error.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("shutting down metrics server")
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
