package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// Metrics exposes the status report as Prometheus gauges. Values are read
// from the service on every scrape.
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics registers the scene gauges for svc on a private registry.
func NewMetrics(svc *Service) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"session": svc.deps.Session.ID()}

	gauge := func(name, help string, value func(Status) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "wayfinder",
			Subsystem:   "scene",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return value(svc.GetStatus()) })
	}

	collectors := []prometheus.Collector{
		gauge("entities", "Spawned entities, visible or hidden.",
			func(s Status) float64 { return float64(s.Entities) }),
		gauge("tracked_markers", "Markers in the Tracking state.",
			func(s Status) float64 { return float64(s.Tracked) }),
		gauge("pending_inputs", "Inputs queued for the next step.",
			func(s Status) float64 { return float64(s.PendingInputs) }),
		gauge("pending_markers", "Marker events waiting for the next frame.",
			func(s Status) float64 { return float64(s.PendingMarkers) }),
		gauge("frames", "Non-empty frames handed to the session.",
			func(s Status) float64 { return float64(s.Frames) }),
		gauge("last_write_seconds", "Duration of the last recording write.",
			func(s Status) float64 { return s.LastWriteMs / 1000 }),
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return &Metrics{registry: registry}, nil
}

// Registry returns the registry holding the scene gauges.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers adds the metrics route to mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle(metricsPath, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

// Serve exposes the metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
