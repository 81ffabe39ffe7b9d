// Package metrics exposes pipeline run counters over a Prometheus endpoint,
// wired from pipeline events (spec.md §4.8's stage:{start,complete,error}
// family) rather than threaded through every stage.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copytree/copytree/internal/pipeline"
)

// Collector accumulates run metrics in Prometheus vectors keyed by stage
// name, registered against its own registry so multiple Collectors (as in
// tests) never collide on the global default registry.
type Collector struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRecords  *prometheus.GaugeVec
	stageErrors   *prometheus.CounterVec
	runsTotal     prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		stageDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "copytree",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageRecords: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "copytree",
			Name:      "stage_output_records",
			Help:      "Number of records a stage produced on its most recent run.",
		}, []string{"stage"}),
		stageErrors: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "copytree",
			Name:      "stage_errors_total",
			Help:      "Count of stage failures by stage name.",
		}, []string{"stage"}),
		runsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "copytree",
			Name:      "runs_total",
			Help:      "Count of completed pipeline runs.",
		}),
	}
}

// Listener returns a pipeline.Listener that records stage timings, output
// counts, and error counts as events arrive.
func (c *Collector) Listener() pipeline.Listener {
	return func(ev pipeline.Event) {
		switch ev.Kind {
		case pipeline.EventStageComplete:
			c.stageDuration.WithLabelValues(ev.Stage).Observe(ev.Timing.Elapsed.Seconds())
			c.stageRecords.WithLabelValues(ev.Stage).Set(float64(ev.Timing.OutputCount))
		case pipeline.EventStageError:
			c.stageErrors.WithLabelValues(ev.Stage).Inc()
		case pipeline.EventPipelineComplete:
			c.runsTotal.Inc()
		}
	}
}

// Server wraps an *http.Server exposing the Collector's registry at /metrics.
type Server struct {
	http *http.Server
}

// NewServer builds a metrics HTTP server listening on addr, serving c's
// registry at /metrics.
func NewServer(addr string, c *Collector) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return &Server{http: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Start begins serving in the background. It returns the listen error if one
// occurs within 50ms, and nil otherwise.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("starting metrics server on %s: %w", s.http.Addr, err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
