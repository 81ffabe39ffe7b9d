package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/copytree/copytree/internal/pipeline"
)

func TestCollectorListenerRecordsStageEvents(t *testing.T) {
	c := NewCollector()
	listener := c.Listener()

	listener(pipeline.Event{
		Kind:  pipeline.EventStageComplete,
		Stage: "file_discovery",
		Timing: pipeline.StageTiming{
			Elapsed:     250 * time.Millisecond,
			OutputCount: 12,
		},
	})
	listener(pipeline.Event{Kind: pipeline.EventStageError, Stage: "transform"})
	listener(pipeline.Event{Kind: pipeline.EventPipelineComplete})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.stageErrors.WithLabelValues("transform")))
	assert.Equal(t, float64(12), testutil.ToFloat64(c.stageRecords.WithLabelValues("file_discovery")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal))
}

func TestCollectorListenerIgnoresOtherKinds(t *testing.T) {
	c := NewCollector()
	listener := c.Listener()

	listener(pipeline.Event{Kind: pipeline.EventStageStart, Stage: "file_discovery"})
	listener(pipeline.Event{Kind: pipeline.EventFileBatch, BatchCount: 3})

	assert.Equal(t, float64(0), testutil.ToFloat64(c.runsTotal))
}

func TestCollectorRegistryServesMetrics(t *testing.T) {
	c := NewCollector()
	c.runsTotal.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "copytree_runs_total 1")
}

func TestServerStartAndShutdown(t *testing.T) {
	c := NewCollector()
	srv := NewServer("127.0.0.1:0", c)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx := t.Context()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestServerStartReportsBindFailure(t *testing.T) {
	c := NewCollector()
	blocker := httptest.NewServer(http.NotFoundHandler())
	defer blocker.Close()

	addr := strings.TrimPrefix(blocker.URL, "http://")

	srv := NewServer(addr, c)
	if err := srv.Start(); err == nil {
		t.Fatal("expected Start to report the bind conflict, got nil")
	}
}
