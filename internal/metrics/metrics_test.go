package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankRecordsIntoLabelledCollectors(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	r := m.ForRank(2)
	r.Step(time.Millisecond)
	r.Step(time.Millisecond)
	r.Halo(true, time.Microsecond)
	r.Gather(time.Millisecond)
	r.Reset()
	r.Benchmark(0.5, 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GathersTotal.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResetsTotal.WithLabelValues("2")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.BenchmarkMean))
	assert.Equal(t, 0.1, testutil.ToFloat64(m.BenchmarkStdDev))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	r := m.ForRank(0)
	assert.Nil(t, r)

	r.Step(time.Second)
	r.Halo(false, time.Second)
	r.Gather(time.Second)
	r.Reset()
	r.Trial(time.Second)
	r.Benchmark(1, 1)
}

func TestRegisterTwiceFails(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

func TestServerExposesCollectors(t *testing.T) {
	reg, m, err := NewRegistry()
	require.NoError(t, err)
	m.ForRank(0).Step(time.Millisecond)

	srv, err := Serve("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wave_integrator_steps_total{rank="0"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHealthEndpoint(t *testing.T) {
	reg, _, err := NewRegistry()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
