package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteWriteServer records every write request it receives.
func remoteWriteServer(t *testing.T) (*httptest.Server, chan []prompb.TimeSeries) {
	t.Helper()
	received := make(chan []prompb.TimeSeries, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/write", r.URL.Path)
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "0.1.0", r.Header.Get("X-Prometheus-Remote-Write-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))

		received <- writeReq.Timeseries
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func findLabel(labels []prompb.Label, name string) string {
	for _, l := range labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestNewPushRegistry(t *testing.T) {
	tests := []struct {
		name        string
		cfg         PushConfig
		wantURL     string
		wantTimeout time.Duration
	}{
		{
			name:        "minimal config",
			cfg:         PushConfig{URL: "http://localhost:9090"},
			wantURL:     "http://localhost:9090/api/v1/write",
			wantTimeout: DefaultTimeout,
		},
		{
			name: "full config",
			cfg: PushConfig{
				URL:      "http://localhost:9090/",
				Prefix:   "test",
				Job:      "testjob",
				Instance: "testinstance",
				Timeout:  5 * time.Second,
			},
			wantURL:     "http://localhost:9090/api/v1/write",
			wantTimeout: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewPushRegistry(tt.cfg)
			require.NotNil(t, registry)
			assert.Equal(t, tt.wantURL, registry.url)
			assert.Equal(t, tt.wantTimeout, registry.httpClient.Timeout)
		})
	}
}

func TestPushRegistry_FlushEmpty(t *testing.T) {
	server, received := remoteWriteServer(t)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	require.NoError(t, registry.Flush(context.Background()))
	assert.Empty(t, received)
}

func TestPushRegistry_GaugeVec(t *testing.T) {
	server, received := remoteWriteServer(t)
	registry := NewPushRegistry(PushConfig{
		URL:      server.URL,
		Prefix:   "test",
		Job:      "testjob",
		Instance: "testinstance",
	})

	gaugeVec, err := registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "in_flight",
		Help: "A test gauge vector",
	}, []string{"store", "action"})
	require.NoError(t, err)

	gauge := gaugeVec.With(prometheus.Labels{"store": "activity", "action": "load"})
	gauge.Set(3)
	gauge.Add(-1)

	require.NoError(t, registry.Flush(context.Background()))

	timeseries := <-received
	require.Len(t, timeseries, 1)
	ts := timeseries[0]
	assert.Equal(t, "test_in_flight", findLabel(ts.Labels, "__name__"))
	assert.Equal(t, "testjob", findLabel(ts.Labels, "job"))
	assert.Equal(t, "testinstance", findLabel(ts.Labels, "instance"))
	assert.Equal(t, "activity", findLabel(ts.Labels, "store"))
	assert.Equal(t, "load", findLabel(ts.Labels, "action"))
	require.Len(t, ts.Samples, 1)
	assert.Equal(t, 2.0, ts.Samples[0].Value)
}

func TestPushRegistry_CounterVecAccumulates(t *testing.T) {
	server, received := remoteWriteServer(t)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	counterVec, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_total",
		Help: "A test counter vector",
	}, []string{"outcome"})
	require.NoError(t, err)

	counterVec.With(prometheus.Labels{"outcome": "success"}).Inc()
	counterVec.With(prometheus.Labels{"outcome": "success"}).Inc()
	counterVec.With(prometheus.Labels{"outcome": "failure"}).Add(5)

	require.NoError(t, registry.Flush(context.Background()))

	timeseries := <-received
	require.Len(t, timeseries, 2)

	values := map[string]float64{}
	for _, ts := range timeseries {
		values[findLabel(ts.Labels, "outcome")] = ts.Samples[0].Value
	}
	assert.Equal(t, map[string]float64{"success": 2, "failure": 5}, values)
}

func TestPushRegistry_FlushErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL})
	gaugeVec, err := registry.NewGaugeVec(prometheus.GaugeOpts{Name: "g"}, nil)
	require.NoError(t, err)
	gaugeVec.With(nil).Set(1)

	err = registry.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestSeriesKey(t *testing.T) {
	a := seriesKey("m", prometheus.Labels{"a": "1", "b": "2"})
	b := seriesKey("m", prometheus.Labels{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, seriesKey("m", prometheus.Labels{"a": "1"}))
}

func TestScrapeRegistry(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)
	require.NotNil(t, registry)

	gaugeVec, err := registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	}, []string{"store"})
	require.NoError(t, err)
	gaugeVec.With(prometheus.Labels{"store": "profile"}).Set(42.0)

	counterVec, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	}, []string{"store"})
	require.NoError(t, err)
	counterVec.With(prometheus.Labels{"store": "profile"}).Inc()

	// Registering the same name twice fails.
	_, err = registry.NewCounterVec(prometheus.CounterOpts{Name: "test_counter", Help: "dup"}, []string{"store"})
	require.Error(t, err)

	handler := registry.Handler()
	require.NotNil(t, handler)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `test_gauge{store="profile"} 42`)
	assert.Contains(t, body, `test_counter{store="profile"} 1`)
}

func TestActionMetrics(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	m, err := NewActionMetrics(registry)
	require.NoError(t, err)

	done := m.Started("activity", "load")
	done(nil)
	m.Started("activity", "load")(errors.New("boom"))
	pending := m.Started("profile", "follow")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, req)
	body := w.Body.String()

	assert.Contains(t, body, `reactivities_actions_total{action="load",outcome="success",store="activity"} 1`)
	assert.Contains(t, body, `reactivities_actions_total{action="load",outcome="failure",store="activity"} 1`)
	assert.Contains(t, body, `reactivities_actions_in_flight{action="load",store="activity"} 0`)
	assert.Contains(t, body, `reactivities_actions_in_flight{action="follow",store="profile"} 1`)

	pending(nil)
}

func TestNopActionMetrics(t *testing.T) {
	m := NopActionMetrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.Started("activity", "load")(nil)
	})
}
