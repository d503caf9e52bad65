package observability

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(MetricsConfig{ServiceName: "napkin-mcp-test"}, logging.NewNop())
	require.NoError(t, err)
	return m
}

func newTestTracing(t *testing.T) (*TracingProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracingProvider(context.Background(), TracingConfig{
		ServiceName:    "napkin-mcp-test",
		ExporterType:   ExporterTypeNoop,
		SpanProcessors: []sdktrace.SpanProcessor{recorder},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestMetrics_Record(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordNapkinCall("GET", "success", 12*time.Millisecond)
	m.RecordAttempt("GET", "200")
	m.RecordRetry("GET")
	m.RecordRetry("GET")
	m.RecordError("RATE_LIMITED")
	m.RecordToolCall("napkin_create_visual", "ok", time.Millisecond)
	m.RecordRequest("tools/call", "ok", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.callTotal.WithLabelValues("GET", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retryTotal.WithLabelValues("GET")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorTotal.WithLabelValues("RATE_LIMITED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallTotal.WithLabelValues("napkin_create_visual", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	// Each Metrics owns its registry, so two instances never collide.
	newTestMetrics(t)
	newTestMetrics(t)
}

func TestMetrics_Handler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordRetry("POST")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `napkin_mcp_napkin_retry_total{method="POST",service="napkin-mcp-test"} 1`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}

func TestMetrics_ServeStopsOnCancel(t *testing.T) {
	m := newTestMetrics(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestNewTracingProvider_UnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(context.Background(), TracingConfig{ExporterType: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestCreateSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), createSampler(TracingConfig{SampleRate: 1}).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), createSampler(TracingConfig{SampleRate: -1}).Description())
	assert.Contains(t, createSampler(TracingConfig{SampleRate: 0.5}).Description(), "TraceIDRatioBased")
}

func TestObserver_NapkinClient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"busy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	m := newTestMetrics(t)
	tp, recorder := newTestTracing(t)
	obs := NewObserver(m, tp)

	client, err := napkin.New(napkin.Config{BaseURL: srv.URL, APIKey: "k", MaxRetries: 2}, napkin.WithObserver(obs))
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/v1/visual/abc/status")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptTotal.WithLabelValues("GET", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retryTotal.WithLabelValues("GET")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callTotal.WithLabelValues("GET", "success")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "napkin GET", spans[0].Name())
	assert.Equal(t, otelcodes.Ok, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 4)
}

func TestObserver_NapkinClientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	}))
	defer srv.Close()

	m := newTestMetrics(t)
	tp, recorder := newTestTracing(t)

	client, err := napkin.New(napkin.Config{BaseURL: srv.URL, APIKey: "k"}, napkin.WithObserver(NewObserver(m, tp)))
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "/v1/visual", map[string]string{"content": "x"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.callTotal.WithLabelValues("POST", "http")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.retryTotal))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Error, spans[0].Status().Code)
}

func TestObserver_NilProviders(t *testing.T) {
	obs := NewObserver(nil, nil)
	ctx := obs.CallStarted(context.Background(), "GET", "http://x")
	obs.AttemptStarted(ctx, napkin.Attempt{Method: "GET", Index: 1})
	obs.AttemptFinished(ctx, napkin.Attempt{Method: "GET"}, 0, errors.New("boom"), time.Millisecond)
	obs.CallFinished(ctx, "GET", "http://x", 1, errors.New("boom"), time.Millisecond)

	_, done := obs.ToolCallStarted(ctx, "napkin_get_visual_status")
	done("")
	obs.RequestHandled("ping", "ok", time.Millisecond)

	h := http.Header{}
	obs.InjectHeaders(ctx, h)
	assert.Empty(t, h)
}

func TestObserver_ToolCall(t *testing.T) {
	m := newTestMetrics(t)
	tp, recorder := newTestTracing(t)
	obs := NewObserver(m, tp)

	ctx, done := obs.ToolCallStarted(context.Background(), "napkin_create_visual")
	h := http.Header{}
	obs.InjectHeaders(ctx, h)
	assert.True(t, strings.HasPrefix(h.Get("Traceparent"), "00-"))
	done("RATE_LIMITED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallTotal.WithLabelValues("napkin_create_visual", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorTotal.WithLabelValues("RATE_LIMITED")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "tools/call napkin_create_visual", spans[0].Name())
	assert.Equal(t, otelcodes.Error, spans[0].Status().Code)
}

func TestObserver_TransportPropagatesTrace(t *testing.T) {
	tp, recorder := newTestTracing(t)
	obs := NewObserver(nil, tp)

	var traceparent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent.Store(r.Header.Get("Traceparent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	client, err := napkin.New(napkin.Config{BaseURL: srv.URL, APIKey: "k"},
		napkin.WithObserver(obs),
		napkin.WithHTTPClient(&http.Client{Transport: obs.Transport(nil)}),
	)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/v1/visual/x/status")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	header, _ := traceparent.Load().(string)
	assert.Contains(t, header, spans[0].SpanContext().TraceID().String())
}

func TestAttemptLabel(t *testing.T) {
	assert.Equal(t, "429", attemptLabel(429, nil))
	assert.Equal(t, "timeout", attemptLabel(0, &napkin.Fault{Kind: napkin.FaultTimeout}))
	assert.Equal(t, "error", attemptLabel(0, errors.New("x")))
}
