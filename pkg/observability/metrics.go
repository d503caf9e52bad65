package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Addr is the listen address of the metrics endpoint (default :9464)
	Addr        string
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)

	Namespace        string    // Prometheus namespace (default: napkin_mcp)
	HistogramBuckets []float64 // Custom histogram buckets for latency in milliseconds

	// Labels to add to all metrics
	ConstLabels prometheus.Labels

	// ProcessCollectors adds the Go runtime and process collectors.
	ProcessCollectors bool
}

// Metrics records Napkin client and MCP server metrics in a dedicated
// Prometheus registry.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry
	logger   logging.Logger

	// Napkin API calls
	callDuration *prometheus.HistogramVec
	callTotal    *prometheus.CounterVec
	attemptTotal *prometheus.CounterVec
	retryTotal   *prometheus.CounterVec
	errorTotal   *prometheus.CounterVec

	// MCP server
	requestDuration  *prometheus.HistogramVec
	toolCallDuration *prometheus.HistogramVec
	toolCallTotal    *prometheus.CounterVec
}

// NewMetrics creates the metrics provider and registers its collectors
func NewMetrics(config MetricsConfig, logger logging.Logger) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "napkin_mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.Addr == "" {
		config.Addr = ":9464"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 60000}
	}
	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	if config.ServiceName != "" {
		config.ConstLabels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		config.ConstLabels["version"] = config.ServiceVersion
	}
	if config.Environment != "" {
		config.ConstLabels["environment"] = config.Environment
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
		logger:   logger.WithFields(logging.String("component", "metrics")),
	}
	m.initializeMetrics()

	if err := m.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.config.Namespace,
		Name:        name,
		Help:        help,
		Buckets:     m.config.HistogramBuckets,
		ConstLabels: m.config.ConstLabels,
	}, labels)
}

func (m *Metrics) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.config.Namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.config.ConstLabels,
	}, labels)
}

func (m *Metrics) initializeMetrics() {
	m.callDuration = m.histogram("napkin_call_duration_milliseconds",
		"Duration of logical Napkin API calls including retries in milliseconds", "method", "outcome")
	m.callTotal = m.counter("napkin_call_total",
		"Total number of logical Napkin API calls", "method", "outcome")
	m.attemptTotal = m.counter("napkin_attempt_total",
		"Total number of Napkin API attempts by HTTP status or fault", "method", "status")
	m.retryTotal = m.counter("napkin_retry_total",
		"Total number of retried Napkin API attempts", "method")
	m.errorTotal = m.counter("error_total",
		"Total number of classified tool errors", "code")

	m.requestDuration = m.histogram("request_duration_milliseconds",
		"Duration of incoming MCP requests in milliseconds", "method", "status")
	m.toolCallDuration = m.histogram("tool_call_duration_milliseconds",
		"Duration of tool calls in milliseconds", "tool", "status")
	m.toolCallTotal = m.counter("tool_call_total",
		"Total number of tool calls", "tool", "status")
}

func (m *Metrics) registerMetrics() error {
	cs := []prometheus.Collector{
		m.callDuration,
		m.callTotal,
		m.attemptTotal,
		m.retryTotal,
		m.errorTotal,
		m.requestDuration,
		m.toolCallDuration,
		m.toolCallTotal,
	}
	if m.config.ProcessCollectors {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordNapkinCall records a finished logical call. outcome is "success" or
// the fault kind.
func (m *Metrics) RecordNapkinCall(method, outcome string, duration time.Duration) {
	m.callDuration.WithLabelValues(method, outcome).Observe(milliseconds(duration))
	m.callTotal.WithLabelValues(method, outcome).Inc()
}

// RecordAttempt records one attempt. status is the HTTP status code or the
// fault kind when no response arrived.
func (m *Metrics) RecordAttempt(method, status string) {
	m.attemptTotal.WithLabelValues(method, status).Inc()
}

// RecordRetry records an attempt issued after a failure
func (m *Metrics) RecordRetry(method string) {
	m.retryTotal.WithLabelValues(method).Inc()
}

// RecordError records a classified error code
func (m *Metrics) RecordError(code string) {
	m.errorTotal.WithLabelValues(code).Inc()
}

// RecordRequest records an incoming JSON-RPC request
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, status).Observe(milliseconds(duration))
}

// RecordToolCall records a tool call
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.toolCallDuration.WithLabelValues(tool, status).Observe(milliseconds(duration))
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
}

// Handler returns the HTTP handler serving the metrics registry and a
// /healthz liveness check.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(m.config.MetricsPath, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return logging.HTTPMiddleware(m.logger)(mux)
}

// Serve listens on the configured address and serves the metrics endpoint
// until ctx is done, then shuts the listener down.
func (m *Metrics) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	m.logger.Info("Metrics endpoint listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
