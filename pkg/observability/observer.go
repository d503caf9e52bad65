package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
)

// Observer implements napkin.Observer and the server hooks on top of the
// metrics and tracing providers. Either provider may be nil.
type Observer struct {
	metrics *Metrics
	tracing *TracingProvider
}

var _ napkin.Observer = (*Observer)(nil)

// NewObserver creates an observer
func NewObserver(metrics *Metrics, tracing *TracingProvider) *Observer {
	return &Observer{metrics: metrics, tracing: tracing}
}

// CallStarted opens a client span for a logical Napkin call.
func (o *Observer) CallStarted(ctx context.Context, method, url string) context.Context {
	if o.tracing == nil {
		return ctx
	}
	ctx, _ = o.tracing.StartSpan(ctx, "napkin "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	return ctx
}

// AttemptStarted counts retries and marks the attempt on the span.
func (o *Observer) AttemptStarted(ctx context.Context, a napkin.Attempt) {
	if o.metrics != nil && a.Index > 0 {
		o.metrics.RecordRetry(a.Method)
	}
	if o.tracing != nil {
		o.tracing.AddEvent(ctx, "attempt.start", attribute.Int("napkin.attempt", a.Index))
	}
}

// AttemptFinished records the status or fault kind of one attempt.
func (o *Observer) AttemptFinished(ctx context.Context, a napkin.Attempt, status int, err error, elapsed time.Duration) {
	label := attemptLabel(status, err)
	if o.metrics != nil {
		o.metrics.RecordAttempt(a.Method, label)
	}
	if o.tracing != nil {
		o.tracing.AddEvent(ctx, "attempt.finish",
			attribute.Int("napkin.attempt", a.Index),
			attribute.String("napkin.attempt.result", label),
			attribute.Int64("napkin.attempt.elapsed_ms", elapsed.Milliseconds()),
		)
	}
}

// CallFinished records the call outcome and ends the span opened by
// CallStarted.
func (o *Observer) CallFinished(ctx context.Context, method, _ string, attempts int, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = faultLabel(err)
	}
	if o.metrics != nil {
		o.metrics.RecordNapkinCall(method, outcome, elapsed)
	}
	if o.tracing == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("napkin.attempts", attempts))
	if err != nil {
		o.tracing.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHeaders writes the trace context of ctx into h.
func (o *Observer) InjectHeaders(ctx context.Context, h http.Header) {
	if o.tracing != nil {
		o.tracing.Inject(ctx, propagation.HeaderCarrier(h))
	}
}

// Transport wraps base so that every outgoing request carries the trace
// context of its request context. A nil base uses http.DefaultTransport.
func (o *Observer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req = req.Clone(req.Context())
		o.InjectHeaders(req.Context(), req.Header)
		return base.RoundTrip(req)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// ToolCallStarted opens a span for a tool call. The returned function must
// be called once with the classified error code ("" on success).
func (o *Observer) ToolCallStarted(ctx context.Context, tool string) (context.Context, func(code string)) {
	start := time.Now()
	var span trace.Span
	if o.tracing != nil {
		ctx, span = o.tracing.StartSpan(ctx, "tools/call "+tool,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", tool)),
		)
	}
	return ctx, func(code string) {
		status := "ok"
		if code != "" {
			status = "error"
		}
		if o.metrics != nil {
			o.metrics.RecordToolCall(tool, status, time.Since(start))
			if code != "" {
				o.metrics.RecordError(code)
			}
		}
		if span != nil {
			if code != "" {
				span.SetAttributes(attribute.String("mcp.error_code", code))
				span.SetStatus(codes.Error, code)
			}
			span.End()
		}
	}
}

// RequestHandled records an incoming JSON-RPC request.
func (o *Observer) RequestHandled(method, status string, elapsed time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordRequest(method, status, elapsed)
	}
}

func attemptLabel(status int, err error) string {
	if status != 0 {
		return statusLabel(status)
	}
	return faultLabel(err)
}

func faultLabel(err error) string {
	var fault *napkin.Fault
	if errors.As(err, &fault) {
		return fault.Kind.String()
	}
	return "error"
}
