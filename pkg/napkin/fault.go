package napkin

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

// FaultKind tags the failure modes of a single attempt.
type FaultKind int

const (
	// FaultNetwork is a DNS, connection or other transport-level failure.
	FaultNetwork FaultKind = iota + 1
	// FaultTimeout means the attempt deadline elapsed or the call was cancelled.
	FaultTimeout
	// FaultHTTP is a non-2xx response.
	FaultHTTP
	// FaultDecode is a response body that could not be parsed as JSON.
	FaultDecode
)

func (k FaultKind) String() string {
	switch k {
	case FaultNetwork:
		return "network"
	case FaultTimeout:
		return "timeout"
	case FaultHTTP:
		return "http"
	case FaultDecode:
		return "decode"
	default:
		return "unknown"
	}
}

const snippetLimit = 200

// Fault is the unclassified failure returned by Client.Execute.
type Fault struct {
	Kind    FaultKind
	Method  string
	URL     string
	Attempt int

	// Status is set for FaultHTTP and, when a response arrived, FaultDecode.
	Status int
	// Body is the parsed response body of a FaultHTTP.
	Body        interface{}
	RawBody     string
	ContentType string

	Err error
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultHTTP:
		return fmt.Sprintf("Napkin API error %d", f.Status)
	case FaultDecode:
		parts := []string{"Failed to parse JSON response from " + f.URL}
		if f.ContentType != "" {
			parts = append(parts, "content-type: "+f.ContentType)
		}
		if f.RawBody != "" {
			parts = append(parts, "response snippet: "+snippet(f.RawBody))
		}
		return strings.Join(parts, " | ")
	case FaultTimeout:
		if f.Err != nil {
			return fmt.Sprintf("request to %s timed out: %v", f.URL, f.Err)
		}
		return fmt.Sprintf("request to %s timed out", f.URL)
	default:
		if f.Err != nil {
			return f.Err.Error()
		}
		return fmt.Sprintf("%s fault contacting %s", f.Kind, f.URL)
	}
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Timeout reports whether the fault is a timeout or cancellation.
func (f *Fault) Timeout() bool {
	return f.Kind == FaultTimeout
}

// Retriable reports whether the client may issue another attempt after this
// fault. HTTP faults are retriable only for 429 and 5xx.
func (f *Fault) Retriable() bool {
	if f.Kind == FaultHTTP {
		return RetriableStatus(f.Status)
	}
	return true
}

// LogFields implements logging.FieldsProvider.
func (f *Fault) LogFields() []logging.Field {
	fields := []logging.Field{
		logging.String("fault", f.Kind.String()),
		logging.String("url", f.URL),
		logging.Int("attempt", f.Attempt),
	}
	if f.Status != 0 {
		fields = append(fields, logging.Int("status", f.Status))
	}
	return fields
}

// RetriableStatus reports whether an HTTP status is in {429} ∪ [500,599].
func RetriableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

func snippet(s string) string {
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	return s
}
