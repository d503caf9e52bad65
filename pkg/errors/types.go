// Package errors normalizes every failure of a Napkin tool call into a small,
// fixed taxonomy (see Code) and provides the JSON-RPC error values used by the
// MCP server for protocol-level failures.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

// Category represents the type/category of an error for classification and handling
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "auth"
	CategoryNotFound   Category = "not_found"
	CategoryUpstream   Category = "upstream"
	CategoryTransport  Category = "transport"
	CategoryTimeout    Category = "timeout"
	CategoryInternal   Category = "internal"
	CategoryProtocol   Category = "protocol"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Original carries the upstream status and body of an HTTP failure for
// diagnostics.
type Original struct {
	Status int         `json:"status"`
	Body   interface{} `json:"body,omitempty"`
}

// ToolError is a classified tool failure. Values are built by New, Wrap,
// Classify and the validation helpers and are not modified afterwards.
type ToolError struct {
	Code      Code        `json:"code"`
	Message   string      `json:"message"`
	Retriable bool        `json:"retriable"`
	Original  *Original   `json:"original,omitempty"`
	Details   interface{} `json:"details,omitempty"`

	cause error
}

// New creates a ToolError. The retriable flag always comes from the code
// registry; an empty message falls back to the code description.
func New(code Code, message string) *ToolError {
	if !code.Valid() {
		code = CodeInternal
	}
	if message == "" {
		message = code.Description()
	}
	return &ToolError{
		Code:      code,
		Message:   message,
		Retriable: code.Retriable(),
	}
}

// Newf creates a ToolError with a formatted message
func Newf(code Code, format string, args ...interface{}) *ToolError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a ToolError that keeps err as its cause
func Wrap(err error, code Code, message string) *ToolError {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.cause
}

// Category returns the category of the error code
func (e *ToolError) Category() Category {
	if info, ok := Lookup(e.Code); ok {
		return info.Category
	}
	return CategoryInternal
}

// Severity returns the severity of the error code
func (e *ToolError) Severity() Severity {
	if info, ok := Lookup(e.Code); ok {
		return info.Severity
	}
	return SeverityError
}

// WithDetails returns a copy of e carrying structured details.
func (e *ToolError) WithDetails(details interface{}) *ToolError {
	clone := *e
	clone.Details = details
	return &clone
}

// LogFields implements logging.FieldsProvider.
func (e *ToolError) LogFields() []logging.Field {
	fields := []logging.Field{
		logging.String("error_code", string(e.Code)),
		logging.Bool("retriable", e.Retriable),
	}
	if e.Original != nil {
		fields = append(fields, logging.Int("status", e.Original.Status))
	}
	return fields
}

// ToJSON converts the error to the map reported in a tool result
func (e *ToolError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":      string(e.Code),
		"message":   e.Message,
		"retriable": e.Retriable,
	}
	if e.Original != nil {
		original := map[string]interface{}{"status": e.Original.Status}
		if e.Original.Body != nil {
			original["body"] = e.Original.Body
		}
		result["original"] = original
	}
	if e.Details != nil {
		result["details"] = e.Details
	}
	return result
}

// MarshalJSON implements json.Marshaler
func (e *ToolError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// AsToolError extracts a ToolError from an error chain
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsCode checks if an error is a ToolError with the given code
func IsCode(err error, code Code) bool {
	te, ok := AsToolError(err)
	return ok && te.Code == code
}

// IsRetriable reports whether err classifies as retriable.
func IsRetriable(err error) bool {
	return Classify(err).Retriable
}
