package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
)

// Classify maps any failure produced by or around a napkin.Client call to
// exactly one ToolError. Rules, first match wins:
//
//  1. timeout or cancellation: TIMEOUT
//  2. connection-level fault: NETWORK_ERROR
//  3. HTTP fault: code from the status table, with the status and body
//     attached as Original
//  4. anything else: INTERNAL_ERROR
//
// Errors that are already a *ToolError are returned unchanged.
func Classify(err error) *ToolError {
	if err == nil {
		return New(CodeInternal, "unknown error")
	}
	if te, ok := AsToolError(err); ok {
		return te
	}

	var fault *napkin.Fault
	if errors.As(err, &fault) {
		switch fault.Kind {
		case napkin.FaultTimeout:
			return Wrap(err, CodeTimeout, "")
		case napkin.FaultNetwork:
			return Wrap(err, CodeNetworkError, networkMessage(fault.Err))
		case napkin.FaultHTTP:
			return FromStatus(fault.Status, fault.Body)
		default:
			return Wrap(err, CodeInternal, errorMessage(err))
		}
	}

	if isTimeout(err) {
		return Wrap(err, CodeTimeout, "")
	}
	if isNetwork(err) {
		return Wrap(err, CodeNetworkError, networkMessage(err))
	}
	return Wrap(err, CodeInternal, errorMessage(err))
}

// FromStatus classifies an HTTP status. Only 429 and 5xx are retriable.
func FromStatus(status int, body interface{}) *ToolError {
	var code Code
	message := ""
	switch {
	case status == 400:
		code = CodeBadRequest
	case status == 401:
		code = CodeUnauthorized
	case status == 403:
		code = CodeForbidden
	case status == 404:
		code = CodeNotFound
	case status == 410:
		code = CodeGone
	case status == 429:
		code = CodeRateLimited
	case status >= 500 && status < 600:
		code = CodeUpstreamError
	default:
		code = CodeInternal
		message = fmt.Sprintf("HTTP %d", status)
	}

	e := New(code, message)
	e.Original = &Original{Status: status, Body: body}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNetwork(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// networkMessage is the fault's own message plus its nested cause when the
// cause is not already part of it.
func networkMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if cause := errors.Unwrap(err); cause != nil {
		if causeMsg := cause.Error(); causeMsg != "" && !strings.Contains(msg, causeMsg) {
			msg = msg + ": " + causeMsg
		}
	}
	return msg
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	if data, jerr := json.Marshal(err); jerr == nil && string(data) != "{}" {
		return string(data)
	}
	return fmt.Sprintf("%#v", err)
}
