package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

// RPCError is a protocol-level failure of the MCP server, reported as a
// JSON-RPC error object rather than as a tool result.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
	cause   error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (%d): %s", RPCCodeName(e.Code), e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return e.cause
}

// NewRPCError creates a JSON-RPC error
func NewRPCError(code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data}
}

// ParseError reports a message that is not valid JSON
func ParseError(details string) *RPCError {
	return NewRPCError(CodeParseError, "Parse error", map[string]string{"details": details})
}

// InvalidRequest reports a message that is not a valid JSON-RPC request
func InvalidRequest(details string) *RPCError {
	return NewRPCError(CodeInvalidRequest, "Invalid request", map[string]string{"details": details})
}

// MethodNotFound reports an unknown method
func MethodNotFound(method string) *RPCError {
	return NewRPCError(CodeMethodNotFound, "Method not found: "+method, map[string]string{"method": method})
}

// InvalidParams reports undecodable or semantically invalid params
func InvalidParams(details string) *RPCError {
	return NewRPCError(CodeInvalidParams, "Invalid params: "+details, nil)
}

// NotInitialized reports a request received before the initialize handshake
func NotInitialized(method string) *RPCError {
	return NewRPCError(CodeServerNotReady, "Server not initialized", map[string]string{"method": method})
}

// ResourceNotFound reports a resource URI the server does not serve
func ResourceNotFound(uri string) *RPCError {
	return NewRPCError(CodeResourceNotFound, "Resource not found: "+uri, map[string]string{"uri": uri})
}

// InternalError wraps an unexpected failure
func InternalError(operation string, cause error) *RPCError {
	msg := "Internal error in " + operation
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &RPCError{Code: CodeInternalError, Message: msg, cause: cause}
}

// ToJSONRPCError converts any error to a JSON-RPC error object. Tool errors
// become internal errors carrying the classified error as data.
func ToJSONRPCError(err error) *protocol.Error {
	resp, rerr := ToJSONRPCResponse(err, nil)
	if rerr != nil || resp == nil {
		return &protocol.Error{Code: protocol.InternalError, Message: "Internal error"}
	}
	return resp.Error
}

// ToJSONRPCResponse converts any error to a JSON-RPC error response
func ToJSONRPCResponse(err error, requestID interface{}) (*protocol.Response, error) {
	if err == nil {
		return nil, fmt.Errorf("cannot create error response from nil error")
	}

	var rpcErr *RPCError
	if As(err, &rpcErr) {
		return protocol.NewErrorResponse(requestID, protocol.ErrorCode(rpcErr.Code), rpcErr.Message, rpcErr.Data)
	}
	if te, ok := AsToolError(err); ok {
		return protocol.NewErrorResponse(requestID, protocol.InternalError, te.Message, te)
	}
	return protocol.NewErrorResponse(requestID, protocol.InternalError, err.Error(), nil)
}

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
