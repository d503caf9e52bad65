package errors

// JSON-RPC 2.0 standard error codes, used for protocol-level failures of the
// MCP server itself (as opposed to failures of a tool call).
const (
	// CodeParseError indicates invalid JSON was received by the server
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates internal JSON-RPC error
	CodeInternalError int = -32603

	// CodeServerNotReady is returned for requests sent before initialize
	CodeServerNotReady int = -32001

	// CodeResourceNotFound is the MCP code for an unknown resource URI
	CodeResourceNotFound int = -32002
)

var rpcCodeNames = map[int]string{
	CodeParseError:     "ParseError",
	CodeInvalidRequest: "InvalidRequest",
	CodeMethodNotFound: "MethodNotFound",
	CodeInvalidParams:  "InvalidParams",
	CodeInternalError:  "InternalError",
	CodeServerNotReady: "ServerNotReady",

	CodeResourceNotFound: "ResourceNotFound",
}

// RPCCodeName returns the name of a JSON-RPC error code
func RPCCodeName(code int) string {
	if name, ok := rpcCodeNames[code]; ok {
		return name
	}
	return "UnknownError"
}

// Code is the classified error kind reported to tool callers.
type Code string

// The ten tool error codes. Every failure of a tool call is reported as
// exactly one of them.
const (
	CodeBadRequest    Code = "BAD_REQUEST"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeGone          Code = "GONE"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeUpstreamError Code = "UPSTREAM_ERROR"
	CodeNetworkError  Code = "NETWORK_ERROR"
	CodeTimeout       Code = "TIMEOUT"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// CodeInfo provides classification metadata about a tool error code
type CodeInfo struct {
	Code        Code
	Description string
	Category    Category
	Severity    Severity
	Retriable   bool
}

var codeRegistry = map[Code]CodeInfo{
	CodeBadRequest:    {CodeBadRequest, "Bad request to Napkin API", CategoryValidation, SeverityError, false},
	CodeUnauthorized:  {CodeUnauthorized, "Unauthorized: invalid or missing API key", CategoryAuth, SeverityError, false},
	CodeForbidden:     {CodeForbidden, "Forbidden: access denied", CategoryAuth, SeverityError, false},
	CodeNotFound:      {CodeNotFound, "Not found", CategoryNotFound, SeverityWarning, false},
	CodeGone:          {CodeGone, "Gone: request has expired", CategoryNotFound, SeverityWarning, false},
	CodeRateLimited:   {CodeRateLimited, "Rate limited: slow down and retry", CategoryUpstream, SeverityWarning, true},
	CodeUpstreamError: {CodeUpstreamError, "Upstream server error", CategoryUpstream, SeverityError, true},
	CodeNetworkError:  {CodeNetworkError, "Network error contacting Napkin API", CategoryTransport, SeverityError, true},
	CodeTimeout:       {CodeTimeout, "Request timed out contacting Napkin API", CategoryTimeout, SeverityError, true},
	CodeInternal:      {CodeInternal, "Internal error", CategoryInternal, SeverityCritical, false},
}

// Codes returns all tool error codes in a stable order.
func Codes() []Code {
	return []Code{
		CodeBadRequest, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeGone,
		CodeRateLimited, CodeUpstreamError, CodeNetworkError, CodeTimeout, CodeInternal,
	}
}

// Lookup returns the registry entry of a code.
func Lookup(code Code) (CodeInfo, bool) {
	info, ok := codeRegistry[code]
	return info, ok
}

// Valid reports whether c is one of the ten known codes.
func (c Code) Valid() bool {
	_, ok := codeRegistry[c]
	return ok
}

// Retriable reports whether callers may retry an operation that failed with c.
func (c Code) Retriable() bool {
	return codeRegistry[c].Retriable
}

// Description returns the default human-readable message of c.
func (c Code) Description() string {
	if info, ok := codeRegistry[c]; ok {
		return info.Description
	}
	return "Unknown error"
}
