package protocol

const (
	// LatestProtocolVersion is the newest MCP revision this server speaks.
	LatestProtocolVersion = "2025-06-18"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	// Methods for tools
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Methods for resources
	MethodListResources = "resources/list"
	MethodReadResource  = "resources/read"

	// MethodCancelled is sent by clients that abandon a request.
	MethodCancelled = "notifications/cancelled"
)

// SupportedProtocolVersions lists the revisions accepted during initialize,
// newest first.
var SupportedProtocolVersions = []string{
	LatestProtocolVersion,
	"2025-03-26",
	"2024-11-05",
}

// NegotiateVersion returns requested when it is supported and the latest
// supported revision otherwise.
func NegotiateVersion(requested string) string {
	for _, v := range SupportedProtocolVersions {
		if v == requested {
			return v
		}
	}
	return LatestProtocolVersion
}

// Implementation names a client or server and its version
type Implementation struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      *Implementation        `json:"clientInfo,omitempty"`
}

// ToolsCapability advertises tool support
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities lists the features offered by the server
type ServerCapabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// CancelledParams is the payload of notifications/cancelled
type CancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}
