package napkinmcp

import (
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/server"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/tools"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/transport"
)

// Version represents the current version of the server
const Version = "0.1.0"

// ServerName is the name reported in serverInfo
const ServerName = "napkin-mcp-server-unofficial"

// These exports provide direct access to the core components
var (
	// NewClient creates a new Napkin API client
	NewClient = napkin.New

	// NewServer creates a new MCP server
	NewServer = server.New

	// NewToolRegistry creates an empty tool registry
	NewToolRegistry = server.NewToolRegistry

	// NewStdioTransport creates a new stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// RegisterTools adds the Napkin tools to a registry
	RegisterTools = tools.Register
)

// Tool names
const (
	ToolCreateVisual     = tools.CreateVisualTool
	ToolRegenerateVisual = tools.RegenerateVisualTool
	ToolGetStatus        = tools.GetStatusTool
	ToolDownloadFile     = tools.DownloadFileTool
)

// LatestProtocolVersion is the newest MCP revision the server negotiates
const LatestProtocolVersion = protocol.LatestProtocolVersion

// Server options
var (
	WithServerName         = server.WithName
	WithServerTitle        = server.WithTitle
	WithServerVersion      = server.WithVersion
	WithServerInstructions = server.WithInstructions
	WithServerLogger       = server.WithLogger
	WithServerObserver     = server.WithObserver
)

// Client options
var (
	WithHTTPClient  = napkin.WithHTTPClient
	WithLogger      = napkin.WithLogger
	WithObserver    = napkin.WithObserver
	WithRateLimiter = napkin.WithRateLimiter
	WithUserAgent   = napkin.WithUserAgent
)
