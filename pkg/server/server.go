package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/transport"
)

// Observer receives server-side measurements. observability.Observer
// implements it.
type Observer interface {
	// ToolCallStarted returns the context for the tool call and a function
	// called once with the error code, "" on success.
	ToolCallStarted(ctx context.Context, tool string) (context.Context, func(code string))
	RequestHandled(method, status string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ToolCallStarted(ctx context.Context, _ string) (context.Context, func(string)) {
	return ctx, func(string) {}
}

func (nopObserver) RequestHandled(string, string, time.Duration) {}

// Server represents an MCP server
type Server struct {
	transport    transport.Transport
	tools        *ToolRegistry
	resources    ResourceProvider
	name         string
	title        string
	version      string
	instructions string

	logger     logging.Logger
	middleware *logging.ContextMiddleware
	observer   Observer

	// Server state
	initialized     bool
	initializedLock sync.RWMutex
	clientInfo      *protocol.Implementation
	protocolVersion string

	// Request tracking for cancellation
	activeRequests     map[string]context.CancelFunc
	activeRequestsLock sync.Mutex
}

// ServerOption defines options for creating a server
type ServerOption func(*Server)

// WithName sets the server name
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// WithTitle sets the human-readable server title
func WithTitle(title string) ServerOption {
	return func(s *Server) {
		s.title = title
	}
}

// WithVersion sets the server version
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithInstructions sets the instructions returned from initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the metrics and tracing hooks
func WithObserver(o Observer) ServerOption {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a new MCP server and registers its handlers on t.
func New(t transport.Transport, tools *ToolRegistry, options ...ServerOption) *Server {
	if tools == nil {
		tools = NewToolRegistry()
	}

	server := &Server{
		transport:      t,
		tools:          tools,
		name:           "napkin-mcp",
		version:        "0.0.0",
		logger:         logging.NewNop(),
		observer:       nopObserver{},
		activeRequests: make(map[string]context.CancelFunc),
	}

	for _, option := range options {
		option(server)
	}

	server.logger = server.logger.WithFields(logging.String("component", "server"))
	server.middleware = logging.NewContextMiddleware(server.logger)

	t.RegisterRequestHandler(protocol.MethodInitialize, server.wrap(protocol.MethodInitialize, false, server.handleInitialize))
	t.RegisterRequestHandler(protocol.MethodPing, server.wrap(protocol.MethodPing, false, server.handlePing))
	t.RegisterRequestHandler(protocol.MethodListTools, server.wrap(protocol.MethodListTools, true, server.handleListTools))
	t.RegisterRequestHandler(protocol.MethodCallTool, server.wrap(protocol.MethodCallTool, true, server.handleCallTool))
	if server.resources != nil {
		t.RegisterRequestHandler(protocol.MethodListResources, server.wrap(protocol.MethodListResources, true, server.handleListResources))
		t.RegisterRequestHandler(protocol.MethodReadResource, server.wrap(protocol.MethodReadResource, true, server.handleReadResource))
	}

	t.RegisterNotificationHandler(protocol.MethodInitialized, server.handleInitialized)
	t.RegisterNotificationHandler(protocol.MethodCancelled, server.handleCancelled)

	return server
}

// Start initializes the transport and serves requests until the input ends
// or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Initialize(ctx); err != nil {
		return fmt.Errorf("server: initialize transport: %w", err)
	}

	s.logger.Info("Server starting",
		logging.String("name", s.name),
		logging.String("version", s.version),
		logging.Int("tools", s.tools.Len()),
	)
	return s.transport.Start(ctx)
}

// Stop cancels in-flight requests and stops the transport.
func (s *Server) Stop(ctx context.Context) error {
	s.activeRequestsLock.Lock()
	for _, cancel := range s.activeRequests {
		cancel()
	}
	s.activeRequests = make(map[string]context.CancelFunc)
	s.activeRequestsLock.Unlock()

	return s.transport.Stop(ctx)
}

// wrap applies logging, the initialization gate, cancellation tracking and
// request metrics to a handler.
func (s *Server) wrap(method string, requireInit bool, handler transport.RequestHandler) transport.RequestHandler {
	logged := s.middleware.WrapHandler(method, logging.HandlerFunc(handler))

	return func(ctx context.Context, params interface{}) (interface{}, error) {
		start := time.Now()

		if requireInit && !s.isInitialized() {
			s.observer.RequestHandled(method, "error", time.Since(start))
			return nil, mcperrors.NotInitialized(method)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
			s.trackRequest(requestID, cancel)
			defer s.completeRequest(requestID)
		}

		result, err := logged(ctx, params)

		status := "ok"
		if err != nil {
			status = "error"
		}
		s.observer.RequestHandled(method, status, time.Since(start))
		return result, err
	}
}

func (s *Server) handleInitialize(ctx context.Context, params interface{}) (interface{}, error) {
	var initParams protocol.InitializeParams
	if err := decodeParams(params, &initParams); err != nil {
		return nil, err
	}

	version := protocol.NegotiateVersion(initParams.ProtocolVersion)

	s.initializedLock.Lock()
	s.clientInfo = initParams.ClientInfo
	s.protocolVersion = version
	s.initialized = true
	s.initializedLock.Unlock()

	fields := []logging.Field{
		logging.String("requested_version", initParams.ProtocolVersion),
		logging.String("protocol_version", version),
	}
	if initParams.ClientInfo != nil {
		fields = append(fields,
			logging.String("client", initParams.ClientInfo.Name),
			logging.String("client_version", initParams.ClientInfo.Version),
		)
	}
	s.logger.WithContext(ctx).Info("Initializing connection", fields...)

	capabilities := protocol.ServerCapabilities{
		Tools: &protocol.ToolsCapability{ListChanged: false},
	}
	if s.resources != nil {
		capabilities.Resources = &protocol.ResourcesCapability{}
	}

	return &protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo: protocol.Implementation{
			Name:    s.name,
			Title:   s.title,
			Version: s.version,
		},
		Instructions: s.instructions,
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params interface{}) error {
	s.initializedLock.Lock()
	s.initialized = true
	s.initializedLock.Unlock()

	s.logger.Debug("Connection initialized")
	return nil
}

func (s *Server) handlePing(ctx context.Context, params interface{}) (interface{}, error) {
	return struct{}{}, nil
}

func (s *Server) handleListTools(ctx context.Context, params interface{}) (interface{}, error) {
	var listParams protocol.ListToolsParams
	if err := decodeParams(params, &listParams); err != nil {
		return nil, err
	}
	// The tool set is small and static, so there is never a next page.
	return &protocol.ListToolsResult{Tools: s.tools.List()}, nil
}

func (s *Server) handleCallTool(ctx context.Context, params interface{}) (interface{}, error) {
	var callParams protocol.CallToolParams
	if err := decodeParams(params, &callParams); err != nil {
		return nil, err
	}
	if callParams.Name == "" {
		return nil, mcperrors.InvalidParams("tool name is required")
	}

	def, ok := s.tools.Lookup(callParams.Name)
	if !ok {
		return nil, mcperrors.InvalidParams("unknown tool: " + callParams.Name)
	}

	var args json.RawMessage
	if trimmed := bytes.TrimSpace(callParams.Arguments); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		args = trimmed
	}

	ctx, done := s.observer.ToolCallStarted(ctx, callParams.Name)
	out, err := s.runTool(ctx, def, args)
	if err != nil {
		te := mcperrors.Classify(err)
		s.logger.WithContext(ctx).WithError(te).Warn("Tool call failed", logging.String("tool", callParams.Name))
		done(string(te.Code))
		return toolErrorResult(te), nil
	}
	done("")

	result, err := toolResult(out)
	if err != nil {
		te := mcperrors.Classify(err)
		return toolErrorResult(te), nil
	}
	return result, nil
}

// runTool calls the handler, converting a panic into an internal error so
// that it is reported as a tool failure.
func (s *Server) runTool(ctx context.Context, def ToolDefinition, args json.RawMessage) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithContext(ctx).Error("Panic in tool handler",
				logging.String("tool", def.Tool.Name),
				logging.Any("panic", r),
			)
			out, err = nil, mcperrors.New(mcperrors.CodeInternal, "")
		}
	}()
	return def.Handler(ctx, args)
}

func (s *Server) handleCancelled(ctx context.Context, params interface{}) error {
	var cancelParams protocol.CancelledParams
	if err := decodeParams(params, &cancelParams); err != nil {
		return err
	}
	if cancelParams.RequestID == nil {
		return mcperrors.InvalidParams("requestId is required")
	}

	requestID := fmt.Sprint(cancelParams.RequestID)
	if s.cancelRequest(requestID) {
		s.logger.Info("Cancelled request",
			logging.String("cancelled_request_id", requestID),
			logging.String("reason", cancelParams.Reason),
		)
	}
	return nil
}

func toolResult(out interface{}) (*protocol.CallToolResult, error) {
	if out == nil {
		out = map[string]interface{}{}
	}
	text, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode tool output: %w", err)
	}
	return &protocol.CallToolResult{
		Content:           []protocol.Content{protocol.TextContent(string(text))},
		StructuredContent: out,
	}, nil
}

func toolErrorResult(te *mcperrors.ToolError) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content:           []protocol.Content{protocol.TextContent(string(te.Code) + ": " + te.Message)},
		StructuredContent: te.ToJSON(),
		IsError:           true,
	}
}

// decodeParams unmarshals request params into target. Absent params leave
// target at its zero value.
func decodeParams(params interface{}, target interface{}) error {
	var data []byte
	switch p := params.(type) {
	case nil:
		return nil
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	default:
		var err error
		if data, err = json.Marshal(p); err != nil {
			return mcperrors.InvalidParams(err.Error())
		}
	}

	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return mcperrors.InvalidParams(err.Error())
	}
	return nil
}

func (s *Server) isInitialized() bool {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.initialized
}

// ClientInfo returns the client implementation sent with initialize, if any.
func (s *Server) ClientInfo() *protocol.Implementation {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.clientInfo
}

// ProtocolVersion returns the negotiated protocol version, empty before
// initialize.
func (s *Server) ProtocolVersion() string {
	s.initializedLock.RLock()
	defer s.initializedLock.RUnlock()
	return s.protocolVersion
}

func (s *Server) trackRequest(requestID string, cancel context.CancelFunc) {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	s.activeRequests[requestID] = cancel
}

func (s *Server) completeRequest(requestID string) {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	delete(s.activeRequests, requestID)
}

func (s *Server) cancelRequest(requestID string) bool {
	s.activeRequestsLock.Lock()
	defer s.activeRequestsLock.Unlock()
	cancel, exists := s.activeRequests[requestID]
	if !exists {
		s.logger.Debug("Request not found for cancellation", logging.String("cancelled_request_id", requestID))
		return false
	}
	cancel()
	delete(s.activeRequests, requestID)
	return true
}
