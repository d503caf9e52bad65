package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

// Transport defines the server side of an MCP transport.
type Transport interface {
	// Initialize prepares the transport for use
	Initialize(ctx context.Context) error

	// SendNotification writes a server-initiated notification
	SendNotification(ctx context.Context, method string, params interface{}) error

	// Handler registration
	RegisterRequestHandler(method string, handler RequestHandler)
	RegisterNotificationHandler(method string, handler NotificationHandler)

	// Start reads and dispatches messages until the input ends, ctx is done
	// or Stop is called.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RequestHandler handles incoming requests. params is the raw
// json.RawMessage of the request, or nil when absent.
type RequestHandler func(ctx context.Context, params interface{}) (interface{}, error)

// NotificationHandler handles incoming notifications
type NotificationHandler func(ctx context.Context, params interface{}) error

// ErrorHandler handles transport errors
type ErrorHandler func(err error)

// TransportType identifies the base transport implementation
type TransportType string

const (
	TransportTypeStdio TransportType = "stdio"
)

const (
	// DefaultMaxConcurrency bounds the number of requests handled at once.
	DefaultMaxConcurrency = 8

	// DefaultMaxMessageSize is the longest accepted input line, counting its
	// newline. Longer lines are answered with a parse error.
	DefaultMaxMessageSize = 4 << 20
)

// TransportConfig configures a transport
type TransportConfig struct {
	Type TransportType

	// Custom reader and writer for stdio, os.Stdin and os.Stdout when nil.
	StdioReader io.Reader
	StdioWriter io.Writer

	Logger logging.Logger

	MaxConcurrency int
	MaxMessageSize int
}

// DefaultTransportConfig returns a transport configuration with sensible defaults
func DefaultTransportConfig(transportType TransportType) TransportConfig {
	return TransportConfig{
		Type:           transportType,
		MaxConcurrency: DefaultMaxConcurrency,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Errors
var (
	ErrUnsupportedMethod        = errors.New("unsupported method")
	ErrUnsupportedTransportType = errors.New("unsupported transport type")
)

// NewTransport creates a new transport with the specified configuration
func NewTransport(config TransportConfig) (Transport, error) {
	switch config.Type {
	case TransportTypeStdio:
		return newStdioTransport(config), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransportType, config.Type)
	}
}

// BaseTransport provides handler registration and dispatch shared by
// transport implementations.
type BaseTransport struct {
	sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
	logger               logging.Logger
}

// NewBaseTransport creates a new BaseTransport
func NewBaseTransport(logger logging.Logger) *BaseTransport {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BaseTransport{
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		logger:               logger,
	}
}

// RegisterRequestHandler registers a handler for incoming requests
func (t *BaseTransport) RegisterRequestHandler(method string, handler RequestHandler) {
	t.Lock()
	defer t.Unlock()
	t.requestHandlers[method] = handler
}

// RegisterNotificationHandler registers a handler for incoming notifications
func (t *BaseTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	t.Lock()
	defer t.Unlock()
	t.notificationHandlers[method] = handler
}

// HandleRequest runs the handler registered for the request method and
// always produces a response. Panics become internal errors.
func (t *BaseTransport) HandleRequest(ctx context.Context, request *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.WithContext(ctx).Error("Panic in request handler",
				logging.String("method", request.Method),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			resp = errorResponse(request.ID, mcperrors.InternalError(request.Method, nil))
		}
	}()

	t.RLock()
	handler, ok := t.requestHandlers[request.Method]
	t.RUnlock()

	if !ok {
		return errorResponse(request.ID, mcperrors.MethodNotFound(request.Method))
	}

	var params interface{}
	if len(request.Params) > 0 {
		params = request.Params
	}

	result, err := handler(ctx, params)
	if err != nil {
		return errorResponse(request.ID, err)
	}

	resp, err = protocol.NewResponse(request.ID, result)
	if err != nil {
		return errorResponse(request.ID, mcperrors.InternalError("marshal_result", err))
	}
	return resp
}

// HandleNotification runs the handler registered for the notification
// method. Unknown methods return ErrUnsupportedMethod.
func (t *BaseTransport) HandleNotification(ctx context.Context, notification *protocol.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error processing notification %s: %v", notification.Method, r)
		}
	}()

	t.RLock()
	handler, ok := t.notificationHandlers[notification.Method]
	t.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, notification.Method)
	}

	var params interface{}
	if len(notification.Params) > 0 {
		params = notification.Params
	}
	return handler(ctx, params)
}

func errorResponse(id interface{}, err error) *protocol.Response {
	resp, rerr := mcperrors.ToJSONRPCResponse(err, id)
	if rerr != nil {
		resp, _ = protocol.NewErrorResponse(id, protocol.InternalError, "Internal error", nil)
	}
	return resp
}
