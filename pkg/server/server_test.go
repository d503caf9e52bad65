package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/transport"
)

// mockTransport implements transport.Transport and lets tests call the
// registered handlers directly.
type mockTransport struct {
	mu                   sync.Mutex
	initialized          bool
	initializeErr        error
	stopped              bool
	requestHandlers      map[string]transport.RequestHandler
	notificationHandlers map[string]transport.NotificationHandler
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		requestHandlers:      make(map[string]transport.RequestHandler),
		notificationHandlers: make(map[string]transport.NotificationHandler),
	}
}

func (m *mockTransport) Initialize(ctx context.Context) error {
	if m.initializeErr != nil {
		return m.initializeErr
	}
	m.initialized = true
	return nil
}

func (m *mockTransport) Start(ctx context.Context) error { return nil }

func (m *mockTransport) Stop(ctx context.Context) error {
	m.stopped = true
	return nil
}

func (m *mockTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	return nil
}

func (m *mockTransport) RegisterRequestHandler(method string, handler transport.RequestHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHandlers[method] = handler
}

func (m *mockTransport) RegisterNotificationHandler(method string, handler transport.NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationHandlers[method] = handler
}

func (m *mockTransport) request(ctx context.Context, t *testing.T, method string, params interface{}) (interface{}, error) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.requestHandlers[method]
	m.mu.Unlock()
	require.True(t, ok, "no handler for %s", method)

	var raw interface{}
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = json.RawMessage(data)
	}
	return handler(ctx, raw)
}

func (m *mockTransport) notify(t *testing.T, method string, params interface{}) error {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.notificationHandlers[method]
	m.mu.Unlock()
	require.True(t, ok, "no handler for %s", method)

	var raw interface{}
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = json.RawMessage(data)
	}
	return handler(context.Background(), raw)
}

func testRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	r := NewToolRegistry()
	require.NoError(t, r.Register(protocol.Tool{Name: "echo", Description: "Echo arguments"},
		func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			var v map[string]interface{}
			if args != nil {
				if err := json.Unmarshal(args, &v); err != nil {
					return nil, err
				}
			}
			return v, nil
		}))
	require.NoError(t, r.Register(protocol.Tool{Name: "bad_request"},
		func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			return nil, mcperrors.New(mcperrors.CodeBadRequest, "content is required")
		}))
	require.NoError(t, r.Register(protocol.Tool{Name: "rate_limited"},
		func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			return nil, &napkin.Fault{Kind: napkin.FaultHTTP, Status: 429, Body: map[string]interface{}{"error": "slow down"}}
		}))
	require.NoError(t, r.Register(protocol.Tool{Name: "plain_error"},
		func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			return nil, errors.New("disk on fire")
		}))
	require.NoError(t, r.Register(protocol.Tool{Name: "panics"},
		func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			panic("unexpected")
		}))
	return r
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *mockTransport) {
	t.Helper()
	mt := newMockTransport()
	opts = append([]ServerOption{WithName("napkin-mcp"), WithVersion("1.2.3"), WithLogger(logging.NewNop())}, opts...)
	return New(mt, testRegistry(t), opts...), mt
}

func initialize(t *testing.T, mt *mockTransport) *protocol.InitializeResult {
	t.Helper()
	res, err := mt.request(context.Background(), t, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: "2025-03-26",
		ClientInfo:      &protocol.Implementation{Name: "test-client", Version: "0.1"},
	})
	require.NoError(t, err)
	return res.(*protocol.InitializeResult)
}

func callTool(t *testing.T, mt *mockTransport, name string, args interface{}) *protocol.CallToolResult {
	t.Helper()
	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	res, err := mt.request(context.Background(), t, protocol.MethodCallTool, params)
	require.NoError(t, err)
	return res.(*protocol.CallToolResult)
}

func TestNew_RegistersHandlers(t *testing.T) {
	_, mt := newTestServer(t)

	for _, method := range []string{protocol.MethodInitialize, protocol.MethodPing, protocol.MethodListTools, protocol.MethodCallTool} {
		assert.Contains(t, mt.requestHandlers, method)
	}
	assert.Contains(t, mt.notificationHandlers, protocol.MethodInitialized)
	assert.Contains(t, mt.notificationHandlers, protocol.MethodCancelled)
}

func TestServer_Initialize(t *testing.T) {
	s, mt := newTestServer(t, WithInstructions("Create visuals with Napkin."), WithTitle("Napkin"))

	res := initialize(t, mt)
	assert.Equal(t, "2025-03-26", res.ProtocolVersion)
	assert.Equal(t, "napkin-mcp", res.ServerInfo.Name)
	assert.Equal(t, "Napkin", res.ServerInfo.Title)
	assert.Equal(t, "1.2.3", res.ServerInfo.Version)
	assert.Equal(t, "Create visuals with Napkin.", res.Instructions)
	require.NotNil(t, res.Capabilities.Tools)

	assert.Equal(t, "test-client", s.ClientInfo().Name)
	assert.Equal(t, "2025-03-26", s.ProtocolVersion())
}

func TestServer_InitializeUnknownVersion(t *testing.T) {
	_, mt := newTestServer(t)
	res, err := mt.request(context.Background(), t, protocol.MethodInitialize, protocol.InitializeParams{ProtocolVersion: "1999-01-01"})
	require.NoError(t, err)
	assert.Equal(t, protocol.LatestProtocolVersion, res.(*protocol.InitializeResult).ProtocolVersion)
}

func TestServer_InitializeInvalidParams(t *testing.T) {
	_, mt := newTestServer(t)
	handler := mt.requestHandlers[protocol.MethodInitialize]
	_, err := handler(context.Background(), json.RawMessage(`{"protocolVersion": 5}`))

	var rpcErr *mcperrors.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeInvalidParams, rpcErr.Code)
}

func TestServer_RequiresInitialization(t *testing.T) {
	_, mt := newTestServer(t)

	_, err := mt.request(context.Background(), t, protocol.MethodListTools, nil)
	var rpcErr *mcperrors.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeServerNotReady, rpcErr.Code)

	// ping is allowed before the handshake
	_, err = mt.request(context.Background(), t, protocol.MethodPing, nil)
	assert.NoError(t, err)

	require.NoError(t, mt.notify(t, protocol.MethodInitialized, nil))
	_, err = mt.request(context.Background(), t, protocol.MethodListTools, nil)
	assert.NoError(t, err)
}

func TestServer_ListTools(t *testing.T) {
	_, mt := newTestServer(t)
	initialize(t, mt)

	res, err := mt.request(context.Background(), t, protocol.MethodListTools, map[string]string{})
	require.NoError(t, err)

	list := res.(*protocol.ListToolsResult)
	names := make([]string, 0, len(list.Tools))
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
		assert.JSONEq(t, `{"type":"object"}`, string(tool.InputSchema))
	}
	assert.Equal(t, []string{"echo", "bad_request", "rate_limited", "plain_error", "panics"}, names)
	assert.Empty(t, list.NextCursor)
}

func TestServer_CallToolSuccess(t *testing.T) {
	_, mt := newTestServer(t)
	initialize(t, mt)

	res := callTool(t, mt, "echo", map[string]string{"content": "hello"})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.JSONEq(t, `{"content":"hello"}`, res.Content[0].Text)
	assert.Equal(t, map[string]interface{}{"content": "hello"}, res.StructuredContent)
}

func TestServer_CallToolNoArguments(t *testing.T) {
	_, mt := newTestServer(t)
	initialize(t, mt)

	res := callTool(t, mt, "echo", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "{}", res.Content[0].Text)
}

func TestServer_CallToolErrors(t *testing.T) {
	tests := []struct {
		tool      string
		code      string
		retriable bool
		text      string
		original  bool
	}{
		{tool: "bad_request", code: "BAD_REQUEST", text: "BAD_REQUEST: content is required"},
		{tool: "rate_limited", code: "RATE_LIMITED", retriable: true, original: true},
		{tool: "plain_error", code: "INTERNAL_ERROR", text: "INTERNAL_ERROR: disk on fire"},
		{tool: "panics", code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			_, mt := newTestServer(t)
			initialize(t, mt)

			res := callTool(t, mt, tt.tool, map[string]string{})
			assert.True(t, res.IsError)
			require.Len(t, res.Content, 1)
			assert.True(t, strings.HasPrefix(res.Content[0].Text, tt.code+": "))
			if tt.text != "" {
				assert.Equal(t, tt.text, res.Content[0].Text)
			}

			structured, ok := res.StructuredContent.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.code, structured["code"])
			assert.Equal(t, tt.retriable, structured["retriable"])
			assert.NotEmpty(t, structured["message"])
			_, hasOriginal := structured["original"]
			assert.Equal(t, tt.original, hasOriginal)
		})
	}
}

func TestServer_CallToolProtocolErrors(t *testing.T) {
	_, mt := newTestServer(t)
	initialize(t, mt)

	_, err := mt.request(context.Background(), t, protocol.MethodCallTool, map[string]string{"name": "nope"})
	var rpcErr *mcperrors.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeInvalidParams, rpcErr.Code)

	_, err = mt.request(context.Background(), t, protocol.MethodCallTool, map[string]string{})
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeInvalidParams, rpcErr.Code)
}

type recordingObserver struct {
	mu       sync.Mutex
	tools    []string
	codes    []string
	requests []string
}

func (o *recordingObserver) ToolCallStarted(ctx context.Context, tool string) (context.Context, func(code string)) {
	o.mu.Lock()
	o.tools = append(o.tools, tool)
	o.mu.Unlock()
	return ctx, func(code string) {
		o.mu.Lock()
		o.codes = append(o.codes, code)
		o.mu.Unlock()
	}
}

func (o *recordingObserver) RequestHandled(method, status string, elapsed time.Duration) {
	o.mu.Lock()
	o.requests = append(o.requests, method+":"+status)
	o.mu.Unlock()
}

func TestServer_Observer(t *testing.T) {
	obs := &recordingObserver{}
	_, mt := newTestServer(t, WithObserver(obs))

	_, _ = mt.request(context.Background(), t, protocol.MethodListTools, nil)
	initialize(t, mt)
	callTool(t, mt, "echo", nil)
	callTool(t, mt, "rate_limited", nil)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"echo", "rate_limited"}, obs.tools)
	assert.Equal(t, []string{"", "RATE_LIMITED"}, obs.codes)
	assert.Equal(t, []string{"tools/list:error", "initialize:ok", "tools/call:ok", "tools/call:ok"}, obs.requests)
}

func TestServer_Cancellation(t *testing.T) {
	mt := newMockTransport()
	registry := NewToolRegistry()
	started := make(chan struct{})
	registry.MustRegister(protocol.Tool{Name: "slow"}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	New(mt, registry, WithLogger(logging.NewNop()))
	initialize(t, mt)

	ctx := logging.ContextWithRequestID(context.Background(), "7")
	done := make(chan *protocol.CallToolResult, 1)
	go func() {
		res, err := mt.request(ctx, t, protocol.MethodCallTool, map[string]string{"name": "slow"})
		assert.NoError(t, err)
		done <- res.(*protocol.CallToolResult)
	}()

	<-started
	require.NoError(t, mt.notify(t, protocol.MethodCancelled, protocol.CancelledParams{RequestID: 7, Reason: "user abort"}))

	select {
	case res := <-done:
		assert.True(t, res.IsError)
		assert.Equal(t, "TIMEOUT", res.StructuredContent.(map[string]interface{})["code"])
	case <-time.After(5 * time.Second):
		t.Fatal("tool call was not cancelled")
	}
}

func TestServer_CancelUnknownRequest(t *testing.T) {
	s, mt := newTestServer(t)
	assert.NoError(t, mt.notify(t, protocol.MethodCancelled, protocol.CancelledParams{RequestID: "missing"}))
	assert.False(t, s.cancelRequest("missing"))
	assert.Error(t, mt.notify(t, protocol.MethodCancelled, map[string]string{}))
}

func TestServer_StartStop(t *testing.T) {
	s, mt := newTestServer(t)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, mt.initialized)

	cancelled := false
	s.trackRequest("1", func() { cancelled = true })
	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, cancelled)
	assert.True(t, mt.stopped)

	failing, ft := newTestServer(t)
	ft.initializeErr = errors.New("no stdin")
	assert.ErrorContains(t, failing.Start(context.Background()), "no stdin")
}

func TestServer_StdioEndToEnd(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	tr := transport.NewStdioTransport(inR, outW, logging.NewNop())
	s := New(tr, testRegistry(t), WithLogger(logging.NewNop()), WithVersion("9.9.9"))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	lines := bufio.NewScanner(outR)
	send := func(msg string) {
		_, err := io.WriteString(inW, msg+"\n")
		require.NoError(t, err)
	}
	recv := func() protocol.Response {
		require.True(t, lines.Scan())
		var resp protocol.Response
		require.NoError(t, json.Unmarshal(lines.Bytes(), &resp))
		return resp
	}

	send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"e2e","version":"1"}}}`)
	resp := recv()
	require.Nil(t, resp.Error)
	var initRes protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &initRes))
	assert.Equal(t, "9.9.9", initRes.ServerInfo.Version)

	send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	send(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"bad_request","arguments":{}}}`)
	resp = recv()
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{
		"content":[{"type":"text","text":"BAD_REQUEST: content is required"}],
		"structuredContent":{"code":"BAD_REQUEST","message":"content is required","retriable":false},
		"isError":true
	}`, string(resp.Result))

	require.NoError(t, inW.Close())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop at EOF")
	}
	_ = outW.Close()
}
