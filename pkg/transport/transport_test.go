package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

func newRequest(t *testing.T, id interface{}, method string, params interface{}) *protocol.Request {
	t.Helper()
	req, err := protocol.NewRequest(id, method, params)
	require.NoError(t, err)
	return req
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(DefaultTransportConfig(TransportTypeStdio))
	require.NoError(t, err)
	assert.IsType(t, &StdioTransport{}, tr)

	_, err = NewTransport(TransportConfig{Type: "http"})
	assert.ErrorIs(t, err, ErrUnsupportedTransportType)
}

func TestBaseTransport_HandleRequest(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterRequestHandler("echo", func(ctx context.Context, params interface{}) (interface{}, error) {
		raw, ok := params.(json.RawMessage)
		require.True(t, ok)
		return raw, nil
	})

	resp := bt.HandleRequest(context.Background(), newRequest(t, 1, "echo", map[string]int{"a": 1}))
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.ID)
	assert.JSONEq(t, `{"a":1}`, string(resp.Result))
}

func TestBaseTransport_NilParams(t *testing.T) {
	bt := NewBaseTransport(nil)
	var got interface{} = "unset"
	bt.RegisterRequestHandler("ping", func(ctx context.Context, params interface{}) (interface{}, error) {
		got = params
		return nil, nil
	})

	resp := bt.HandleRequest(context.Background(), newRequest(t, "a", "ping", nil))
	assert.Nil(t, got)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestBaseTransport_MethodNotFound(t *testing.T) {
	bt := NewBaseTransport(nil)
	resp := bt.HandleRequest(context.Background(), newRequest(t, 7, "resources/list", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found: resources/list", resp.Error.Message)
}

func TestBaseTransport_HandlerError(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterRequestHandler("tools/call", func(ctx context.Context, params interface{}) (interface{}, error) {
		return nil, mcperrors.InvalidParams("name is required")
	})

	resp := bt.HandleRequest(context.Background(), newRequest(t, 2, "tools/call", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
}

func TestBaseTransport_PanicRecovery(t *testing.T) {
	bt := NewBaseTransport(logging.NewNop())
	bt.RegisterRequestHandler("boom", func(ctx context.Context, params interface{}) (interface{}, error) {
		panic("handler exploded")
	})

	resp := bt.HandleRequest(context.Background(), newRequest(t, 3, "boom", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InternalError, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "exploded")
}

func TestBaseTransport_HandleNotification(t *testing.T) {
	bt := NewBaseTransport(nil)
	called := false
	bt.RegisterNotificationHandler("notifications/initialized", func(ctx context.Context, params interface{}) error {
		called = true
		return nil
	})

	n, err := protocol.NewNotification("notifications/initialized", nil)
	require.NoError(t, err)
	require.NoError(t, bt.HandleNotification(context.Background(), n))
	assert.True(t, called)

	n, err = protocol.NewNotification("notifications/unknown", nil)
	require.NoError(t, err)
	err = bt.HandleNotification(context.Background(), n)
	assert.True(t, errors.Is(err, ErrUnsupportedMethod))
}

func TestBaseTransport_NotificationPanic(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterNotificationHandler("x", func(ctx context.Context, params interface{}) error {
		panic("bad")
	})
	n, err := protocol.NewNotification("x", nil)
	require.NoError(t, err)
	assert.Error(t, bt.HandleNotification(context.Background(), n))
}
