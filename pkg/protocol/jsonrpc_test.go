package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("req-1", MethodPing, nil)
	if err != nil {
		t.Fatalf("Expected NewRequest with nil params to succeed, got error: %v", err)
	}

	if req.JSONRPC != JSONRPCVersion {
		t.Errorf("Expected JSONRPC version to be %q, got %q", JSONRPCVersion, req.JSONRPC)
	}
	if req.ID != "req-1" {
		t.Errorf("Expected ID to be 'req-1', got %v", req.ID)
	}
	if len(req.Params) != 0 {
		t.Errorf("Expected Params to be empty, got %s", string(req.Params))
	}

	req, err = NewRequest(2, MethodCallTool, CallToolParams{
		Name:      "napkin_get_visual_status",
		Arguments: json.RawMessage(`{"request_id":"abc"}`),
	})
	require.NoError(t, err)

	var decoded CallToolParams
	require.NoError(t, json.Unmarshal(req.Params, &decoded))
	assert.Equal(t, "napkin_get_visual_status", decoded.Name)
	assert.JSONEq(t, `{"request_id":"abc"}`, string(decoded.Arguments))
}

func TestNewRequestKeepsRawParams(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	req, err := NewRequest(1, "m", raw)
	require.NoError(t, err)
	assert.Equal(t, raw, req.Params)
}

func TestNewResponse(t *testing.T) {
	resp, err := NewResponse(1, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp.Result))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, string(data))

	resp, err = NewResponse("x", ListToolsResult{Tools: []Tool{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
}

func TestNewErrorResponse(t *testing.T) {
	resp, err := NewErrorResponse(7, MethodNotFound, "Method not found: foo", map[string]string{"method": "foo"})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"Method not found: foo","data":{"method":"foo"}}}`,
		string(data))
	assert.Contains(t, resp.Error.Error(), "-32601")
}

func TestNewNotification(t *testing.T) {
	n, err := NewNotification(MethodInitialized, nil)
	require.NoError(t, err)

	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(data))
}

func TestMessageKinds(t *testing.T) {
	tests := []struct {
		name         string
		msg          string
		request      bool
		response     bool
		notification bool
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, true, false, false},
		{"string id request", `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`, true, false, false},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, false, false, true},
		{"null id is a notification", `{"jsonrpc":"2.0","id":null,"method":"x"}`, false, false, true},
		{"result response", `{"jsonrpc":"2.0","id":1,"result":{}}`, false, true, false},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"bad"}}`, false, true, false},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, false, false, false},
		{"garbage", `not json`, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.request, IsRequest([]byte(tt.msg)))
			assert.Equal(t, tt.response, IsResponse([]byte(tt.msg)))
			assert.Equal(t, tt.notification, IsNotification([]byte(tt.msg)))
		})
	}
}

func TestNegotiateVersion(t *testing.T) {
	assert.Equal(t, "2024-11-05", NegotiateVersion("2024-11-05"))
	assert.Equal(t, LatestProtocolVersion, NegotiateVersion("1999-01-01"))
	assert.Equal(t, LatestProtocolVersion, NegotiateVersion(""))
}

func TestCallToolResultEncoding(t *testing.T) {
	res := CallToolResult{
		Content:           []Content{TextContent(`{"code":"TIMEOUT"}`)},
		StructuredContent: map[string]interface{}{"code": "TIMEOUT"},
		IsError:           true,
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"content":[{"type":"text","text":"{\"code\":\"TIMEOUT\"}"}],"structuredContent":{"code":"TIMEOUT"},"isError":true}`,
		string(data))

	ok, err := json.Marshal(CallToolResult{Content: []Content{TextContent("done")}})
	require.NoError(t, err)
	assert.NotContains(t, string(ok), "isError")
}
