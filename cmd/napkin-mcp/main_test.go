package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/napkin-mcp-go/internal/config"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

const requestID = "0b8f5e2a-6c1d-4e3f-8a9b-1c2d3e4f5a6b"

func lookup(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, strings.NewReader(""), &stdout, &stderr, lookup(nil))
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), serverName+" "+Version)
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-nope"}, strings.NewReader(""), &stdout, &stderr, lookup(nil))
	assert.Equal(t, 2, code)
}

func TestRun_MissingAPIKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr, lookup(nil))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "missing NAPKIN_API_KEY")
	assert.Empty(t, stdout.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json", Backend: "std"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logging.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])

	_, err = newLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

type rpcResponse struct {
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestRun_StdioSession(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/visual/"+requestID+"/status", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"`+requestID+`","status":"pending"}`)
	}))
	defer api.Close()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	var stderr bytes.Buffer

	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "usage.md"), []byte("# Usage\n"), 0o600))

	env := lookup(map[string]string{
		"NAPKIN_API_KEY":   "test-key",
		"NAPKIN_API_BASE":  api.URL,
		"NAPKIN_LOG_LEVEL": "debug",
		"NAPKIN_DOCS_DIR":  docsDir,
	})

	done := make(chan int, 1)
	go func() {
		code := run(context.Background(), nil, inR, outW, &stderr, env)
		_ = outW.Close()
		done <- code
	}()

	out := bufio.NewScanner(outR)
	out.Buffer(make([]byte, 0, 64*1024), 1<<20)

	send := func(line string) rpcResponse {
		t.Helper()
		_, err := io.WriteString(inW, line+"\n")
		require.NoError(t, err)
		require.True(t, out.Scan(), "expected a response to %s", line)
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		return resp
	}

	resp := send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1.0"}}}`)
	require.Nil(t, resp.Error)
	var initResult struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
		Instructions string `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &initResult))
	assert.Equal(t, "2025-06-18", initResult.ProtocolVersion)
	assert.Equal(t, serverName, initResult.ServerInfo.Name)
	assert.NotEmpty(t, initResult.Instructions)

	_, err := io.WriteString(inW, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	require.NoError(t, err)

	resp = send(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	assert.Len(t, list.Tools, 4)

	resp = send(`{"jsonrpc":"2.0","id":20,"method":"resources/list"}`)
	require.Nil(t, resp.Error)
	var resources struct {
		Resources []struct {
			URI string `json:"uri"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &resources))
	require.Len(t, resources.Resources, 1)
	assert.Equal(t, "napkin-docs:///docs/usage.md", resources.Resources[0].URI)

	resp = send(`{"jsonrpc":"2.0","id":21,"method":"resources/read","params":{"uri":"napkin-docs:///docs/usage.md"}}`)
	require.Nil(t, resp.Error)
	var read struct {
		Contents []struct {
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "# Usage\n", read.Contents[0].Text)

	resp = send(`{"jsonrpc":"2.0","id":22,"method":"resources/read","params":{"uri":"napkin-docs:///docs/../go.mod"}}`)
	require.NotNil(t, resp.Error)

	resp = send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"napkin_get_visual_status","arguments":{"requestId":"` + requestID + `"}}}`)
	require.Nil(t, resp.Error)
	var status struct {
		IsError           bool `json:"isError"`
		StructuredContent struct {
			Status string `json:"status"`
			Hint   string `json:"_hint"`
		} `json:"structuredContent"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &status))
	assert.False(t, status.IsError)
	assert.Equal(t, "pending", status.StructuredContent.Status)
	assert.NotEmpty(t, status.StructuredContent.Hint)

	resp = send(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"napkin_create_visual_request","arguments":{"format":"gif"}}}`)
	require.Nil(t, resp.Error)
	var failed struct {
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StructuredContent struct {
			Code      string `json:"code"`
			Retriable bool   `json:"retriable"`
		} `json:"structuredContent"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &failed))
	assert.True(t, failed.IsError)
	assert.Equal(t, "BAD_REQUEST", failed.StructuredContent.Code)
	require.Len(t, failed.Content, 1)
	assert.True(t, strings.HasPrefix(failed.Content[0].Text, "BAD_REQUEST: "))

	require.NoError(t, inW.Close())

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after stdin closed")
	}
	assert.Contains(t, stderr.String(), "Server stopped")
}

func TestRun_StopsOnCancel(t *testing.T) {
	inR, inW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, nil, inR, io.Discard, io.Discard, lookup(map[string]string{"NAPKIN_API_KEY": "k"}))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}
