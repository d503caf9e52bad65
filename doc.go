// Package napkinmcp is an unofficial Model Context Protocol server for the
// Napkin AI visual generation API.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes four tools:
//
//   - napkin_create_visual_request: submit text and receive a request id
//   - napkin_regenerate_visual: regenerate an existing visual
//   - napkin_get_visual_status: poll a request and list its generated files
//   - napkin_download_visual_file: build an authenticated download command
//
// The tools never fetch file bytes themselves. The caller downloads with the
// URL and Authorization header returned by the download tool.
//
// # Overview
//
// The module consists of several packages:
//
//   - pkg/napkin: HTTP client for the Napkin API with retries and backoff
//   - pkg/errors: classified tool errors and validation helpers
//   - pkg/tools: the four tools, their schemas and server instructions
//   - pkg/server: the MCP lifecycle and tool dispatch
//   - pkg/transport: newline-delimited JSON-RPC over stdio
//   - pkg/protocol: JSON-RPC and MCP message types
//   - pkg/logging: structured logging with std and zap backends
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Running
//
// The napkin-mcp command reads NAPKIN_API_KEY and serves on stdin/stdout:
//
//	NAPKIN_API_KEY=... napkin-mcp
//
// # Embedding
//
// The same wiring is available as a library:
//
//	client, err := napkinmcp.NewClient(napkin.Config{APIKey: key})
//	if err != nil {
//	    return err
//	}
//
//	registry := napkinmcp.NewToolRegistry()
//	if err := napkinmcp.RegisterTools(registry, client, tools.Options{APIKey: key}); err != nil {
//	    return err
//	}
//
//	srv := napkinmcp.NewServer(
//	    napkinmcp.NewStdioTransport(os.Stdin, os.Stdout, logger),
//	    registry,
//	    napkinmcp.WithServerInstructions(tools.Instructions),
//	)
//	return srv.Start(ctx)
//
// Logs must never be written to stdout, which carries the protocol stream.
package napkinmcp
