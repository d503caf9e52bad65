// Package server implements the MCP server side of the Napkin integration.
//
// A Server answers the lifecycle requests (initialize, ping), lists the
// tools held by a ToolRegistry and dispatches tools/call to them. Tool
// failures never surface as JSON-RPC errors: they are classified with
// errors.Classify and returned as a CallToolResult with isError set, the
// text "CODE: message" and the tool error object as structuredContent.
//
//	registry := server.NewToolRegistry()
//	tools.Register(registry, napkinClient, tools.Options{})
//
//	t, _ := transport.NewTransport(transport.DefaultTransportConfig(transport.TransportTypeStdio))
//	srv := server.New(t, registry,
//	    server.WithName("napkin-mcp"),
//	    server.WithVersion(napkin.Version),
//	    server.WithLogger(logger),
//	)
//	err := srv.Start(ctx) // blocks until stdin closes or ctx is done
package server
