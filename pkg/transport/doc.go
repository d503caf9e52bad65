// Package transport carries JSON-RPC 2.0 messages between an MCP client and
// the Napkin MCP server.
//
// The only transport is stdio: one JSON message per line on stdin, one per
// line on stdout. Logs never go to stdout.
//
// # Handlers
//
// Request handlers are registered per method and return a result or an
// error. Errors are converted to JSON-RPC error objects with
// errors.ToJSONRPCResponse; an unknown method yields -32601. Requests run
// concurrently, bounded by TransportConfig.MaxConcurrency, and each one gets
// a context carrying its request ID (see logging.RequestIDFromContext).
// Notifications are handled in arrival order on the read loop.
//
// # Usage
//
//	t, err := transport.NewTransport(transport.DefaultTransportConfig(transport.TransportTypeStdio))
//	if err != nil {
//	    return err
//	}
//	t.RegisterRequestHandler("ping", func(ctx context.Context, params interface{}) (interface{}, error) {
//	    return struct{}{}, nil
//	})
//	return t.Start(ctx)
package transport
