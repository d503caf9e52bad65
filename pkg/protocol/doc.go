// Package protocol defines the JSON-RPC 2.0 envelope and the subset of Model
// Context Protocol messages served by the Napkin MCP server: the initialize
// handshake, ping, and the tools/list and tools/call methods.
//
// Messages are plain structs with JSON tags; params and results are carried
// as json.RawMessage so handlers decode only what they need.
package protocol
