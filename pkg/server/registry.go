package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

// ToolHandler runs one tool call. args is the raw "arguments" object, nil
// when the client sent none. The returned value becomes structuredContent.
type ToolHandler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// ToolDefinition pairs a tool descriptor with its handler
type ToolDefinition struct {
	Tool    protocol.Tool
	Handler ToolHandler
}

// ToolRegistry holds the tools exposed by a server, listed in registration
// order.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
	order []string
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolDefinition)}
}

// Register adds a tool. Names must be unique and the input schema present.
func (r *ToolRegistry) Register(tool protocol.Tool, handler ToolHandler) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Name)
	}
	if len(tool.InputSchema) == 0 {
		tool.InputSchema = json.RawMessage(`{"type":"object"}`)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	r.tools[tool.Name] = ToolDefinition{Tool: tool, Handler: handler}
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister is Register for static tool sets; it panics on error.
func (r *ToolRegistry) MustRegister(tool protocol.Tool, handler ToolHandler) {
	if err := r.Register(tool, handler); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name
func (r *ToolRegistry) Lookup(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// List returns the tool descriptors in registration order
func (r *ToolRegistry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].Tool)
	}
	return tools
}

// Len returns the number of registered tools
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
