package taskloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/schema"
)

// Tool is an externally-implemented capability the model can invoke by
// name with structured parameters. The orchestrator treats every tool as
// an opaque black box; each tool validates its own input.
type Tool interface {
	Name() string
	Description() string
	Schema() schema.Schema
	Call(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

// ToolResult is the outcome of one tool invocation. Variables carries any
// values the tool wants promoted into the workflow context.
type ToolResult struct {
	Content   string         `json:"content"`
	Variables map[string]any `json:"variables,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// NewToolResult creates a successful result with the given content.
func NewToolResult(content string) *ToolResult {
	return &ToolResult{Content: content}
}

// NewToolResultError creates a failed result with the given message.
func NewToolResultError(message string) *ToolResult {
	return &ToolResult{Content: message, IsError: true}
}

// WithVariables attaches context variables to the result.
func (r *ToolResult) WithVariables(variables map[string]any) *ToolResult {
	r.Variables = variables
	return r
}

// TypedTool is a tool with a structured input type. Wrap with ToolAdapter
// to get a Tool that handles JSON unmarshaling.
type TypedTool[T any] interface {
	Name() string
	Description() string
	Schema() schema.Schema
	Call(ctx context.Context, input T) (*ToolResult, error)
}

// TypedToolAdapter adapts a TypedTool to the Tool interface.
type TypedToolAdapter[T any] struct {
	tool TypedTool[T]
}

// ToolAdapter wraps a typed tool so it satisfies Tool.
func ToolAdapter[T any](tool TypedTool[T]) *TypedToolAdapter[T] {
	return &TypedToolAdapter[T]{tool: tool}
}

func (a *TypedToolAdapter[T]) Name() string          { return a.tool.Name() }
func (a *TypedToolAdapter[T]) Description() string   { return a.tool.Description() }
func (a *TypedToolAdapter[T]) Schema() schema.Schema { return a.tool.Schema() }

func (a *TypedToolAdapter[T]) Call(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var typed T
	if len(input) > 0 {
		if err := json.Unmarshal(input, &typed); err != nil {
			return NewToolResultError(fmt.Sprintf("invalid tool input: %s", err.Error())), nil
		}
	}
	return a.tool.Call(ctx, typed)
}

// Unwrap returns the underlying typed tool.
func (a *TypedToolAdapter[T]) Unwrap() TypedTool[T] { return a.tool }

// Registry holds the tools available to workflow executions, resolved
// once at startup. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry containing the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns LLM tool definitions for the named tools, skipping
// names that do not resolve. Order follows the input names.
func (r *Registry) Definitions(names []string) []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	definitions := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		tool, ok := r.tools[name]
		if !ok {
			continue
		}
		definitions = append(definitions, llm.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	return definitions
}
