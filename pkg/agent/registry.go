package agent

import (
	"context"
	"sync"

	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// Registry keeps tools by name and executes them against memory snapshots.
// It is an instance, not a package-level map, so independent contracts can
// carry disjoint tool sets.
type Registry[M Memory] struct {
	mu       sync.RWMutex
	tools    map[string]*RegisteredTool[M]
	validate ValidateFunc
}

// RegistryOption configures a Registry at construction time.
type RegistryOption[M Memory] func(*Registry[M])

// WithValidator sets the JSON-schema validator applied to tool arguments
// before each invocation.
func WithValidator[M Memory](v ValidateFunc) RegistryOption[M] {
	return func(r *Registry[M]) { r.validate = v }
}

// NewRegistry constructs an empty registry. Argument validation defaults to
// JSONSchemaValidator.
func NewRegistry[M Memory](opts ...RegistryOption[M]) *Registry[M] {
	r := &Registry[M]{tools: map[string]*RegisteredTool[M]{}, validate: JSONSchemaValidator}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool by its descriptor name.
func (r *Registry[M]) Register(t RegisteredTool[M]) error {
	if t.Name == "" {
		return errmodel.Tool("bad_tool", "tool name is empty", nil)
	}
	if t.Handler == nil && t.Load == nil {
		return errmodel.Tool("bad_tool", "tool has neither handler nor loader",
			map[string]any{"tool": t.Name})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return errmodel.Tool("conflict", "tool already registered",
			map[string]any{"tool": t.Name})
	}
	r.tools[t.Name] = &t
	return nil
}

// Resolve returns a registered tool by name.
func (r *Registry[M]) Resolve(name string) (*RegisteredTool[M], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the descriptors of all registered tools.
func (r *Registry[M]) Descriptors() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.ToolDescriptor)
	}
	return out
}

// Invoke validates args against the tool's schema and executes the handler
// with the given memory snapshot. An unregistered name fails deterministically
// with no side effects on memory or messages.
func (r *Registry[M]) Invoke(ctx context.Context, name string, args map[string]any, memory M) (ToolResponse[M], error) {
	t, ok := r.Resolve(name)
	if !ok {
		return ToolResponse[M]{}, errmodel.Tool("not_found", "tool not registered",
			map[string]any{"tool": name})
	}
	h, err := r.handler(t)
	if err != nil {
		return ToolResponse[M]{}, errmodel.Tool("load_failed", "tool loader failed",
			map[string]any{"tool": name}, err)
	}
	if r.validate != nil {
		if err := r.validate(t.InputSchema, args); err != nil {
			return ToolResponse[M]{}, errmodel.Validation("invalid_input",
				"tool input validation failed",
				map[string]any{"tool": name, "error": err.Error()})
		}
	}
	resp, err := h(ctx, args, memory)
	if err != nil {
		return ToolResponse[M]{}, errmodel.Tool("invoke_failed", "tool invocation failed",
			map[string]any{"tool": name}, err)
	}
	return resp, nil
}

// handler resolves the executable, running the lazy loader once and caching
// the result.
func (r *Registry[M]) handler(t *RegisteredTool[M]) (Handler[M], error) {
	r.mu.RLock()
	h := t.Handler
	r.mu.RUnlock()
	if h != nil {
		return h, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Handler != nil {
		return t.Handler, nil
	}
	h, err := t.Load()
	if err != nil {
		return nil, err
	}
	t.Handler = h
	return h, nil
}

// ExecuteCalls invokes each requested tool call in order against the same
// base memory snapshot, appends one tool-role message per call, and merges
// the resulting memory patches through ComposePatches. Two calls writing the
// same key in one batch is a conflict and fails the whole batch.
func (r *Registry[M]) ExecuteCalls(ctx context.Context, calls []ToolCall, memory M) ([]Message, M, error) {
	messages := make([]Message, 0, len(calls))
	patches := make([]Patch[M], 0, len(calls))
	for _, call := range calls {
		resp, err := r.Invoke(ctx, call.Name, call.Args, memory)
		if err != nil {
			return nil, memory, err
		}
		content := resp.Content
		if resp.Err != nil {
			content = "error: " + resp.Err.Error()
		}
		messages = append(messages, Message{
			Role:       RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
		if resp.Patch != nil {
			patches = append(patches, resp.Patch)
		}
	}
	next, err := ComposePatches(memory, patches...)
	if err != nil {
		return nil, memory, err
	}
	return messages, next, nil
}
