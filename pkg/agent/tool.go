package agent

import "context"

// ToolPermission describes a capability a tool requires.
// Example: network:outbound, fs:read, memory:write
type ToolPermission struct {
	// Name is a stable, lower_snake identifier of the permission.
	Name string `json:"name"`
	// Description explains what the permission allows.
	Description string `json:"description,omitempty"`
}

// ToolDescriptor declares the static interface of a tool.
// InputSchema is a JSON Schema (draft 2020-12) in UTF-8 bytes.
type ToolDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema []byte           `json:"input_schema,omitempty"`
	Permissions []ToolPermission `json:"permissions,omitempty"`
}

// Patch is a pure function transforming one memory snapshot into the next,
// attributed to a single tool invocation. Patches must not mutate their
// argument's nested values.
type Patch[M Memory] func(M) M

// ToolResponse is what a tool invocation yields: content and/or an error
// and/or a memory patch. At most one of Content and Err is meaningfully
// populated.
type ToolResponse[M Memory] struct {
	// Content is the text fed back to the model as a tool-role message.
	Content string
	// Err is a tool-level failure surfaced to the model rather than aborting
	// the run.
	Err error
	// Patch records the tool's memory writes. Nil when the tool wrote nothing.
	Patch Patch[M]
}

// Handler executes a tool against validated arguments and a memory snapshot.
// A returned error is an invocation failure and aborts the step; soft
// failures the model should see go in ToolResponse.Err.
type Handler[M Memory] func(ctx context.Context, args map[string]any, memory M) (ToolResponse[M], error)

// Loader lazily produces a Handler on first use.
type Loader[M Memory] func() (Handler[M], error)

// RegisteredTool pairs a descriptor with its executable handler. Either
// Handler or Load must be set; Load wins on first invocation and is cached.
type RegisteredTool[M Memory] struct {
	ToolDescriptor
	Handler Handler[M]
	Load    Loader[M]
}
