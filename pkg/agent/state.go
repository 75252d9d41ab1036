package agent

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Message roles. Tool-role messages carry results produced by tool handlers
// back to the model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by the model inside an assistant message.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Message is a single turn in the conversation history.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// IsBlank reports whether the message carries neither text nor tool calls.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.ToolCalls) == 0
}

// HaltKind enumerates the halt conditions a state can carry.
type HaltKind string

const (
	// HaltAwaitingInput pauses the loop until externally supplied text arrives.
	HaltAwaitingInput HaltKind = "awaiting_input"
	// HaltToolError records a failure surfaced by the model or a tool call.
	HaltToolError HaltKind = "tool_error"
	// HaltDone marks the goal as reached. Terminal.
	HaltDone HaltKind = "done"
	// HaltStopped marks step-budget exhaustion. Terminal.
	HaltStopped HaltKind = "stopped"
)

// Halt is the halt status attached to a state. A nil *Halt means the state
// is still running.
type Halt struct {
	Kind HaltKind
	// Err carries the original error for HaltToolError.
	Err error
}

// Terminal reports whether the halt permits no further transitions.
func (h *Halt) Terminal() bool {
	return h != nil && (h.Kind == HaltDone || h.Kind == HaltStopped)
}

// Recoverable reports whether the loop can resume past this halt.
func (h *Halt) Recoverable() bool {
	return h != nil && (h.Kind == HaltAwaitingInput || h.Kind == HaltToolError)
}

// AwaitInput returns an AwaitingInput halt.
func AwaitInput() *Halt { return &Halt{Kind: HaltAwaitingInput} }

// Done returns a Done halt.
func Done() *Halt { return &Halt{Kind: HaltDone} }

// Stopped returns a Stopped halt.
func Stopped() *Halt { return &Halt{Kind: HaltStopped} }

// ToolError returns a ToolError halt carrying err.
func ToolError(err error) *Halt { return &Halt{Kind: HaltToolError, Err: err} }

type haltJSON struct {
	Kind  HaltKind `json:"kind"`
	Error string   `json:"error,omitempty"`
}

// MarshalJSON flattens the carried error to its message.
func (h *Halt) MarshalJSON() ([]byte, error) {
	v := haltJSON{Kind: h.Kind}
	if h.Err != nil {
		v.Error = h.Err.Error()
	}
	return json.Marshal(v)
}

// UnmarshalJSON restores the error as an opaque message.
func (h *Halt) UnmarshalJSON(data []byte) error {
	var v haltJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	h.Kind = v.Kind
	h.Err = nil
	if v.Error != "" {
		h.Err = errors.New(v.Error)
	}
	return nil
}

// Memory constrains agent memory to a string-keyed map so that patch
// composition can detect per-key write conflicts. Integrations define their
// own named map type; values must be JSON-serializable.
type Memory interface {
	~map[string]any
}

// MapMemory is the default memory shape.
type MapMemory map[string]any

// State is an immutable snapshot of an agent run. Transitions never mutate a
// State in place; they return a new value. The message history is append-only:
// it only grows, or is replaced wholesale by a model completion.
type State[M Memory] struct {
	// ID identifies the run across snapshots and traces.
	ID string `json:"id,omitempty"`
	// Model is the handle used for completions. Excluded from serialization;
	// callers reattach one when restoring a snapshot.
	Model Model[M] `json:"-"`
	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`
	// Memory is the opaque per-run key-value snapshot.
	Memory M `json:"memory,omitempty"`
	// Halted is nil while the state is running.
	Halted *Halt `json:"halted,omitempty"`
}

// NewState builds a running state with a fresh ID.
func NewState[M Memory](model Model[M], messages []Message, memory M) State[M] {
	return State[M]{
		ID:       uuid.NewString(),
		Model:    model,
		Messages: messages,
		Memory:   memory,
	}
}

// Running reports whether the state carries no halt status.
func (s State[M]) Running() bool { return s.Halted == nil }

// Terminal reports whether the state is halted Done or Stopped.
func (s State[M]) Terminal() bool { return s.Halted.Terminal() }

// LastMessage returns the most recent message, if any.
func (s State[M]) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Append returns a copy of the state with msg added to the history.
func (s State[M]) Append(msg Message) State[M] {
	next := s
	next.Messages = append(append([]Message(nil), s.Messages...), msg)
	return next
}

// WithHalt returns a copy of the state carrying the given halt status.
func (s State[M]) WithHalt(h *Halt) State[M] {
	next := s
	next.Halted = h
	return next
}

// ClearHalt returns a copy of the state with no halt status.
func (s State[M]) ClearHalt() State[M] {
	next := s
	next.Halted = nil
	return next
}
