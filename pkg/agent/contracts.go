// Package agent implements the deterministic control loop at the core of
// nanoagent: a single-step transition function over immutable agent state, an
// iterative driver with an explicit step budget, a halt-state machine with
// exactly four halt conditions, and the tool registry plus memory-patch
// composer that tool calls feed.
//
// Execution is single-threaded and cooperative: the loop suspends at the
// model-call boundary and at the user-input boundary, and every suspension is
// awaited to completion before the next transition begins. State values are
// never shared by reference across steps.
//
// Example:
//
//	c := &agent.Context[agent.MapMemory]{
//		IsFinal: func(s agent.State[agent.MapMemory]) bool {
//			last, ok := s.LastMessage()
//			return ok && strings.Contains(last.Content, "DONE")
//		},
//	}
//	final, err := agent.Loop(ctx, c, agent.NewState(model, seed, nil), agent.RunOptions[agent.MapMemory]{})
package agent

import (
	"context"
)

// Completion is the result of one model invocation: the full updated message
// list (never a delta) and the updated memory snapshot.
type Completion[M Memory] struct {
	Messages []Message
	Memory   M
}

// Model is the language-model abstraction the loop drives. Implementations
// own transport, streaming, and provider details; they may execute requested
// tool calls internally, in which case the returned messages end with
// tool-role results and the returned memory reflects composed tool patches.
type Model[M Memory] interface {
	// Complete produces the next turn(s) from the ordered history. The tool
	// descriptors advertise what the contract's registry can execute.
	Complete(ctx context.Context, messages []Message, memory M, tools []ToolDescriptor) (Completion[M], error)
	// Stop cancels any in-flight completion. It is the only cancellation
	// primitive the loop relies on; it affects the current suspension point
	// only, never completed steps.
	Stop()
}

// GoalFunc tests whether a state has reached the goal.
type GoalFunc[M Memory] func(s State[M]) bool

// InputFunc supplies externally provided text while the state is halted
// AwaitingInput. It is the only I/O hook in the contract besides the model.
type InputFunc[M Memory] func(ctx context.Context, c *Context[M], s State[M]) (string, error)

// RecoverFunc resolves stuck or tool-error states. It receives the offending
// state and returns the state to continue from.
type RecoverFunc[M Memory] func(ctx context.Context, s State[M]) (State[M], error)

// GuidelinesFunc generates system-prompt guidance for the next model call.
type GuidelinesFunc[M Memory] func(s State[M]) string

// Stage is the contract/state/options triple a StageFunc hands back when a
// workflow advances to its next stage.
type Stage[M Memory] struct {
	Context *Context[M]
	State   State[M]
	Options RunOptions[M]
}

// StageFunc computes the successor stage from a terminal Done state.
type StageFunc[M Memory] func(ctx context.Context, s State[M]) (Stage[M], error)

// Context is the behavior contract driving a loop: a bundle of optional hooks
// expressed as nullable function fields. Drivers treat it as read-only shared
// configuration; the only mutation ever performed is the explicit copy-and-merge
// when chaining to a successor stage.
type Context[M Memory] struct {
	// IsFinal is the goal test. A nil test never reports the goal as reached;
	// such loops terminate via their step budget.
	IsFinal GoalFunc[M]
	// Tools resolves and executes tool calls. Optional.
	Tools *Registry[M]
	// GetInput supplies user text for AwaitingInput states. Required only if
	// a run can halt AwaitingInput.
	GetInput InputFunc[M]
	// NextStage computes the successor stage once a run halts Done. Optional.
	NextStage StageFunc[M]
	// Recover resolves stuck and tool-error states. Optional; without it,
	// stuck states are returned as-is and will likely recur.
	Recover RecoverFunc[M]
	// Guidelines generates system guidance injected into the next model call.
	Guidelines GuidelinesFunc[M]
}

// toolDescriptors returns the advertised tool set, nil-safe.
func (c *Context[M]) toolDescriptors() []ToolDescriptor {
	if c == nil || c.Tools == nil {
		return nil
	}
	return c.Tools.Descriptors()
}
