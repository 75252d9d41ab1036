// Package workflow chains independent loop instances ("sequences") into a
// multi-stage run. A sequence binds a behavior contract, a state, and run
// options; on successful completion it can hand off to a successor stage
// computed by the contract's NextStage hook.
package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/hbbio/nanoagent/pkg/agent"
)

// Sequence binds a contract, a state, and run options, and knows how to
// produce its successor once the loop halts Done.
type Sequence[M agent.Memory] struct {
	// ID identifies the sequence in traces and observer callbacks.
	ID      string
	Context *agent.Context[M]
	State   agent.State[M]
	Options agent.RunOptions[M]
}

// New wraps a contract/state/options triple into a sequence.
func New[M agent.Memory](c *agent.Context[M], s agent.State[M], opts agent.RunOptions[M]) *Sequence[M] {
	return &Sequence[M]{ID: uuid.NewString(), Context: c, State: s, Options: opts}
}

// Outcome is the tagged result of advancing a sequence. A nil Next means the
// stage produced no successor and the workflow is complete; this is an
// explicit sentinel rather than a reference-identity check, which would be
// fragile when two stages model equal states.
type Outcome[M agent.Memory] struct {
	// State is the terminal state the stage reached.
	State agent.State[M]
	// Next is the successor sequence, or nil when there is none.
	Next *Sequence[M]
}

// Continues reports whether a successor stage exists.
func (o Outcome[M]) Continues() bool { return o.Next != nil }

// Run drives this sequence's loop to completion and returns the terminal
// state. The sequence's own State field is left untouched; the caller decides
// what to record.
func (q *Sequence[M]) Run(ctx context.Context) (agent.State[M], error) {
	return agent.Loop(ctx, q.Context, q.State, q.Options)
}

// Next runs to completion and computes the successor. A successor exists only
// when the run halted Done and the contract supplies a NextStage hook; the
// new stage's options are merged over the current ones (new overrides old),
// and the current input hook is carried forward only when the successor did
// not supply its own and the merged options request preservation. The
// successor contract is copied before the hook is grafted on: contracts are
// read-only shared configuration.
func (q *Sequence[M]) Next(ctx context.Context) (Outcome[M], error) {
	final, err := q.Run(ctx)
	if err != nil {
		return Outcome[M]{State: final}, err
	}
	if final.Halted == nil || final.Halted.Kind != agent.HaltDone ||
		q.Context == nil || q.Context.NextStage == nil {
		return Outcome[M]{State: final}, nil
	}
	stage, err := q.Context.NextStage(ctx, final)
	if err != nil {
		return Outcome[M]{State: final}, err
	}
	merged := q.Options.Merge(stage.Options)
	next := stage.Context
	if next != nil && next.GetInput == nil && merged.KeepInput && q.Context.GetInput != nil {
		cp := *next
		cp.GetInput = q.Context.GetInput
		next = &cp
	}
	return Outcome[M]{State: final, Next: New(next, stage.State, merged)}, nil
}
