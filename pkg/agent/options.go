package agent

import "log/slog"

// RunOptions configures Step and Loop. The zero value runs unbounded with no
// observers and no debug tracing.
type RunOptions[M Memory] struct {
	// MaxSteps is the step budget. Nil means unbounded; zero halts the loop
	// immediately with HaltStopped.
	MaxSteps *int
	// Debug enables structured trace lines including full message dumps.
	Debug bool
	// Logger receives debug traces. Nil disables logging.
	Logger *slog.Logger
	// Heuristic is the secondary model used to classify whether an assistant
	// message requests user input. Nil disables AwaitingInput detection.
	Heuristic Model[M]
	// KeepInput carries the current stage's GetInput hook into a successor
	// stage that does not supply its own.
	KeepInput bool

	// Observers are synchronous and side-effect-only; they never influence
	// control flow.
	OnState      func(s State[M])
	OnBeforeStep func(s State[M])
	OnAfterStep  func(s State[M])
}

// Steps returns a step-budget pointer for MaxSteps.
func Steps(n int) *int { return &n }

// Merge overlays next onto o: fields set in next override, unset fields keep
// the previous value. Used when chaining workflow stages.
func (o RunOptions[M]) Merge(next RunOptions[M]) RunOptions[M] {
	out := o
	if next.MaxSteps != nil {
		out.MaxSteps = next.MaxSteps
	}
	if next.Debug {
		out.Debug = true
	}
	if next.Logger != nil {
		out.Logger = next.Logger
	}
	if next.Heuristic != nil {
		out.Heuristic = next.Heuristic
	}
	if next.KeepInput {
		out.KeepInput = true
	}
	if next.OnState != nil {
		out.OnState = next.OnState
	}
	if next.OnBeforeStep != nil {
		out.OnBeforeStep = next.OnBeforeStep
	}
	if next.OnAfterStep != nil {
		out.OnAfterStep = next.OnAfterStep
	}
	return out
}
