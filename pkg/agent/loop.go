package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Loop repeatedly applies Step until the state halts terminally or the step
// budget runs out. It is a plain iteration, not recursion, so unbounded
// sessions do not grow the call stack. Without a budget the loop has no exit
// path of its own; termination relies entirely on the transition function's
// halt logic.
//
// Per iteration: the state observer fires, terminal states return
// immediately, a zero remaining budget forces HaltStopped, then one Step runs
// between the before/after observers and the budget decrements (an unbounded
// budget never decrements).
func Loop[M Memory](ctx context.Context, c *Context[M], s State[M], opts RunOptions[M]) (State[M], error) {
	tr := otel.Tracer("agent/loop")
	ctx, span := tr.Start(ctx, "agent.Loop", trace.WithAttributes(
		attribute.String("state.id", s.ID),
		attribute.Bool("loop.bounded", opts.MaxSteps != nil),
	))
	defer span.End()

	remaining := -1
	if opts.MaxSteps != nil {
		remaining = *opts.MaxSteps
	}

	cur := s
	steps := 0
	for {
		if opts.OnState != nil {
			opts.OnState(cur)
		}
		if cur.Terminal() {
			span.SetAttributes(attribute.Int("loop.steps", steps))
			return cur, nil
		}
		if remaining == 0 {
			span.SetAttributes(attribute.Int("loop.steps", steps))
			return cur.WithHalt(Stopped()), nil
		}
		if opts.OnBeforeStep != nil {
			opts.OnBeforeStep(cur)
		}
		next, err := Step(ctx, c, cur, opts)
		if err != nil {
			span.RecordError(err)
			return cur, err
		}
		if opts.OnAfterStep != nil {
			opts.OnAfterStep(next)
		}
		cur = next
		steps++
		if remaining > 0 {
			remaining--
		}
	}
}
