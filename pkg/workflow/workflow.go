package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hbbio/nanoagent/pkg/agent"
)

// Observer is notified after each stage completes, with the stage's state
// already rewritten to the terminal state it reached. Synchronous,
// side-effect-only.
type Observer[M agent.Memory] func(q *Sequence[M])

// Run executes a chain of sequences until no successor is produced, and
// returns the final state together with the ordered stage history. Each
// history entry's State field reflects the terminal state the stage actually
// reached, not its initial one.
func Run[M agent.Memory](ctx context.Context, seq *Sequence[M], observe Observer[M]) (agent.State[M], []*Sequence[M], error) {
	tr := otel.Tracer("workflow/run")
	ctx, span := tr.Start(ctx, "workflow.Run", trace.WithAttributes(
		attribute.String("sequence.id", seq.ID),
	))
	defer span.End()

	var history []*Sequence[M]
	cur := seq
	for {
		history = append(history, cur)
		out, err := cur.Next(ctx)
		cur.State = out.State
		if err != nil {
			span.RecordError(err)
			return out.State, history, err
		}
		if observe != nil {
			observe(cur)
		}
		if !out.Continues() {
			span.SetAttributes(attribute.Int("workflow.stages", len(history)))
			return out.State, history, nil
		}
		cur = out.Next
	}
}
