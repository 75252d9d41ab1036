package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// Step is the atomic transition function: given the behavior contract and the
// current state, it produces the next state. Terminal states (Done, Stopped)
// are fixed points. Recoverable halts are dispatched before any model call;
// otherwise the model is invoked once and the result is classified in order:
// stuck detection, tool pass-through, input-request detection, goal test.
func Step[M Memory](ctx context.Context, c *Context[M], s State[M], opts RunOptions[M]) (State[M], error) {
	tr := otel.Tracer("agent/step")
	ctx, span := tr.Start(ctx, "agent.Step", trace.WithAttributes(
		attribute.String("state.id", s.ID),
		attribute.Int("state.messages", len(s.Messages)),
	))
	defer span.End()

	if s.Halted != nil {
		span.SetAttributes(attribute.String("state.halt", string(s.Halted.Kind)))
		switch s.Halted.Kind {
		case HaltDone, HaltStopped:
			return s, nil
		case HaltAwaitingInput:
			if c == nil || c.GetInput == nil {
				return s, errmodel.Config("missing_input_hook",
					"state awaits user input but no input hook is registered", nil)
			}
			text, err := c.GetInput(ctx, c, s)
			if err != nil {
				span.RecordError(err)
				return s, err
			}
			next := s.Append(Message{Role: RoleUser, Content: text})
			return next.ClearHalt(), nil
		case HaltToolError:
			if c != nil && c.Recover != nil {
				return c.Recover(ctx, s)
			}
			return s, nil
		}
	}

	if s.Model == nil {
		return s, errmodel.Config("missing_model", "state carries no model handle", nil)
	}

	wire := s.Messages
	if c != nil && c.Guidelines != nil {
		if g := c.Guidelines(s); g != "" {
			wire = withGuidelines(s.Messages, g)
		}
	}

	out, err := s.Model.Complete(ctx, wire, s.Memory, c.toolDescriptors())
	if err != nil {
		span.RecordError(err)
		halted := s.WithHalt(ToolError(errmodel.Model("completion_failed", "model call failed", nil, err)))
		if c != nil && c.Recover != nil {
			return c.Recover(ctx, halted)
		}
		return halted, nil
	}

	next := s
	next.Messages = out.Messages
	next.Memory = out.Memory

	if opts.Debug && opts.Logger != nil {
		opts.Logger.Debug("agent step",
			"state", s.ID,
			"messages", len(next.Messages),
			"history", dumpMessages(next.Messages),
		)
	}

	// Stuck detection runs before the tool and finality checks. The recovery
	// hook is the only resolution path; there is no retry budget.
	if stuck(s.Messages, next.Messages) {
		span.SetAttributes(attribute.Bool("state.stuck", true))
		if c != nil && c.Recover != nil {
			return c.Recover(ctx, next)
		}
		return next, nil
	}

	last, ok := next.LastMessage()
	if !ok {
		return next, nil
	}

	// Tool results must be fed back to the model before any finality check.
	if last.Role == RoleTool {
		return next, nil
	}

	if last.Content != "" && RequestsInput(ctx, opts.Heuristic, last.Content) {
		return next.WithHalt(AwaitInput()), nil
	}

	if last.Role == RoleAssistant && c != nil && c.IsFinal != nil && c.IsFinal(next) {
		return next.WithHalt(Done()), nil
	}

	return next, nil
}

// stuck reports whether the model made no progress: an unchanged history
// length, a blank assistant turn, or two consecutive assistant turns with no
// intervening tool or user message.
func stuck(prev, cur []Message) bool {
	if len(cur) == len(prev) {
		return true
	}
	n := len(cur)
	if n == 0 {
		return true
	}
	last := cur[n-1]
	if last.Role != RoleAssistant {
		return false
	}
	if last.IsBlank() {
		return true
	}
	return n >= 2 && cur[n-2].Role == RoleAssistant
}

// withGuidelines injects guidance as the leading system message of the wire
// view. The first system message is replaced; otherwise one is prepended.
func withGuidelines(messages []Message, text string) []Message {
	out := append([]Message(nil), messages...)
	if len(out) > 0 && out[0].Role == RoleSystem {
		out[0].Content = text
		return out
	}
	return append([]Message{{Role: RoleSystem, Content: text}}, out...)
}

func dumpMessages(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		line := m.Role + ": " + m.Content
		for _, tc := range m.ToolCalls {
			line += " [call " + tc.Name + "]"
		}
		out = append(out, line)
	}
	return out
}
