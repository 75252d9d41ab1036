package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// turnModel replays scripted turns; each turn receives the incoming history
// and memory and returns the full updated pair. Past the script it echoes the
// history unchanged, which the step classifies as stuck.
type turnModel struct {
	turns []func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error)
	calls int
}

func (m *turnModel) Complete(ctx context.Context, msgs []Message, mem MapMemory, tools []ToolDescriptor) (Completion[MapMemory], error) {
	m.calls++
	if len(m.turns) == 0 {
		return Completion[MapMemory]{Messages: msgs, Memory: mem}, nil
	}
	turn := m.turns[0]
	m.turns = m.turns[1:]
	out, newMem, err := turn(msgs, mem)
	if err != nil {
		return Completion[MapMemory]{}, err
	}
	return Completion[MapMemory]{Messages: out, Memory: newMem}, nil
}

func (m *turnModel) Stop() {}

// replyModel answers each call with the next scripted assistant text.
func replyModel(texts ...string) *turnModel {
	m := &turnModel{}
	for _, text := range texts {
		text := text
		m.turns = append(m.turns, func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error) {
			return append(append([]Message(nil), msgs...), Message{Role: RoleAssistant, Content: text}), mem, nil
		})
	}
	return m
}

// verdictModel is a heuristic classifier that always answers the same thing.
type verdictModel struct{ verdict string }

func (m verdictModel) Complete(ctx context.Context, msgs []Message, mem MapMemory, tools []ToolDescriptor) (Completion[MapMemory], error) {
	return Completion[MapMemory]{
		Messages: append(append([]Message(nil), msgs...), Message{Role: RoleAssistant, Content: m.verdict}),
		Memory:   mem,
	}, nil
}

func (verdictModel) Stop() {}

func seedState(m Model[MapMemory], texts ...string) State[MapMemory] {
	msgs := make([]Message, 0, len(texts))
	for _, text := range texts {
		msgs = append(msgs, Message{Role: RoleUser, Content: text})
	}
	return NewState(m, msgs, MapMemory{})
}

func TestStepTerminalHaltIsFixedPoint(t *testing.T) {
	for _, h := range []*Halt{Done(), Stopped()} {
		s := seedState(replyModel("never used"), "hi").WithHalt(h)
		next, err := Step(context.Background(), &Context[MapMemory]{}, s, RunOptions[MapMemory]{})
		if err != nil {
			t.Fatal(err)
		}
		if next.Halted != h || len(next.Messages) != len(s.Messages) {
			t.Fatalf("%s: state changed", h.Kind)
		}
	}
}

func TestStepAwaitingInputWithoutHookIsConfigError(t *testing.T) {
	s := seedState(replyModel(), "hi").WithHalt(AwaitInput())
	_, err := Step(context.Background(), &Context[MapMemory]{}, s, RunOptions[MapMemory]{})
	if err == nil || !errmodel.IsCategory(err, errmodel.CategoryConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestStepAwaitingInputAppendsUserTurn(t *testing.T) {
	c := &Context[MapMemory]{
		GetInput: func(ctx context.Context, c *Context[MapMemory], s State[MapMemory]) (string, error) {
			return "here you go", nil
		},
	}
	s := seedState(replyModel(), "hi").WithHalt(AwaitInput())
	next, err := Step(context.Background(), c, s, RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if next.Halted != nil {
		t.Fatal("halt not cleared")
	}
	last, _ := next.LastMessage()
	if last.Role != RoleUser || last.Content != "here you go" {
		t.Fatalf("last=%+v", last)
	}
}

func TestStepToolErrorRoutesToRecover(t *testing.T) {
	recovered := false
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			recovered = true
			return s.ClearHalt(), nil
		},
	}
	s := seedState(replyModel(), "hi").WithHalt(ToolError(errors.New("boom")))
	next, err := Step(context.Background(), c, s, RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if !recovered || next.Halted != nil {
		t.Fatalf("recover not applied: %+v", next.Halted)
	}

	// Without a hook, the halted state passes through unchanged.
	same, err := Step(context.Background(), &Context[MapMemory]{}, s, RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if same.Halted == nil || same.Halted.Kind != HaltToolError {
		t.Fatal("tool error halt lost")
	}
}

func TestStepModelFailureBecomesToolErrorHalt(t *testing.T) {
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func([]Message, MapMemory) ([]Message, MapMemory, error) {
			return nil, nil, errors.New("rate limited")
		},
	}}
	s := seedState(m, "hi")
	next, err := Step(context.Background(), &Context[MapMemory]{}, s, RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if next.Halted == nil || next.Halted.Kind != HaltToolError {
		t.Fatalf("halt=%+v", next.Halted)
	}
	if !errmodel.IsCategory(next.Halted.Err, errmodel.CategoryModel) {
		t.Fatalf("err=%v", next.Halted.Err)
	}
	// Messages and memory untouched by the failed call.
	if len(next.Messages) != 1 {
		t.Fatalf("messages=%d", len(next.Messages))
	}
}

func TestStepModelFailureOffersHaltedStateToRecover(t *testing.T) {
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func([]Message, MapMemory) ([]Message, MapMemory, error) {
			return nil, nil, errors.New("boom")
		},
	}}
	var seen *Halt
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			seen = s.Halted
			return s.ClearHalt(), nil
		},
	}
	next, err := Step(context.Background(), c, seedState(m, "hi"), RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if seen == nil || seen.Kind != HaltToolError {
		t.Fatalf("recover saw %+v", seen)
	}
	if next.Halted != nil {
		t.Fatal("recover result not returned")
	}
}

func TestStepStuckOnIdenticalHistory(t *testing.T) {
	// A model that always returns the identical message list triggers the
	// recovery hook on the very first step, every time.
	m := &turnModel{} // echoes history unchanged
	hits := 0
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			hits++
			if s.Halted != nil {
				t.Fatal("stuck state should not be halted")
			}
			return s, nil
		},
	}
	s := seedState(m, "hi")
	for i := 0; i < 3; i++ {
		var err error
		s, err = Step(context.Background(), c, s, RunOptions[MapMemory]{})
		if err != nil {
			t.Fatal(err)
		}
	}
	if hits != 3 {
		t.Fatalf("recover hits=%d", hits)
	}
}

func TestStepStuckOnConsecutiveAssistantTurns(t *testing.T) {
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error) {
			return append(append([]Message(nil), msgs...),
				Message{Role: RoleAssistant, Content: "first thought"},
				Message{Role: RoleAssistant, Content: "second thought"},
			), mem, nil
		},
	}}
	hit := false
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			hit = true
			return s, nil
		},
	}
	if _, err := Step(context.Background(), c, seedState(m, "hi"), RunOptions[MapMemory]{}); err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("consecutive assistant turns not detected as stuck")
	}
}

func TestStepAssistantThenToolIsNotStuck(t *testing.T) {
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error) {
			return append(append([]Message(nil), msgs...),
				Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "sum"}}},
				Message{Role: RoleTool, Content: "3", ToolCallID: "1", Name: "sum"},
			), mem, nil
		},
	}}
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			t.Fatal("recover must not fire")
			return s, nil
		},
	}
	next, err := Step(context.Background(), c, seedState(m, "hi"), RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	// Tool results pass through running, to be fed back to the model.
	if next.Halted != nil {
		t.Fatalf("halt=%+v", next.Halted)
	}
}

func TestStepBlankAssistantTurnIsStuck(t *testing.T) {
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error) {
			return append(append([]Message(nil), msgs...),
				Message{Role: RoleAssistant, Content: "   \n"},
			), mem, nil
		},
	}}
	hit := false
	c := &Context[MapMemory]{
		Recover: func(ctx context.Context, s State[MapMemory]) (State[MapMemory], error) {
			hit = true
			return s, nil
		},
	}
	if _, err := Step(context.Background(), c, seedState(m, "hi"), RunOptions[MapMemory]{}); err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("blank assistant turn not detected as stuck")
	}
}

func TestStepHeuristicHaltsAwaitingInput(t *testing.T) {
	m := replyModel("Which file should I edit?")
	s := seedState(m, "fix the bug")
	next, err := Step(context.Background(), &Context[MapMemory]{}, s,
		RunOptions[MapMemory]{Heuristic: verdictModel{verdict: "YES"}})
	if err != nil {
		t.Fatal(err)
	}
	if next.Halted == nil || next.Halted.Kind != HaltAwaitingInput {
		t.Fatalf("halt=%+v", next.Halted)
	}

	// NO verdict keeps the state running.
	next, err = Step(context.Background(), &Context[MapMemory]{}, seedState(replyModel("done editing"), "fix"),
		RunOptions[MapMemory]{Heuristic: verdictModel{verdict: "NO"}})
	if err != nil {
		t.Fatal(err)
	}
	if next.Halted != nil {
		t.Fatalf("halt=%+v", next.Halted)
	}
}

func TestStepGoalReachedHaltsDone(t *testing.T) {
	c := &Context[MapMemory]{
		IsFinal: func(s State[MapMemory]) bool {
			last, ok := s.LastMessage()
			return ok && strings.Contains(last.Content, "DONE")
		},
	}
	next, err := Step(context.Background(), c, seedState(replyModel("DONE"), "go"), RunOptions[MapMemory]{})
	if err != nil {
		t.Fatal(err)
	}
	if next.Halted == nil || next.Halted.Kind != HaltDone {
		t.Fatalf("halt=%+v", next.Halted)
	}
}

func TestStepGuidelinesInjectedAsSystemMessage(t *testing.T) {
	var wireFirst Message
	m := &turnModel{turns: []func([]Message, MapMemory) ([]Message, MapMemory, error){
		func(msgs []Message, mem MapMemory) ([]Message, MapMemory, error) {
			wireFirst = msgs[0]
			return append(append([]Message(nil), msgs...), Message{Role: RoleAssistant, Content: "ok"}), mem, nil
		},
	}}
	c := &Context[MapMemory]{
		Guidelines: func(s State[MapMemory]) string { return "be terse" },
	}
	if _, err := Step(context.Background(), c, seedState(m, "hi"), RunOptions[MapMemory]{}); err != nil {
		t.Fatal(err)
	}
	if wireFirst.Role != RoleSystem || wireFirst.Content != "be terse" {
		t.Fatalf("wire first=%+v", wireFirst)
	}
}
