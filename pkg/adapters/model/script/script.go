// Package script provides a deterministic Model for tests, replay, and
// offline evaluation: it answers each completion with the next scripted turn.
package script

import (
	"context"
	"sync"

	"github.com/hbbio/nanoagent/pkg/agent"
)

// Turn computes one completion from the incoming history and memory.
type Turn[M agent.Memory] func(messages []agent.Message, memory M) ([]agent.Message, M, error)

// Model replays scripted turns in order. Once the script is exhausted it
// returns the history unchanged, which the control loop classifies as stuck.
// Safe for sequential reuse; the loop never calls Complete concurrently.
type Model[M agent.Memory] struct {
	mu      sync.Mutex
	turns   []Turn[M]
	pos     int
	stopped bool
}

// New builds a scripted model from explicit turns.
func New[M agent.Memory](turns ...Turn[M]) *Model[M] {
	return &Model[M]{turns: turns}
}

// Replies builds a scripted model that appends one assistant message per
// call, in order.
func Replies[M agent.Memory](texts ...string) *Model[M] {
	turns := make([]Turn[M], 0, len(texts))
	for _, text := range texts {
		text := text
		turns = append(turns, func(messages []agent.Message, memory M) ([]agent.Message, M, error) {
			out := append(append([]agent.Message(nil), messages...),
				agent.Message{Role: agent.RoleAssistant, Content: text})
			return out, memory, nil
		})
	}
	return New(turns...)
}

// Complete implements agent.Model.
func (m *Model[M]) Complete(ctx context.Context, messages []agent.Message, memory M, tools []agent.ToolDescriptor) (agent.Completion[M], error) {
	if err := ctx.Err(); err != nil {
		return agent.Completion[M]{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.pos >= len(m.turns) {
		return agent.Completion[M]{Messages: messages, Memory: memory}, nil
	}
	turn := m.turns[m.pos]
	m.pos++
	out, next, err := turn(messages, memory)
	if err != nil {
		return agent.Completion[M]{}, err
	}
	return agent.Completion[M]{Messages: out, Memory: next}, nil
}

// Stop freezes the script; further completions echo the history unchanged.
func (m *Model[M]) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Calls reports how many scripted turns have been consumed.
func (m *Model[M]) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}
