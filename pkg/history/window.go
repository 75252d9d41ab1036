// Package history builds deterministic, token-budgeted views of a
// conversation for the wire. Windowing never touches agent state: the
// append-only message history stays intact, only the slice handed to a
// provider shrinks.
package history

import (
	"github.com/hbbio/nanoagent/pkg/agent"
)

// WindowLog summarizes a windowing decision.
type WindowLog struct {
	TotalTokens int // tokens of the included messages
	Dropped     int // messages excluded due to budget
}

// TokenEstimator estimates token usage of text content.
type TokenEstimator func(text string) int

// Window selects messages for the wire under a token budget.
type Window struct {
	estimate  TokenEstimator
	maxTokens int
}

// Option configures the Window.
type Option func(*Window)

// WithTokenEstimator sets the token estimator. Defaults to rune length.
func WithTokenEstimator(est TokenEstimator) Option {
	return func(w *Window) {
		if est != nil {
			w.estimate = est
		}
	}
}

// WithMaxTokens sets the maximum token budget. Defaults to a large value (1e9).
func WithMaxTokens(n int) Option {
	return func(w *Window) {
		if n > 0 {
			w.maxTokens = n
		}
	}
}

// New creates a Window.
func New(opts ...Option) *Window {
	w := &Window{
		estimate:  func(s string) int { return len([]rune(s)) },
		maxTokens: 1_000_000_000,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Select returns the wire view of messages under the budget.
// Behavior:
//   - System messages are pinned: always considered first, in order.
//   - Remaining messages are kept newest-first until the budget is spent,
//     then re-emitted in their original order.
//   - Tool-role messages travel with the assistant turn that requested them:
//     dropping the request but keeping the result would produce an orphaned
//     tool message most providers reject, so both are dropped together.
func (w *Window) Select(messages []agent.Message) ([]agent.Message, WindowLog) {
	budget := w.maxTokens
	included := make([]bool, len(messages))
	total := 0

	take := func(i int) bool {
		cost := w.estimate(messages[i].Content)
		if cost > budget {
			return false
		}
		budget -= cost
		total += cost
		included[i] = true
		return true
	}

	// Pins first.
	for i, m := range messages {
		if m.Role == agent.RoleSystem {
			take(i)
		}
	}

	// Newest first for the rest, grouping tool results with their request.
	for i := len(messages) - 1; i >= 0; i-- {
		if included[i] || messages[i].Role == agent.RoleSystem {
			continue
		}
		group := groupStart(messages, i)
		cost := 0
		for j := group; j <= i; j++ {
			if !included[j] {
				cost += w.estimate(messages[j].Content)
			}
		}
		if cost > budget {
			break
		}
		for j := group; j <= i; j++ {
			if !included[j] {
				budget -= w.estimate(messages[j].Content)
				total += w.estimate(messages[j].Content)
				included[j] = true
			}
		}
		i = group
	}

	out := make([]agent.Message, 0, len(messages))
	dropped := 0
	for i, m := range messages {
		if included[i] {
			out = append(out, m)
		} else {
			dropped++
		}
	}
	return out, WindowLog{TotalTokens: total, Dropped: dropped}
}

// groupStart walks back from a tool-role message to the assistant turn that
// issued the calls. Non-tool messages group alone.
func groupStart(messages []agent.Message, i int) int {
	if messages[i].Role != agent.RoleTool {
		return i
	}
	j := i
	for j > 0 && messages[j].Role == agent.RoleTool {
		j--
	}
	if len(messages[j].ToolCalls) > 0 {
		return j
	}
	return i
}
