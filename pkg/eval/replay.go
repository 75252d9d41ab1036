// Package eval replays captured agent transcripts offline and scores the
// resulting runs against expectations. Replays use scripted model turns, so
// no provider credentials or network access are needed.
package eval

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hbbio/nanoagent/pkg/adapters/model/script"
	"github.com/hbbio/nanoagent/pkg/agent"
)

// MessageSpec is one message of a captured completion.
type MessageSpec struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fixture represents one captured run: the opening messages, the scripted
// completions, and what the finished run must look like. Each turn lists the
// messages one completion appended; a turn that advances through a tool call
// carries both the assistant request and the tool result, the way a live
// provider round does.
type Fixture struct {
	Name     string          `json:"name"`
	System   string          `json:"system,omitempty"`
	Input    string          `json:"input"`
	Turns    [][]MessageSpec `json:"turns"`
	MaxSteps int             `json:"max_steps,omitempty"`
	Goal     string          `json:"goal,omitempty"`
	Expect   Expectation     `json:"expect"`
}

// Expectation is checked against the final assistant message and halt.
type Expectation struct {
	Halt        string   `json:"halt,omitempty"`
	Contains    []string `json:"contains,omitempty"`
	NotContains []string `json:"not_contains,omitempty"`
}

// Result reports the outcome of replaying one fixture.
type Result struct {
	Name    string
	Passed  bool
	Details []string
}

// ReplayTranscript drives a loop over the fixture's scripted turns and
// checks the expectations.
func ReplayTranscript(ctx context.Context, fx Fixture) (Result, error) {
	turns := make([]script.Turn[agent.MapMemory], 0, len(fx.Turns))
	for _, specs := range fx.Turns {
		specs := specs
		turns = append(turns, func(messages []agent.Message, memory agent.MapMemory) ([]agent.Message, agent.MapMemory, error) {
			out := append([]agent.Message(nil), messages...)
			for _, sp := range specs {
				out = append(out, agent.Message{Role: sp.Role, Content: sp.Content})
			}
			return out, memory, nil
		})
	}
	model := script.New(turns...)

	msgs := []agent.Message{}
	if fx.System != "" {
		msgs = append(msgs, agent.Message{Role: agent.RoleSystem, Content: fx.System})
	}
	msgs = append(msgs, agent.Message{Role: agent.RoleUser, Content: fx.Input})

	actx := &agent.Context[agent.MapMemory]{}
	if fx.Goal != "" {
		goal := fx.Goal
		actx.IsFinal = func(s agent.State[agent.MapMemory]) bool {
			last, ok := s.LastMessage()
			return ok && strings.Contains(last.Content, goal)
		}
	}

	steps := fx.MaxSteps
	if steps == 0 {
		steps = len(fx.Turns) + 2
	}
	opts := agent.RunOptions[agent.MapMemory]{MaxSteps: agent.Steps(steps)}

	st := agent.NewState(model, msgs, agent.MapMemory{})
	final, err := agent.Loop(ctx, actx, st, opts)
	if err != nil {
		return Result{Name: fx.Name}, err
	}
	return check(fx, final), nil
}

func check(fx Fixture, final agent.State[agent.MapMemory]) Result {
	res := Result{Name: fx.Name, Passed: true}
	if fx.Expect.Halt != "" {
		got := ""
		if final.Halted != nil {
			got = string(final.Halted.Kind)
		}
		if got != fx.Expect.Halt {
			res.Passed = false
			res.Details = append(res.Details, fx.Name+": halt "+got+" want "+fx.Expect.Halt)
		}
	}
	text := lastAssistant(final)
	for _, s := range fx.Expect.Contains {
		if !strings.Contains(text, s) {
			res.Passed = false
			res.Details = append(res.Details, fx.Name+": missing contains: "+s)
		}
	}
	for _, s := range fx.Expect.NotContains {
		if strings.Contains(text, s) {
			res.Passed = false
			res.Details = append(res.Details, fx.Name+": unexpected contains: "+s)
		}
	}
	return res
}

func lastAssistant(st agent.State[agent.MapMemory]) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == agent.RoleAssistant {
			return st.Messages[i].Content
		}
	}
	return ""
}

// EvaluateFixtures loads json fixtures from an fs.FS directory, replays each
// and returns score [0,1].
func EvaluateFixtures(ctx context.Context, fsys fs.FS, dir string) (score float64, total int, passed int, details []string, err error) {
	fixtures, err := loadFixtures(fsys, dir)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	total = len(fixtures)
	if total == 0 {
		return 1, 0, 0, nil, nil
	}
	for _, fx := range fixtures {
		res, rerr := ReplayTranscript(ctx, fx)
		if rerr != nil {
			details = append(details, fx.Name+": replay error: "+rerr.Error())
			continue
		}
		details = append(details, res.Details...)
		if res.Passed {
			passed++
		}
	}
	score = float64(passed) / float64(total)
	return score, total, passed, details, nil
}

func loadFixtures(fsys fs.FS, dir string) ([]Fixture, error) {
	var out []Fixture
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := fs.ReadFile(fsys, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var fx Fixture
		if err := json.Unmarshal(b, &fx); err != nil {
			return nil, err
		}
		out = append(out, fx)
	}
	return out, nil
}
