// Package openai adapts the OpenAI chat completion API to the agent model
// interface, including tool call execution.
package openai

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/hbbio/nanoagent/pkg/adapters/model"
	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/errmodel"
	"github.com/hbbio/nanoagent/pkg/history"
)

const defaultModel = "gpt-5-nano"

// Model drives OpenAI chat completions. Tool calls requested by the provider
// are executed through the registry before the completion returns, so one
// Complete covers a full provider round.
type Model struct {
	client oa.Client
	model  string
	tools  *agent.Registry[agent.MapMemory]
	window *history.Window

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New builds a Model from config. The API key falls back to OPENAI_API_KEY.
func New(cfg model.Config) (*Model, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errmodel.Config("missing_api_key",
			"set OPENAI_API_KEY or pass APIKey", nil)
	}
	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	m := &Model{
		client: oa.NewClient(option.WithAPIKey(apiKey)),
		model:  name,
		tools:  cfg.Tools,
	}
	if cfg.MaxTokens > 0 {
		opts := []history.Option{history.WithMaxTokens(cfg.MaxTokens)}
		if est, err := history.NewTikTokenEstimator(name); err == nil {
			opts = append(opts, history.WithTokenEstimator(est))
		}
		m.window = history.New(opts...)
	}
	return m, nil
}

// Complete implements agent.Model.
func (m *Model) Complete(ctx context.Context, messages []agent.Message, memory agent.MapMemory, tools []agent.ToolDescriptor) (agent.Completion[agent.MapMemory], error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return agent.Completion[agent.MapMemory]{}, errmodel.Model("stopped",
			"model was stopped", nil, nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	wire := messages
	if m.window != nil {
		wire, _ = m.window.Select(messages)
	}

	params := oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: toWireMessages(wire),
	}
	if ts := toWireTools(tools); len(ts) > 0 {
		params.Tools = ts
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.Completion[agent.MapMemory]{}, err
	}
	if len(resp.Choices) == 0 {
		return agent.Completion[agent.MapMemory]{
			Messages: append(append([]agent.Message(nil), messages...),
				agent.Message{Role: agent.RoleAssistant}),
			Memory: memory,
		}, nil
	}

	choice := resp.Choices[0].Message
	assistant := agent.Message{Role: agent.RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return agent.Completion[agent.MapMemory]{}, errmodel.Model("bad_tool_args",
					"unmarshaling tool call arguments",
					map[string]any{"tool": tc.Function.Name}, err)
			}
		}
		assistant.ToolCalls = append(assistant.ToolCalls, agent.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	out := append(append([]agent.Message(nil), messages...), assistant)
	next := memory
	if len(assistant.ToolCalls) > 0 && m.tools != nil {
		toolMsgs, merged, err := m.tools.ExecuteCalls(ctx, assistant.ToolCalls, memory)
		if err != nil {
			return agent.Completion[agent.MapMemory]{}, err
		}
		out = append(out, toolMsgs...)
		next = merged
	}
	return agent.Completion[agent.MapMemory]{Messages: out, Memory: next}, nil
}

// Stop cancels any in-flight completion and rejects further calls.
func (m *Model) Stop() {
	m.mu.Lock()
	m.stopped = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
}

func toWireMessages(messages []agent.Message) []oa.ChatCompletionMessageParamUnion {
	out := make([]oa.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			out = append(out, oa.SystemMessage(msg.Content))
		case agent.RoleAssistant:
			am := oa.ChatCompletionMessage{Role: "assistant", Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					continue
				}
				am.ToolCalls = append(am.ToolCalls, oa.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: oa.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, am.ToParam())
		case agent.RoleTool:
			out = append(out, oa.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, oa.UserMessage(msg.Content))
		}
	}
	return out
}

func toWireTools(tools []agent.ToolDescriptor) []oa.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]oa.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		params := oa.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if len(t.InputSchema) > 0 {
			var schema map[string]any
			if err := json.Unmarshal(t.InputSchema, &schema); err == nil {
				params = schema
			}
		}
		out = append(out, oa.ChatCompletionFunctionTool(oa.FunctionDefinitionParam{
			Name:        t.Name,
			Description: oa.String(t.Description),
			Parameters:  params,
		}))
	}
	return out
}

func init() {
	_ = model.Register("openai", func(_ context.Context, cfg model.Config) (agent.Model[agent.MapMemory], error) {
		return New(cfg)
	})
}
