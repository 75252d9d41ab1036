// Package gemini adapts the Gemini API to the agent model interface.
package gemini

import (
	"context"
	"os"
	"sync"

	genai "google.golang.org/genai"

	"github.com/hbbio/nanoagent/pkg/adapters/model"
	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/errmodel"
)

const defaultModel = "gemini-2.5-flash-lite"

// Model drives Gemini text generation. Text only; tool calls are not mapped
// to the provider's function calling yet.
type Model struct {
	client *genai.Client
	model  string

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New builds a Model from config. The API key falls back to GOOGLE_API_KEY.
func New(ctx context.Context, cfg model.Config) (*Model, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errmodel.Config("missing_api_key",
			"set GOOGLE_API_KEY or pass APIKey", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	return &Model{client: client, model: name}, nil
}

// Complete implements agent.Model.
func (m *Model) Complete(ctx context.Context, messages []agent.Message, memory agent.MapMemory, _ []agent.ToolDescriptor) (agent.Completion[agent.MapMemory], error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		role := genai.RoleUser
		if msg.Role == agent.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	res, err := m.client.Models.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return agent.Completion[agent.MapMemory]{}, err
	}
	out := append(append([]agent.Message(nil), messages...),
		agent.Message{Role: agent.RoleAssistant, Content: res.Text()})
	return agent.Completion[agent.MapMemory]{Messages: out, Memory: memory}, nil
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

func init() {
	_ = model.Register("gemini", func(ctx context.Context, cfg model.Config) (agent.Model[agent.MapMemory], error) {
		return New(ctx, cfg)
	})
}
