// Package model registers provider factories for chat models. Providers
// register themselves in init; callers resolve by name.
package model

import (
	"context"
	"sync"

	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// Config carries provider-specific settings. Common keys: api_key, model.
type Config struct {
	APIKey string
	Model  string
	// Tools executes tool calls requested by the provider. Optional.
	Tools *agent.Registry[agent.MapMemory]
	// MaxTokens bounds the history window sent upstream. Zero disables
	// windowing.
	MaxTokens int
}

// Factory constructs a model from provider-specific config.
type Factory func(ctx context.Context, cfg Config) (agent.Model[agent.MapMemory], error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a model factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return errmodel.Config("bad_provider", "empty provider name", nil)
	}
	if f == nil {
		return errmodel.Config("bad_provider", "nil factory",
			map[string]any{"provider": name})
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return errmodel.Config("conflict", "provider already registered",
			map[string]any{"provider": name})
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// New builds a model from a registered provider.
func New(ctx context.Context, provider string, cfg Config) (agent.Model[agent.MapMemory], error) {
	f, ok := Resolve(provider)
	if !ok {
		return nil, errmodel.Config("unknown_provider", "no such model provider",
			map[string]any{"provider": provider})
	}
	return f(ctx, cfg)
}

// Names lists registered providers.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	return out
}
