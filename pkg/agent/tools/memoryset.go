package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/hbbio/nanoagent/pkg/agent"
)

// MemorySet stores a value under a key through a memory patch. The write is
// applied by the patch composer after the whole tool batch ran, so two calls
// writing the same key in one batch conflict.
func MemorySet() agent.RegisteredTool[agent.MapMemory] {
	return agent.RegisteredTool[agent.MapMemory]{
		ToolDescriptor: agent.ToolDescriptor{
			Name:        "memory.set",
			Description: "Stores a value in agent memory under a key",
			InputSchema: []byte(`{"type":"object","properties":{"key":{"type":"string","minLength":1},"value":{}},"required":["key","value"],"additionalProperties":false}`),
		},
		Handler: func(_ context.Context, args map[string]any, _ agent.MapMemory) (agent.ToolResponse[agent.MapMemory], error) {
			key, _ := args["key"].(string)
			if key == "" {
				return agent.ToolResponse[agent.MapMemory]{}, errors.New("key required")
			}
			value := args["value"]
			return agent.ToolResponse[agent.MapMemory]{
				Content: fmt.Sprintf("stored %q", key),
				Patch: func(m agent.MapMemory) agent.MapMemory {
					m[key] = value
					return m
				},
			}, nil
		},
	}
}
