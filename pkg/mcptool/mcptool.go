// Package mcptool bridges Model Context Protocol servers into the tool
// registry. The default build ships a stub client; build with -tags mcp to
// talk to real servers over stdio.
package mcptool

import (
	"context"

	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// Client defines the minimal MCP client capabilities the registry bridge
// needs.
type Client interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// Tool is a subset of the MCP tool schema.
type Tool struct {
	Name        string
	Description string
	InputSchema []byte
}

// Register lists the client's tools and registers each one with the
// registry. Calls are forwarded to the server; the text result becomes the
// tool response content.
func Register[M agent.Memory](ctx context.Context, reg *agent.Registry[M], client Client) error {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return errmodel.Tool("mcp_list_failed", "listing server tools", nil, err)
	}
	for _, t := range tools {
		t := t
		err := reg.Register(agent.RegisteredTool[M]{
			ToolDescriptor: agent.ToolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			},
			Handler: func(ctx context.Context, args map[string]any, _ M) (agent.ToolResponse[M], error) {
				text, err := client.CallTool(ctx, t.Name, args)
				if err != nil {
					return agent.ToolResponse[M]{Err: err}, nil
				}
				return agent.ToolResponse[M]{Content: text}, nil
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
