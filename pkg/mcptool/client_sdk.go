//go:build mcp

package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type sdkClient struct {
	session *mcp.ClientSession
}

// New launches an MCP server as a subprocess and connects over stdio.
func New(ctx context.Context, command string, args ...string) (Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "nanoagent", Version: "0.1.0"}, nil)
	transport := &mcp.CommandTransport{Command: exec.Command(command, args...)}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	return &sdkClient{session: session}, nil
}

func (s *sdkClient) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		var schema []byte
		if t.InputSchema != nil {
			schema, err = json.Marshal(t.InputSchema)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, Tool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

func (s *sdkClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", errors.New(b.String())
	}
	return b.String(), nil
}

func (s *sdkClient) Close() error { return s.session.Close() }
