package tools

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hbbio/nanoagent/pkg/agent"
)

// FileRead reads a text file from a sandboxed fs.FS. Absolute paths and
// traversal are rejected.
func FileRead[M agent.Memory](fsys fs.FS) agent.RegisteredTool[M] {
	return agent.RegisteredTool[M]{
		ToolDescriptor: agent.ToolDescriptor{
			Name:        "fs.read",
			Description: "Reads a text file from sandboxed fs",
			InputSchema: []byte(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"],"additionalProperties":false}`),
			Permissions: []agent.ToolPermission{{Name: "fs:read"}},
		},
		Handler: func(_ context.Context, args map[string]any, _ M) (agent.ToolResponse[M], error) {
			if fsys == nil {
				return agent.ToolResponse[M]{}, errors.New("no fs configured")
			}
			p, _ := args["path"].(string)
			if p == "" {
				return agent.ToolResponse[M]{}, errors.New("path required")
			}
			if filepath.IsAbs(p) || filepath.Clean(p) != p || strings.Contains(p, "..") {
				return agent.ToolResponse[M]{Err: errors.New("invalid path")}, nil
			}
			b, err := fs.ReadFile(fsys, p)
			if err != nil {
				return agent.ToolResponse[M]{Err: err}, nil
			}
			return agent.ToolResponse[M]{Content: string(b)}, nil
		},
	}
}
