// Package tools ships built-in tools ready to register: outbound HTTP,
// sandboxed file reads, and memory writes.
package tools

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hbbio/nanoagent/pkg/agent"
)

const maxBodyBytes = 1 << 20

// HTTPGet performs outbound GET requests and feeds the body back to the
// model.
func HTTPGet[M agent.Memory]() agent.RegisteredTool[M] {
	return agent.RegisteredTool[M]{
		ToolDescriptor: agent.ToolDescriptor{
			Name:        "http.get",
			Description: "Performs an HTTP GET request",
			InputSchema: []byte(`{"type":"object","properties":{"url":{"type":"string","format":"uri"},"timeout_ms":{"type":"integer","minimum":1,"maximum":60000}},"required":["url"],"additionalProperties":false}`),
			Permissions: []agent.ToolPermission{{Name: "network:outbound"}},
		},
		Handler: func(ctx context.Context, args map[string]any, _ M) (agent.ToolResponse[M], error) {
			url, _ := args["url"].(string)
			to := 10000
			if v, ok := args["timeout_ms"].(float64); ok && v > 0 {
				to = int(v)
			}
			client := &http.Client{Timeout: time.Duration(to) * time.Millisecond}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return agent.ToolResponse[M]{}, err
			}
			res, err := client.Do(req)
			if err != nil {
				return agent.ToolResponse[M]{Err: err}, nil
			}
			defer func() { _ = res.Body.Close() }()
			b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
			if err != nil {
				return agent.ToolResponse[M]{Err: err}, nil
			}
			return agent.ToolResponse[M]{Content: string(b)}, nil
		},
	}
}
