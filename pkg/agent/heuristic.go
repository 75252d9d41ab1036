package agent

import (
	"context"
	"strings"
)

// inputClassifierPrompt drives the secondary heuristic model. The classifier
// sees only the assistant text, never the run's memory or tools.
const inputClassifierPrompt = "You classify assistant messages. " +
	"Answer YES if the message asks the user a question or requests more " +
	"information from the user before work can continue. Otherwise answer NO. " +
	"Reply with exactly YES or NO."

// RequestsInput asks the heuristic model whether assistant text requests user
// input. A nil heuristic disables detection: guessing from punctuation would
// pause runs spuriously. Classifier failures are treated as NO.
func RequestsInput[M Memory](ctx context.Context, heuristic Model[M], text string) bool {
	if heuristic == nil || strings.TrimSpace(text) == "" {
		return false
	}
	var memory M
	out, err := heuristic.Complete(ctx, []Message{
		{Role: RoleSystem, Content: inputClassifierPrompt},
		{Role: RoleUser, Content: text},
	}, memory, nil)
	if err != nil || len(out.Messages) == 0 {
		return false
	}
	verdict := out.Messages[len(out.Messages)-1].Content
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(verdict)), "YES")
}
