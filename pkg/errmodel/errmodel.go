// Package errmodel defines the compact error payload used across nanoagent.
// Categories follow the control loop's failure taxonomy: configuration errors
// are fatal and raised synchronously, model failures surface as recoverable
// halt states, memory conflicts indicate a programming error in tool design.
package errmodel

import (
	"encoding/json"
	"errors"
	"strings"
)

// Category values for compact errors.
const (
	CategoryConfig     = "config"
	CategoryModel      = "model"
	CategoryTool       = "tool"
	CategoryMemory     = "memory"
	CategoryValidation = "validation"
	CategorySystem     = "system"
)

// Error is the compact error payload used internally and handed to callers.
// It implements the error interface.
type Error struct {
	Category string         `json:"category"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
	Causes   []Error        `json:"causes,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// New constructs a new compact error.
func New(category, code, message string, ctx map[string]any, causes ...error) *Error {
	ce := &Error{Category: category, Code: code, Message: truncate(message, 512)}
	if len(ctx) > 0 {
		ce.Context = truncateContext(ctx)
	}
	for _, c := range causes {
		if c == nil {
			continue
		}
		ce.Causes = append(ce.Causes, *From(c))
	}
	return ce
}

// From converts any error into a compact Error. If err is already *Error,
// it's returned as-is.
func From(err error) *Error {
	var ce *Error
	if err == nil {
		return nil
	}
	if errors.As(err, &ce) {
		return ce
	}
	// Default to system/internal for unknown error types.
	return &Error{Category: CategorySystem, Code: "internal", Message: truncate(err.Error(), 512)}
}

// Convenience constructors.

// Config marks a missing or invalid piece of caller configuration. Fatal,
// never retried.
func Config(code, message string, ctx map[string]any) *Error {
	return New(CategoryConfig, code, message, ctx)
}

// Model wraps a model-call failure.
func Model(code, message string, ctx map[string]any, cause error) *Error {
	if cause != nil {
		return New(CategoryModel, code, message, ctx, cause)
	}
	return New(CategoryModel, code, message, ctx)
}

// Tool marks a tool resolution or invocation failure.
func Tool(code, message string, ctx map[string]any, causes ...error) *Error {
	return New(CategoryTool, code, message, ctx, causes...)
}

// Memory marks a memory-patch composition conflict.
func Memory(code, message string, ctx map[string]any) *Error {
	return New(CategoryMemory, code, message, ctx)
}

func Validation(code, message string, ctx map[string]any) *Error {
	return New(CategoryValidation, code, message, ctx)
}

func System(code, message string, ctx map[string]any, cause error) *Error {
	if cause != nil {
		return New(CategorySystem, code, message, ctx, cause)
	}
	return New(CategorySystem, code, message, ctx)
}

// IsCategory checks if err belongs to a specific category.
func IsCategory(err error, category string) bool {
	ce := From(err)
	return ce != nil && strings.EqualFold(ce.Category, category)
}

// truncate trims a string to max characters.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// truncateContext trims long string values in the context map.
func truncateContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch t := v.(type) {
		case string:
			out[k] = truncate(t, 256)
		default:
			// Try to stringify primitive slices to keep payload compact.
			b, err := json.Marshal(t)
			if err == nil && len(b) > 0 {
				s := string(b)
				if len(s) > 256 {
					s = truncate(s, 256)
				}
				out[k] = s
			} else {
				out[k] = t
			}
		}
	}
	return out
}
