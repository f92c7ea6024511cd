package core

import "fmt"

// FailureKind classifies why a tool call did not produce a payload.
type FailureKind string

const (
	FailUnknownTool       FailureKind = "unknown_tool"
	FailInvalidParameters FailureKind = "invalid_parameters"
	FailPermissionDenied  FailureKind = "permission_denied"
	FailEvaluation        FailureKind = "evaluation_error"
	FailNotFound          FailureKind = "not_found"
	FailExecution         FailureKind = "execution_error"
)

// ToolError lets a capability signal a classified failure up to the
// executor, which converts it into a ToolResult. Any other error (or a
// recovered panic) becomes FailExecution.
type ToolError struct {
	Kind    FailureKind
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewToolError(kind FailureKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
