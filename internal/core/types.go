package core

const (
	IvoryName          = "IvoryBot"
	IvoryUserAgent     = "IvoryBot-Agent/0.1"
	IvoryRepositoryURL = "https://github.com/sandevgo/ivorybot"
	IvoryVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation buffer. Tokens is the estimate
// recorded when the message was appended; Summary is set only on synthetic
// messages that stand in for a condensed run of older messages.
type Message struct {
	Role    string       `json:"role"`
	Content string       `json:"content"`
	Tokens  int          `json:"tokens,omitempty"`
	Summary *SummaryInfo `json:"summary,omitempty"`
}

func (m Message) IsSummary() bool {
	return m.Summary != nil
}

// SummaryInfo records what a summary message replaced, for audit/telemetry.
type SummaryInfo struct {
	ReplacedCount  int `json:"replaced_count"`
	ReplacedTokens int `json:"replaced_tokens"`
}

// Property describes one parameter in a tool schema.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Schema is the JSON-schema-shaped parameter object published by every tool.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is registered once at startup and never mutated.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// ToolCall is one directive extracted from model output. SpanStart/SpanEnd
// are byte offsets of the whole directive block (markers included) in the
// source text, so results can be spliced back immediately after it.
type ToolCall struct {
	Name      string
	Params    map[string]any
	SpanStart int
	SpanEnd   int
	Raw       string
}

// ToolResult is what a capability execution produced. Failures carry a kind
// from the fixed taxonomy plus a message; they are data, not errors. The
// orchestrator feeds them back to the model like any other payload.
type ToolResult struct {
	Success bool
	Payload map[string]any
	Kind    FailureKind
	Err     string
}

func OK(payload map[string]any) ToolResult {
	return ToolResult{Success: true, Payload: payload}
}

func Fail(kind FailureKind, msg string) ToolResult {
	return ToolResult{Success: false, Kind: kind, Err: msg}
}
