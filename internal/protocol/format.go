package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
)

// FormatResult renders a ToolResult as a result block the model can read.
// Failure payloads look exactly like success payloads apart from the fields,
// so the model reacts to both the same way.
func FormatResult(res core.ToolResult) string {
	obj := make(map[string]any, len(res.Payload)+2)
	if res.Success {
		obj["success"] = true
		for k, v := range res.Payload {
			obj[k] = v
		}
	} else {
		obj["success"] = false
		obj["error"] = res.Err
		obj["kind"] = string(res.Kind)
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"success": false, "error": %q}`, err.Error()))
	}

	return ResultOpenMarker + "\n" + string(data) + "\n" + ResultCloseMarker
}

// SpliceResults inserts each call's result block immediately after the
// directive's source span. Calls must be in extraction (source) order;
// results must be index-aligned with calls.
func SpliceResults(text string, calls []core.ToolCall, results []core.ToolResult) string {
	if len(calls) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for i, call := range calls {
		sb.WriteString(text[last:call.SpanEnd])
		sb.WriteString("\n")
		sb.WriteString(FormatResult(results[i]))
		last = call.SpanEnd
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// StripBlocks removes directive and result blocks from text, leaving the
// prose around them. Used when surfacing a transcript that still carries
// tool plumbing to an end user.
func StripBlocks(text string) string {
	for _, pair := range [][2]string{
		{OpenMarker, CloseMarker},
		{ResultOpenMarker, ResultCloseMarker},
	} {
		for {
			start := strings.Index(text, pair[0])
			if start < 0 {
				break
			}
			end := strings.Index(text[start:], pair[1])
			if end < 0 {
				text = text[:start]
				break
			}
			text = text[:start] + text[start+end+len(pair[1]):]
		}
	}
	return strings.TrimSpace(text)
}

// DescribeTools formats the registered tool schemas for the system prompt.
func DescribeTools(defs []core.ToolDefinition) string {
	var sb strings.Builder
	for _, def := range defs {
		params, err := json.MarshalIndent(def.Parameters, "", "  ")
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "\nTool: %s\nDescription: %s\nParameters: %s\n", def.Name, def.Description, params)
	}
	return sb.String()
}

// SystemPrompt builds the default system prompt advertising the tool
// directive syntax and the registered capabilities.
func SystemPrompt(defs []core.ToolDefinition) string {
	return fmt.Sprintf(`You are a helpful AI assistant with access to tools and memory of the conversation history.

Available tools:
%s
When you need to use a tool, format your response using this exact syntax:

%s
name: tool_name
parameters: {
  "param1": "value1",
  "param2": "value2"
}
%s

After you get the tool result, provide your final response. Never make up tool results.

You have access to permanent memory storage. When the user mentions something important they want to remember,
or when they ask about something they've told you before, use the memory tool to store or retrieve information.
Be proactive about using the memory tool when it would be helpful, but don't overuse it for trivial details.

MEMORY PROTOCOL: Always ask for explicit confirmation BEFORE storing any information permanently.
Only after receiving clear confirmation should you use the memory tool with has_explicit_permission=true.
If you store without permission or with permission=false, the request will be rejected.`,
		DescribeTools(defs), OpenMarker, CloseMarker)
}
