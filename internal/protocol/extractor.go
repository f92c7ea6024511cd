package protocol

import (
	"encoding/json"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
)

// Directive wire format, bit-exact with the prompts already in the field:
//
//	<mcp:tool>
//	name: tool_name
//	parameters: {
//	  "param1": "value1"
//	}
//	</mcp:tool>
const (
	OpenMarker  = "<mcp:tool>"
	CloseMarker = "</mcp:tool>"

	ResultOpenMarker  = "<mcp:tool_result>"
	ResultCloseMarker = "</mcp:tool_result>"
)

const (
	nameField   = "name:"
	paramsField = "parameters:"
)

// ParseFailure records a directive that was dropped during extraction.
type ParseFailure struct {
	SpanStart int
	SpanEnd   int
	Reason    string
}

// Extract scans text for tool directives and returns them in source order.
// It is pure: no side effects, and identical input always yields an
// identical result. A malformed directive is reported as a ParseFailure and
// never blocks extraction of the others.
func Extract(text string) ([]core.ToolCall, []ParseFailure) {
	var calls []core.ToolCall
	var failures []ParseFailure

	offset := 0
	for {
		rel := strings.Index(text[offset:], OpenMarker)
		if rel < 0 {
			break
		}
		start := offset + rel

		bodyStart := start + len(OpenMarker)
		closeRel := strings.Index(text[bodyStart:], CloseMarker)
		if closeRel < 0 {
			// Unterminated directive: nothing after it can be well formed.
			failures = append(failures, ParseFailure{
				SpanStart: start,
				SpanEnd:   len(text),
				Reason:    "missing closing marker",
			})
			break
		}
		end := bodyStart + closeRel + len(CloseMarker)
		body := text[bodyStart : bodyStart+closeRel]

		call, reason := parseDirective(body)
		if reason != "" {
			failures = append(failures, ParseFailure{SpanStart: start, SpanEnd: end, Reason: reason})
			// Resume just past the failed open marker: a stray marker must
			// not swallow a well-formed directive inside its span.
			offset = start + len(OpenMarker)
			continue
		}

		call.SpanStart = start
		call.SpanEnd = end
		call.Raw = text[start:end]
		calls = append(calls, call)

		offset = end
	}

	return calls, failures
}

// parseDirective parses a directive body into a ToolCall. The returned
// reason is empty on success.
func parseDirective(body string) (core.ToolCall, string) {
	name, rest, ok := parseNameLine(body)
	if !ok {
		return core.ToolCall{}, "unparsable name line"
	}

	idx := strings.Index(rest, paramsField)
	if idx < 0 {
		return core.ToolCall{}, "missing parameters block"
	}
	blob := strings.TrimSpace(rest[idx+len(paramsField):])

	params, ok := parseParams(blob)
	if !ok {
		return core.ToolCall{}, "unparsable parameters"
	}

	return core.ToolCall{Name: name, Params: params}, ""
}

func parseNameLine(body string) (name, rest string, ok bool) {
	for len(body) > 0 {
		line := body
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			line, body = body[:nl], body[nl+1:]
		} else {
			body = ""
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, nameField) {
			return "", "", false
		}

		name = strings.TrimSpace(strings.TrimPrefix(line, nameField))
		if name == "" || !isIdentifier(name) {
			return "", "", false
		}
		return name, body, true
	}
	return "", "", false
}

func isIdentifier(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// parseParams tries the structured JSON object first, then degrades to
// line-oriented "key: value" parsing where every value stays a string.
// The fallback is intentionally low fidelity: extracting some call beats
// extracting none.
func parseParams(blob string) (map[string]any, bool) {
	if blob == "" {
		return nil, false
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(blob), &structured); err == nil {
		return structured, true
	}

	flat := make(map[string]any)
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if line == "" || line == "{" || line == "}" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `"`)
		if key == "" {
			continue
		}
		flat[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	if len(flat) == 0 {
		return nil, false
	}
	return flat, true
}
