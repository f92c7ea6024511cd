package protocol

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sandevgo/ivorybot/internal/core"
)

func directive(name, params string) string {
	return OpenMarker + "\nname: " + name + "\nparameters: " + params + "\n" + CloseMarker
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCalls    int
		wantFailures int
		wantName     string
		wantParams   map[string]any
	}{
		{
			name:       "single_json_directive",
			text:       "Let me calculate.\n" + directive("calculator", `{"expression": "2+2"}`),
			wantCalls:  1,
			wantName:   "calculator",
			wantParams: map[string]any{"expression": "2+2"},
		},
		{
			name:       "multiline_json_object",
			text:       directive("memory", "{\n  \"operation\": \"store\",\n  \"content\": \"note\"\n}"),
			wantCalls:  1,
			wantName:   "memory",
			wantParams: map[string]any{"operation": "store", "content": "note"},
		},
		{
			name:       "fallback_line_parsing",
			text:       directive("memory", "{\noperation: retrieve\nkey: project_name\n}"),
			wantCalls:  1,
			wantName:   "memory",
			wantParams: map[string]any{"operation": "retrieve", "key": "project_name"},
		},
		{
			name:       "fallback_values_stay_strings",
			text:       directive("memory", "{\noperation: store\nhas_explicit_permission: true\n}"),
			wantCalls:  1,
			wantName:   "memory",
			wantParams: map[string]any{"operation": "store", "has_explicit_permission": "true"},
		},
		{
			name:      "multiple_directives_in_order",
			text:      directive("calculator", `{"expression": "1+1"}`) + "\nsome text\n" + directive("memory", `{"operation": "list"}`),
			wantCalls: 2,
		},
		{
			name:         "malformed_name_dropped_others_kept",
			text:         directive("not a name!", `{"x": "y"}`) + "\n" + directive("calculator", `{"expression": "3*3"}`),
			wantCalls:    1,
			wantFailures: 1,
			wantName:     "calculator",
			wantParams:   map[string]any{"expression": "3*3"},
		},
		{
			name:         "stray_open_marker_before_valid_directive",
			text:         OpenMarker + "\ngarbage\n" + directive("calculator", `{"expression": "2+2"}`),
			wantCalls:    1,
			wantFailures: 1,
			wantName:     "calculator",
			wantParams:   map[string]any{"expression": "2+2"},
		},
		{
			name:         "missing_parameters_block",
			text:         OpenMarker + "\nname: calculator\n" + CloseMarker,
			wantCalls:    0,
			wantFailures: 1,
		},
		{
			name:         "unterminated_directive",
			text:         OpenMarker + "\nname: calculator\nparameters: {\"expression\": \"1\"}",
			wantCalls:    0,
			wantFailures: 1,
		},
		{
			name:      "no_directives",
			text:      "Just a plain answer with no tools.",
			wantCalls: 0,
		},
		{
			name:      "empty_text",
			text:      "",
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, failures := Extract(tt.text)

			if len(calls) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(calls), tt.wantCalls)
			}
			if len(failures) != tt.wantFailures {
				t.Fatalf("failures = %d, want %d", len(failures), tt.wantFailures)
			}

			if tt.wantName != "" {
				last := calls[len(calls)-1]
				if last.Name != tt.wantName {
					t.Errorf("name = %s, want %s", last.Name, tt.wantName)
				}
				if tt.wantParams != nil && !reflect.DeepEqual(last.Params, tt.wantParams) {
					t.Errorf("params = %v, want %v", last.Params, tt.wantParams)
				}
			}
		})
	}
}

func TestExtract_OrderAndSpans(t *testing.T) {
	text := "a\n" + directive("calculator", `{"expression": "1"}`) + "\nb\n" + directive("memory", `{"operation": "list"}`) + "\nc"

	calls, failures := Extract(text)
	if len(failures) != 0 {
		t.Fatalf("failures: %v", failures)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}

	if calls[0].Name != "calculator" || calls[1].Name != "memory" {
		t.Errorf("order = [%s, %s], want [calculator, memory]", calls[0].Name, calls[1].Name)
	}
	if calls[0].SpanEnd > calls[1].SpanStart {
		t.Error("spans overlap or are out of order")
	}
	for i, c := range calls {
		if text[c.SpanStart:c.SpanEnd] != c.Raw {
			t.Errorf("call %d: span does not match raw text", i)
		}
		if !strings.HasPrefix(c.Raw, OpenMarker) || !strings.HasSuffix(c.Raw, CloseMarker) {
			t.Errorf("call %d: raw block missing markers", i)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := directive("calculator", `{"expression": "2+2"}`) + "\n" + directive("broken", "???") + "\n" + directive("memory", `{"operation": "list"}`)

	first, firstFail := Extract(text)
	second, secondFail := Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated extraction produced different calls")
	}
	if !reflect.DeepEqual(firstFail, secondFail) {
		t.Error("repeated extraction produced different failures")
	}
}

func TestSpliceResults(t *testing.T) {
	text := "Before.\n" + directive("calculator", `{"expression": "2+2"}`) + "\nAfter."
	calls, _ := Extract(text)
	results := []core.ToolResult{core.OK(map[string]any{"result": 4.0})}

	spliced := SpliceResults(text, calls, results)

	callEnd := strings.Index(spliced, CloseMarker) + len(CloseMarker)
	resStart := strings.Index(spliced, ResultOpenMarker)
	if resStart < callEnd {
		t.Fatal("result block not positioned after its call block")
	}
	if !strings.Contains(spliced, `"result": 4`) {
		t.Errorf("spliced text missing payload: %s", spliced)
	}
	if !strings.HasSuffix(spliced, "After.") {
		t.Error("trailing text lost")
	}
}

func TestSpliceResults_MultipleInSourceOrder(t *testing.T) {
	text := directive("calculator", `{"expression": "1"}`) + "\nmid\n" + directive("calculator", `{"expression": "2"}`)
	calls, _ := Extract(text)
	results := []core.ToolResult{
		core.OK(map[string]any{"result": 1.0}),
		core.Fail(core.FailEvaluation, "bad expression"),
	}

	spliced := SpliceResults(text, calls, results)

	if got := strings.Count(spliced, ResultOpenMarker); got != 2 {
		t.Fatalf("result blocks = %d, want 2", got)
	}

	// Each result block must directly follow its call block.
	firstCall := strings.Index(spliced, CloseMarker)
	firstResult := strings.Index(spliced, ResultOpenMarker)
	if firstResult < firstCall {
		t.Error("first result precedes first call")
	}
	if !strings.Contains(spliced, `"error": "bad expression"`) {
		t.Error("failure payload not spliced")
	}
}

func TestFormatResult_Failure(t *testing.T) {
	block := FormatResult(core.Fail(core.FailPermissionDenied, "ERROR: consent required"))

	if !strings.HasPrefix(block, ResultOpenMarker) || !strings.HasSuffix(block, ResultCloseMarker) {
		t.Fatal("result block missing markers")
	}
	if !strings.Contains(block, `"success": false`) {
		t.Error("missing success flag")
	}
	if !strings.Contains(block, "ERROR: consent required") {
		t.Error("missing error message")
	}
}

func TestStripBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "plain text untouched",
			text: "Just a reply.",
			want: "Just a reply.",
		},
		{
			name: "directive and result removed",
			text: "The answer:\n" + directive("calculator", `{"expression": "2+2"}`) + "\n" +
				ResultOpenMarker + "\n{\"success\": true}\n" + ResultCloseMarker + "\nis 4.",
			want: "The answer:\n\n\nis 4.",
		},
		{
			name: "unterminated block truncates",
			text: "Partial " + OpenMarker + "\nname: calculator",
			want: "Partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripBlocks(tt.text); got != tt.want {
				t.Errorf("StripBlocks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystemPrompt_AdvertisesTools(t *testing.T) {
	defs := []core.ToolDefinition{
		{
			Name:        "calculator",
			Description: "Performs mathematical calculations",
			Parameters: core.Schema{
				Type: "object",
				Properties: map[string]core.Property{
					"expression": {Type: "string"},
				},
				Required: []string{"expression"},
			},
		},
	}

	prompt := SystemPrompt(defs)
	for _, want := range []string{"calculator", OpenMarker, CloseMarker, "has_explicit_permission"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
