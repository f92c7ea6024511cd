package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sandevgo/ivorybot/internal/core"
)

type stubTool struct {
	def     core.ToolDefinition
	execute func(ctx context.Context, params map[string]any) (map[string]any, error)
}

func (s *stubTool) Definition() core.ToolDefinition { return s.def }

func (s *stubTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return s.execute(ctx, params)
}

func newStub(name string, fn func(ctx context.Context, params map[string]any) (map[string]any, error)) *stubTool {
	return &stubTool{
		def: core.ToolDefinition{
			Name: name,
			Parameters: core.Schema{
				Type: "object",
				Properties: map[string]core.Property{
					"value": {Type: "string"},
				},
			},
		},
		execute: fn,
	}
}

func TestRegistry_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown_tool", func(t *testing.T) {
		r := NewRegistry()
		res := r.Execute(ctx, core.ToolCall{Name: "ghost"})
		if res.Success || res.Kind != core.FailUnknownTool {
			t.Fatalf("result = %+v, want unknown tool failure", res)
		}
	})

	t.Run("classified_error_keeps_kind", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("denier", func(context.Context, map[string]any) (map[string]any, error) {
			return nil, core.NewToolError(core.FailPermissionDenied, "ERROR: no consent")
		}))

		res := r.Execute(ctx, core.ToolCall{Name: "denier"})
		if res.Kind != core.FailPermissionDenied || !strings.HasPrefix(res.Err, "ERROR:") {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("plain_error_becomes_execution_failure", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("flaky", func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("disk on fire")
		}))

		res := r.Execute(ctx, core.ToolCall{Name: "flaky"})
		if res.Kind != core.FailExecution {
			t.Fatalf("kind = %s, want execution failure", res.Kind)
		}
	})

	t.Run("panic_is_contained", func(t *testing.T) {
		r := NewRegistry()
		_ = r.Register(newStub("boom", func(context.Context, map[string]any) (map[string]any, error) {
			panic("nil map write")
		}))
		_ = r.Register(newStub("steady", func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}))

		res := r.Execute(ctx, core.ToolCall{Name: "boom"})
		if res.Success || res.Kind != core.FailExecution {
			t.Fatalf("panic result = %+v", res)
		}

		// The registry must survive the panic.
		res = r.Execute(ctx, core.ToolCall{Name: "steady"})
		if !res.Success {
			t.Fatalf("follow-up call failed: %+v", res)
		}
	})

	t.Run("duplicate_registration_rejected", func(t *testing.T) {
		r := NewRegistry()
		stub := newStub("twice", func(context.Context, map[string]any) (map[string]any, error) { return nil, nil })
		if err := r.Register(stub); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(stub); err == nil {
			t.Fatal("duplicate registration accepted")
		}
	})
}

func TestCoerceParams(t *testing.T) {
	schema := core.Schema{
		Type: "object",
		Properties: map[string]core.Property{
			"operation": {Type: "string", Enum: []string{"store", "list"}},
			"count":     {Type: "number"},
			"flag":      {Type: "boolean"},
			"tags":      {Type: "array", Items: &core.Property{Type: "string"}},
		},
		Required: []string{"operation"},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
		check   func(t *testing.T, out map[string]any)
	}{
		{
			name:   "json_native_types_pass_through",
			params: map[string]any{"operation": "store", "count": 3.0, "flag": true},
			check: func(t *testing.T, out map[string]any) {
				if out["count"] != 3.0 || out["flag"] != true {
					t.Errorf("out = %v", out)
				}
			},
		},
		{
			name:   "fallback_strings_are_coerced",
			params: map[string]any{"operation": "store", "count": "42", "flag": "true"},
			check: func(t *testing.T, out map[string]any) {
				if out["count"] != 42.0 {
					t.Errorf("count = %v (%T)", out["count"], out["count"])
				}
				if out["flag"] != true {
					t.Errorf("flag = %v (%T)", out["flag"], out["flag"])
				}
			},
		},
		{
			name:   "comma_string_becomes_array",
			params: map[string]any{"operation": "list", "tags": "work, personal"},
			check: func(t *testing.T, out map[string]any) {
				tags := StringsParam(out, "tags")
				if len(tags) != 2 || tags[0] != "work" || tags[1] != "personal" {
					t.Errorf("tags = %v", tags)
				}
			},
		},
		{
			name:    "missing_required",
			params:  map[string]any{"count": 1.0},
			wantErr: true,
		},
		{
			name:    "enum_violation",
			params:  map[string]any{"operation": "explode"},
			wantErr: true,
		},
		{
			name:    "uncoercible_boolean",
			params:  map[string]any{"operation": "store", "flag": "maybe"},
			wantErr: true,
		},
		{
			name:    "uncoercible_number",
			params:  map[string]any{"operation": "store", "count": "a lot"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := coerceParams(schema, tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, out)
		})
	}
}

func TestRegistry_InvalidParametersShortCircuit(t *testing.T) {
	r := NewRegistry()
	called := false
	stub := newStub("strict", func(context.Context, map[string]any) (map[string]any, error) {
		called = true
		return nil, nil
	})
	stub.def.Parameters.Required = []string{"value"}
	_ = r.Register(stub)

	res := r.Execute(context.Background(), core.ToolCall{Name: "strict", Params: map[string]any{}})
	if res.Kind != core.FailInvalidParameters {
		t.Fatalf("kind = %s", res.Kind)
	}
	if called {
		t.Error("tool ran despite failed validation")
	}
}
