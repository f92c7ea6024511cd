package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/pkg/log"
)

// Tool is one capability the model can invoke through a directive. Execute
// receives validated, coerced parameters and returns a result payload. A
// classified failure is signalled with *core.ToolError; any other error or a
// panic is treated as an execution fault.
type Tool interface {
	Definition() core.ToolDefinition
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Registry holds the tools registered at startup. Registration order is
// preserved so the system prompt advertises tools deterministically.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return errors.New("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Definitions() []core.ToolDefinition {
	defs := make([]core.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs one extracted call through validation and the tool itself.
// It never returns an error: every failure mode collapses into a ToolResult
// that the orchestrator splices back for the model to react to.
func (r *Registry) Execute(ctx context.Context, call core.ToolCall) (res core.ToolResult) {
	logger := log.FromCtx(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Str("tool", call.Name).Any("panic", rec).Msg("tool execution panicked")
			res = core.Fail(core.FailExecution, fmt.Sprintf("tool %s crashed: %v", call.Name, rec))
		}
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		return core.Fail(core.FailUnknownTool, fmt.Sprintf("unknown tool: %s (available: %s)", call.Name, strings.Join(r.sortedNames(), ", ")))
	}

	params, err := coerceParams(tool.Definition().Parameters, call.Params)
	if err != nil {
		return core.Fail(core.FailInvalidParameters, err.Error())
	}

	payload, err := tool.Execute(ctx, params)
	if err != nil {
		var te *core.ToolError
		if errors.As(err, &te) {
			return core.Fail(te.Kind, te.Message)
		}
		return core.Fail(core.FailExecution, err.Error())
	}

	return core.OK(payload)
}

func (r *Registry) sortedNames() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// coerceParams validates params against the schema and returns a coerced
// copy. Coercion exists because the degraded line parser yields string
// values for everything: "true" must still satisfy a boolean parameter and
// "42" a number.
func coerceParams(schema core.Schema, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}

	for _, req := range schema.Required {
		if _, ok := params[req]; !ok {
			return nil, fmt.Errorf("missing required parameter: %s", req)
		}
	}

	out := make(map[string]any, len(params))
	for key, value := range params {
		prop, known := schema.Properties[key]
		if !known {
			// Unknown keys pass through untouched; tools ignore them.
			out[key] = value
			continue
		}
		coerced, err := coerceValue(prop, value)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		out[key] = coerced
	}

	return out, nil
}

func coerceValue(prop core.Property, value any) (any, error) {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		if len(prop.Enum) > 0 && !containsString(prop.Enum, s) {
			return nil, fmt.Errorf("value %q not in [%s]", s, strings.Join(prop.Enum, ", "))
		}
		return s, nil

	case "number":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected number, got %T", value)
		}

	case "boolean":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}

	case "array":
		switch v := value.(type) {
		case []any:
			return v, nil
		case []string:
			arr := make([]any, len(v))
			for i, s := range v {
				arr[i] = s
			}
			return arr, nil
		case string:
			// Degraded parse: "a, b, c" becomes a string array.
			if strings.TrimSpace(v) == "" {
				return []any{}, nil
			}
			parts := strings.Split(v, ",")
			arr := make([]any, 0, len(parts))
			for _, p := range parts {
				arr = append(arr, strings.Trim(strings.TrimSpace(p), `"[]`))
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("expected array, got %T", value)
		}

	default:
		return value, nil
	}
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// StringParam reads an optional string parameter from coerced params.
func StringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// BoolParam reads an optional boolean parameter from coerced params.
func BoolParam(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}

// StringsParam reads an optional string-array parameter from coerced params.
func StringsParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
