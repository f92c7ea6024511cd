package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/memory"
)

func newMemoryTool(t *testing.T) (*Memory, *Registry) {
	t.Helper()
	store, err := memory.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tool := NewMemory(store)
	reg := NewRegistry()
	if err := reg.Register(tool); err != nil {
		t.Fatal(err)
	}
	return tool, reg
}

func TestMemoryTool_StoreRetrieveRoundTrip(t *testing.T) {
	_, reg := newMemoryTool(t)
	ctx := context.Background()

	res := reg.Execute(ctx, core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "store",
		"content":   "deploy window opens at midnight",
		"tags":      []any{"ops"},
	}})
	if !res.Success {
		t.Fatalf("store failed: %+v", res)
	}
	key, _ := res.Payload["key"].(string)
	if key == "" {
		t.Fatal("store returned no key")
	}

	res = reg.Execute(ctx, core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "retrieve",
		"key":       key,
	}})
	if !res.Success || res.Payload["content"] != "deploy window opens at midnight" {
		t.Fatalf("retrieve = %+v", res)
	}
}

func TestMemoryTool_PermissionDeniedThroughRegistry(t *testing.T) {
	_, reg := newMemoryTool(t)

	res := reg.Execute(context.Background(), core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "store",
		"content":   "I prefer tabs over spaces",
	}})
	if res.Success {
		t.Fatal("store without permission succeeded")
	}
	if res.Kind != core.FailPermissionDenied {
		t.Errorf("kind = %s", res.Kind)
	}
	if !strings.HasPrefix(res.Err, "ERROR:") {
		t.Errorf("error %q missing ERROR: prefix", res.Err)
	}
}

func TestMemoryTool_PermissionFromFallbackString(t *testing.T) {
	// The degraded parser delivers has_explicit_permission as the string
	// "true"; coercion must still grant consent.
	_, reg := newMemoryTool(t)

	res := reg.Execute(context.Background(), core.ToolCall{Name: "memory", Params: map[string]any{
		"operation":               "store",
		"content":                 "I prefer tabs over spaces",
		"has_explicit_permission": "true",
	}})
	if !res.Success {
		t.Fatalf("store with string permission failed: %+v", res)
	}
}

func TestMemoryTool_DeleteReportsMissing(t *testing.T) {
	_, reg := newMemoryTool(t)

	res := reg.Execute(context.Background(), core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "delete",
		"key":       "never_existed",
	}})
	if !res.Success {
		t.Fatalf("delete of missing key errored: %+v", res)
	}
	if res.Payload["deleted"] != false {
		t.Errorf("deleted = %v, want false", res.Payload["deleted"])
	}
}

func TestMemoryTool_SearchAndList(t *testing.T) {
	_, reg := newMemoryTool(t)
	ctx := context.Background()

	for _, content := range []string{
		"the staging cluster runs kubernetes",
		"grocery list for the weekend",
	} {
		res := reg.Execute(ctx, core.ToolCall{Name: "memory", Params: map[string]any{
			"operation": "store",
			"content":   content,
		}})
		if !res.Success {
			t.Fatalf("store %q: %+v", content, res)
		}
	}

	res := reg.Execute(ctx, core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "search",
		"query":     "kubernetes",
	}})
	if !res.Success || res.Payload["count"] != 1 {
		t.Fatalf("search = %+v", res)
	}

	res = reg.Execute(ctx, core.ToolCall{Name: "memory", Params: map[string]any{"operation": "list"}})
	if !res.Success || res.Payload["count"] != 2 {
		t.Fatalf("list = %+v", res)
	}
}

func TestMemoryTool_UnknownOperation(t *testing.T) {
	_, reg := newMemoryTool(t)

	res := reg.Execute(context.Background(), core.ToolCall{Name: "memory", Params: map[string]any{
		"operation": "merge",
	}})
	if res.Success || res.Kind != core.FailInvalidParameters {
		t.Fatalf("result = %+v, want invalid parameters", res)
	}
}
