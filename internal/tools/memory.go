package tools

import (
	"context"
	"time"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/memory"
	"github.com/sandevgo/ivorybot/pkg/log"
)

// Memory exposes the persistent store to the model as a single tool with an
// operation discriminator, matching how the store is advertised in the
// system prompt.
type Memory struct {
	store *memory.Store
}

func NewMemory(store *memory.Store) *Memory {
	return &Memory{store: store}
}

func (m *Memory) Definition() core.ToolDefinition {
	return core.ToolDefinition{
		Name:        "memory",
		Description: "Stores and retrieves information across conversations. Storing personal details or preferences requires the user's explicit permission.",
		Parameters: core.Schema{
			Type: "object",
			Properties: map[string]core.Property{
				"operation": {
					Type:        "string",
					Description: "Operation to perform",
					Enum:        []string{"store", "retrieve", "search", "delete", "list"},
				},
				"content": {
					Type:        "string",
					Description: "Content to store (store only)",
				},
				"key": {
					Type:        "string",
					Description: "Memory key; derived from content when omitted on store",
				},
				"tags": {
					Type:        "array",
					Description: "Tags for categorization and filtering",
					Items:       &core.Property{Type: "string"},
				},
				"query": {
					Type:        "string",
					Description: "Search query (search only)",
				},
				"tag": {
					Type:        "string",
					Description: "Tag filter (list only)",
				},
				"has_explicit_permission": {
					Type:        "boolean",
					Description: "Set true only after the user explicitly confirmed storage",
				},
			},
			Required: []string{"operation"},
		},
	}
}

func (m *Memory) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	logger := log.FromCtx(ctx)
	op := StringParam(params, "operation")

	switch op {
	case "store":
		key, err := m.store.Store(
			StringParam(params, "content"),
			StringParam(params, "key"),
			StringsParam(params, "tags"),
			BoolParam(params, "has_explicit_permission"),
		)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("key", key).Msg("memory stored")
		return map[string]any{
			"key":     key,
			"message": "Information stored successfully with key: " + key,
		}, nil

	case "retrieve":
		key := StringParam(params, "key")
		if key == "" {
			return nil, core.NewToolError(core.FailInvalidParameters, "retrieve requires a key")
		}
		rec, err := m.store.Retrieve(key)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"key":        rec.Key,
			"content":    rec.Content,
			"tags":       rec.Tags,
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		}, nil

	case "search":
		query := StringParam(params, "query")
		if query == "" {
			return nil, core.NewToolError(core.FailInvalidParameters, "search requires a query")
		}
		hits := m.store.Search(query, StringsParam(params, "tags"))
		results := make([]map[string]any, 0, len(hits))
		for _, h := range hits {
			results = append(results, map[string]any{
				"key":     h.Key,
				"preview": h.Preview,
				"tags":    h.Tags,
				"score":   h.Score,
			})
		}
		return map[string]any{"results": results, "count": len(results)}, nil

	case "delete":
		key := StringParam(params, "key")
		if key == "" {
			return nil, core.NewToolError(core.FailInvalidParameters, "delete requires a key")
		}
		deleted, err := m.store.Delete(key)
		if err != nil {
			return nil, err
		}
		return map[string]any{"key": key, "deleted": deleted}, nil

	case "list":
		entries := m.store.List(StringParam(params, "tag"))
		memories := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			memories = append(memories, map[string]any{
				"key":            e.Key,
				"preview":        e.Preview,
				"tags":           e.Tags,
				"created_at":     e.CreatedAt.Format(time.RFC3339),
				"content_length": e.ContentLength,
			})
		}
		return map[string]any{"memories": memories, "count": len(memories)}, nil

	default:
		return nil, core.NewToolError(core.FailInvalidParameters, "unknown memory operation: %s", op)
	}
}
