package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sandevgo/ivorybot/internal/core"
)

func newTestRepo(t *testing.T) *TranscriptsRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTranscriptsRepo(db)
}

func TestTranscriptsRepo_MessagesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	msgs := []core.Message{
		{Role: core.RoleUser, Content: "first", Tokens: 5},
		{Role: core.RoleAssistant, Content: "second", Tokens: 7},
		{Role: core.RoleAssistant, Content: "[SUMMARY OF PREVIOUS CONVERSATION: x]", Summary: &core.SummaryInfo{ReplacedCount: 2}},
	}
	for _, m := range msgs {
		if err := repo.AddMessage(ctx, "s1", m); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.AddMessage(ctx, "other", core.Message{Role: core.RoleUser, Content: "elsewhere"}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Content != "first" || got[2].Content != "[SUMMARY OF PREVIOUS CONVERSATION: x]" {
		t.Errorf("order wrong: %+v", got)
	}
	if !got[2].IsSummary() {
		t.Error("summary flag lost")
	}
	if got[1].Tokens != 7 {
		t.Errorf("tokens = %d", got[1].Tokens)
	}
}

func TestTranscriptsRepo_GetMessagesLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c", "d"} {
		if err := repo.AddMessage(ctx, "s1", core.Message{Role: core.RoleUser, Content: content}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetMessages(ctx, "s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Content != "c" || got[1].Content != "d" {
		t.Errorf("got = %+v, want last two in order", got)
	}
}

func TestTranscriptsRepo_ToolEvents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	call := core.ToolCall{Name: "calculator", Params: map[string]any{"expression": "2+2"}}
	if err := repo.AddToolEvent(ctx, "s1", call, core.OK(map[string]any{"result": 4.0})); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddToolEvent(ctx, "s1", call, core.Fail(core.FailEvaluation, "bad")); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddToolEvent(ctx, "s1", core.ToolCall{Name: "memory"}, core.OK(nil)); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.ToolEventStats(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if stats["calculator"] != 2 || stats["memory"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}
