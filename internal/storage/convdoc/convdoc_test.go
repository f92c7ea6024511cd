package convdoc

import (
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/ivorybot/internal/core"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	doc := Document{
		DisplayName: "Weekly Sync / Notes!",
		AgentType:   "assistant",
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "hello"},
			{Role: core.RoleAssistant, Content: "hi there"},
		},
	}

	filename, err := store.Save(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsAny(filename, "/!") {
		t.Errorf("filename not sanitized: %q", filename)
	}
	if !strings.HasPrefix(filename, "20260301_120000_") {
		t.Errorf("filename missing timestamp prefix: %q", filename)
	}

	loaded, err := store.Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID == "" {
		t.Error("no id assigned on save")
	}
	if loaded.DisplayName != doc.DisplayName || len(loaded.Messages) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for i, name := range []string{"first", "second"} {
		_, err := store.Save(Document{
			DisplayName: name,
			Timestamp:   time.Date(2026, 3, 1, 12, i, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("len = %d", len(names))
	}
	if !strings.Contains(names[0], "second") {
		t.Errorf("order = %v, want newest first", names)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Name", "plain_name"},
		{"../../etc/passwd", "etcpasswd"},
		{"", "conversation"},
		{"!!!", "conversation"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
