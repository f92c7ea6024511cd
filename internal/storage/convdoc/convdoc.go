package convdoc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/ivorybot/internal/core"
)

// Document is an exported conversation snapshot. Documents are written when
// a session ends or on explicit save, one JSON file per conversation.
type Document struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	AgentType   string         `json:"agent_type"`
	Timestamp   time.Time      `json:"timestamp"`
	Messages    []core.Message `json:"messages"`
}

// Store persists conversation documents under a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the document and returns the filename it landed in. An empty
// ID gets one assigned.
func (s *Store) Save(doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	filename := fmt.Sprintf("%s_%s.json", doc.Timestamp.Format("20060102_150405"), sanitizeName(doc.DisplayName))

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write conversation: %w", err)
	}
	return filename, nil
}

func (s *Store) Load(filename string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return Document{}, fmt.Errorf("failed to read conversation: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse conversation: %w", err)
	}
	return doc, nil
}

// List returns saved conversation filenames, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// sanitizeName makes a display name safe to use inside a filename.
func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "_")
	if out == "" {
		out = "conversation"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}
