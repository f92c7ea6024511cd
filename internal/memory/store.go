package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/ivorybot/internal/core"
)

const indexFilename = "index.json"

// PermissionDeniedMsg is the exact denial text the model is trained to
// recognize in transcripts; the ERROR: prefix must stay.
const PermissionDeniedMsg = "ERROR: Cannot store user preferences or personal information without explicit permission"

// Record is a fully loaded memory.
type Record struct {
	Key           string
	Content       string
	Tags          []string
	CreatedAt     time.Time
	HadPermission bool
}

// IndexEntry is the per-key metadata kept in index.json so listing and
// search never have to read every record file.
type IndexEntry struct {
	CreatedAt     time.Time `json:"created_at"`
	Tags          []string  `json:"tags"`
	Filename      string    `json:"filename"`
	Preview       string    `json:"preview"`
	ContentLength int       `json:"content_length"`
	HadPermission bool      `json:"had_permission"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Key     string
	Preview string
	Tags    []string
	Score   int
}

// Store is a permission-gated persistent key/value store: one <key>.txt per
// record under dir, plus an index artifact. A single process owns the
// directory; the mutex guards concurrent tool calls within that process.
type Store struct {
	dir   string
	mu    sync.Mutex
	index map[string]IndexEntry
	now   func() time.Time
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	s := &Store{
		dir:   dir,
		index: make(map[string]IndexEntry),
		now:   time.Now,
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read memory index: %w", err)
	}

	// A corrupt index means starting fresh, not failing startup.
	if err := json.Unmarshal(data, &s.index); err != nil {
		s.index = make(map[string]IndexEntry)
	}
	return s, nil
}

var wordPattern = regexp.MustCompile(`\w+`)

// Preference lexicon for the consent gate. Intentionally approximate: it
// over-triggers on sentences like "the cache works like a map" and misses
// phrasings it has no keyword for.
var lexiconLower = []string{"prefer", "like", "my ", "we use", "our team"}
var lexiconExact = []string{"I am", "I'm"}

func requiresConsent(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range lexiconLower {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range lexiconExact {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

// Store writes a new record. A record classified as personal/preference
// content is only written when hasPermission is true; otherwise the call
// fails with a PermissionDenied tool error and nothing is stored.
func (s *Store) Store(content, key string, tags []string, hasPermission bool) (string, error) {
	if content == "" {
		return "", core.NewToolError(core.FailInvalidParameters, "no content provided for storage")
	}

	if !hasPermission && requiresConsent(content) {
		return "", core.NewToolError(core.FailPermissionDenied, "%s", PermissionDeniedMsg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		key = s.deriveKey(content)
	}
	key = s.disambiguate(key)

	filename := key + ".txt"
	if err := os.WriteFile(filepath.Join(s.dir, filename), []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write memory file: %w", err)
	}

	preview := content
	// Truncate on rune boundaries so a multi-byte character at the cutoff
	// never leaves invalid UTF-8 in the index.
	if runes := []rune(preview); len(runes) > 50 {
		preview = string(runes[:50]) + "..."
	}

	s.index[key] = IndexEntry{
		CreatedAt:     s.now(),
		Tags:          append([]string(nil), tags...),
		Filename:      filename,
		Preview:       preview,
		ContentLength: len(content),
		HadPermission: hasPermission,
	}

	if err := s.saveIndex(); err != nil {
		return "", err
	}
	return key, nil
}

// deriveKey slugifies the first few content words, capped at 30 chars.
func (s *Store) deriveKey(content string) string {
	words := wordPattern.FindAllString(strings.ToLower(content), 3)
	if len(words) >= 2 {
		key := strings.Join(words, "_")
		if len(key) > 30 {
			key = key[:30]
		}
		return key
	}
	return fmt.Sprintf("memory_%d", s.now().Unix())
}

// disambiguate appends an incrementing numeric suffix until the key is
// unique within the store.
func (s *Store) disambiguate(key string) string {
	if _, exists := s.index[key]; !exists {
		return key
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", key, n)
		if _, exists := s.index[candidate]; !exists {
			return candidate
		}
	}
}

func (s *Store) Retrieve(key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		return Record{}, core.NewToolError(core.FailNotFound, "no memory found with key: %s", key)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, entry.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			// Record file vanished out from under the index; drop the entry.
			delete(s.index, key)
			_ = s.saveIndex()
			return Record{}, core.NewToolError(core.FailNotFound, "no memory found with key: %s", key)
		}
		return Record{}, fmt.Errorf("failed to read memory file: %w", err)
	}

	return Record{
		Key:           key,
		Content:       string(data),
		Tags:          entry.Tags,
		CreatedAt:     entry.CreatedAt,
		HadPermission: entry.HadPermission,
	}, nil
}

// Search ranks records against query: content substring hits weigh more
// than key hits, which weigh more than tag hits. No match is not an error,
// the result list is simply empty. When tags are given, records must carry
// at least one of them.
func (s *Store) Search(query string, tags []string) []SearchHit {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var hits []SearchHit

	for key, entry := range s.index {
		if len(tags) > 0 && !hasAnyTag(entry.Tags, tags) {
			continue
		}

		score := 0
		if q != "" {
			content := s.readContent(entry.Filename)
			if strings.Contains(strings.ToLower(content), q) {
				score += 3
			}
			if strings.Contains(strings.ToLower(key), q) {
				score += 2
			}
			for _, tag := range entry.Tags {
				if strings.Contains(strings.ToLower(tag), q) {
					score++
				}
			}
			if score == 0 {
				continue
			}
		}

		hits = append(hits, SearchHit{Key: key, Preview: entry.Preview, Tags: entry.Tags, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		a, b := s.index[hits[i].Key], s.index[hits[j].Key]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return hits[i].Key < hits[j].Key
	})

	return hits
}

func (s *Store) readContent(filename string) string {
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return ""
	}
	return string(data)
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Delete removes a record. Deleting an absent key is not an error; the
// returned bool reports whether anything was actually removed.
func (s *Store) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		return false, nil
	}

	if err := os.Remove(filepath.Join(s.dir, entry.Filename)); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove memory file: %w", err)
	}

	delete(s.index, key)
	if err := s.saveIndex(); err != nil {
		return false, err
	}
	return true, nil
}

// ListEntry is index metadata exposed by List; content is never loaded.
type ListEntry struct {
	Key           string    `json:"key"`
	Preview       string    `json:"preview"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	ContentLength int       `json:"content_length"`
}

// List returns index metadata for all records, newest first, optionally
// filtered by tag.
func (s *Store) List(tag string) []ListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []ListEntry
	for key, entry := range s.index {
		if tag != "" && !hasAnyTag(entry.Tags, []string{tag}) {
			continue
		}
		entries = append(entries, ListEntry{
			Key:           key,
			Preview:       entry.Preview,
			Tags:          entry.Tags,
			CreatedAt:     entry.CreatedAt,
			ContentLength: entry.ContentLength,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Key < entries[j].Key
	})

	return entries
}

// ContextSnippet formats the most recent records for injection into the
// system prompt.
func (s *Store) ContextSnippet(max int) string {
	entries := s.List("")
	if len(entries) == 0 {
		return "You don't have any stored memories yet."
	}
	if len(entries) > max {
		entries = entries[:max]
	}

	var sb strings.Builder
	sb.WriteString("Your memory contains the following information:\n\n")
	for _, e := range entries {
		rec, err := s.Retrieve(e.Key)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n\n", e.Key, rec.Content)
	}
	return sb.String()
}

// saveIndex writes index.json atomically so a crash mid-write never leaves
// a truncated index. Callers hold the mutex.
func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory index: %w", err)
	}

	tmp := filepath.Join(s.dir, indexFilename+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, indexFilename)); err != nil {
		return fmt.Errorf("failed to replace memory index: %w", err)
	}
	return nil
}
