package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Doc is one markdown file from the knowledge directory.
type Doc struct {
	Path    string
	Title   string
	Content string
}

// Load reads every .md file under dir, sorted by path. A missing directory
// is an empty knowledge base, not an error.
func Load(dir string) ([]Doc, error) {
	var docs []Doc

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read knowledge file %s: %w", path, err)
		}

		rel, _ := filepath.Rel(dir, path)
		docs = append(docs, Doc{
			Path:    rel,
			Title:   extractTitle(data, rel),
			Content: strings.TrimSpace(string(data)),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// extractTitle takes the first heading from the markdown AST, falling back
// to the filename.
func extractTitle(data []byte, fallback string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	root := p.Parse(data)

	title := ""
	ast.WalkFunc(root, func(node ast.Node, entering bool) ast.WalkStatus {
		if title != "" {
			return ast.Terminate
		}
		if _, ok := node.(*ast.Heading); ok && entering {
			title = headingText(node)
			return ast.Terminate
		}
		return ast.GoToNext
	})

	if title == "" {
		return strings.TrimSuffix(filepath.Base(fallback), ".md")
	}
	return title
}

func headingText(heading ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(heading, func(node ast.Node, entering bool) ast.WalkStatus {
		if leaf := node.AsLeaf(); leaf != nil && entering {
			sb.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(sb.String())
}

// PromptSection renders the knowledge base as a system prompt addendum.
// Returns "" when there is nothing to add.
func PromptSection(docs []Doc) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Reference knowledge available to you:\n")
	for _, doc := range docs {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", doc.Title, doc.Content)
	}
	return sb.String()
}
