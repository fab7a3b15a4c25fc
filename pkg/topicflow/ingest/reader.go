package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/cognicore/topicflow/pkg/topicflow/source"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// ErrNotUTF8 is returned for inputs that are not valid UTF-8 text.
var ErrNotUTF8 = errors.New("not valid UTF-8")

// Reader is the head stage: it loads a file, labels it and records its path
// relative to the data root. Text files are passed through untouched.
type Reader struct {
	root     string
	splitter *split.Splitter
}

// NewReader creates a reader. A nil splitter labels every document Unset.
func NewReader(root string, splitter *split.Splitter) *Reader {
	return &Reader{root: root, splitter: splitter}
}

// Read loads item. The label depends only on item.Pos and the splitter seed.
func (r *Reader) Read(_ context.Context, item source.Item) (Document[string], error) {
	data, err := os.ReadFile(item.Path)
	if err != nil {
		return Document[string]{}, err
	}
	if !utf8.Valid(data) {
		return Document[string]{}, ErrNotUTF8
	}

	text := string(data)
	if isHTML(item.Path) {
		if text, err = ExtractText(text); err != nil {
			return Document[string]{}, fmt.Errorf("extract html: %w", err)
		}
	}

	return Document[string]{
		Label: r.splitter.Assign(item.Pos),
		Path:  r.relative(item.Path),
		Text:  text,
	}, nil
}

// Stage wraps Read as the head of a graph.
func (r *Reader) Stage(downstream ...stage.Sink[Document[string]]) *stage.Stage[source.Item, Document[string]] {
	return stage.New("read", r.Read, downstream...)
}

func (r *Reader) relative(path string) string {
	if r.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// ExtractText returns the visible text of an HTML document. Script and style
// contents are dropped; block elements end with a newline.
func ExtractText(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				buf.WriteByte('\n')
			}
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}
