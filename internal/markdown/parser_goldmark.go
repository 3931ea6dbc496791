package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

var extensionsByName = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

type settings struct {
	extensions []goldmark.Extender
	hardWraps  bool
	rawHTML    bool
}

// Option configures NewGoldmarkRenderer.
type Option func(*settings)

// WithExtensions replaces the default GFM and linkify extensions. Unknown
// and repeated names are ignored.
func WithExtensions(names ...string) Option {
	return func(s *settings) {
		s.extensions = s.extensions[:0]
		seen := map[string]bool{}
		for _, name := range names {
			key := strings.ToLower(strings.TrimSpace(name))
			ext, ok := extensionsByName[key]
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			s.extensions = append(s.extensions, ext)
		}
	}
}

// WithHardWraps turns single newlines in a field into <br>.
func WithHardWraps() Option {
	return func(s *settings) { s.hardWraps = true }
}

// WithRawHTML keeps HTML written inside Markdown fields. Only enable it when
// the output goes through a RichTextSanitizer.
func WithRawHTML() Option {
	return func(s *settings) { s.rawHTML = true }
}

// GoldmarkRenderer renders Markdown block fields. It is safe for concurrent
// use.
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewGoldmarkRenderer builds a renderer with heading ids, GFM and linkify.
// Raw HTML is dropped unless WithRawHTML is given.
func NewGoldmarkRenderer(opts ...Option) *GoldmarkRenderer {
	s := &settings{extensions: []goldmark.Extender{extension.GFM, extension.Linkify}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	var htmlOpts []renderer.Option
	if s.hardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}
	if s.rawHTML {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}
	return &GoldmarkRenderer{md: goldmark.New(
		goldmark.WithExtensions(s.extensions...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOpts...),
	)}
}

// Render converts source to HTML.
func (r *GoldmarkRenderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	return buf.Bytes(), nil
}
