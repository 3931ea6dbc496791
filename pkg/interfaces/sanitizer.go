package interfaces

// RichTextSanitizer cleans author supplied markup before it is emitted
// unescaped by the richtext and markdown template helpers.
type RichTextSanitizer interface {
	Sanitize(html string) string
}

// MarkdownRenderer converts Markdown source into HTML.
type MarkdownRenderer interface {
	Render(source []byte) ([]byte, error)
}
