// Package markdown renders Markdown block fields to HTML and sanitizes
// author supplied rich text before it is emitted unescaped.
package markdown
