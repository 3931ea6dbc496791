package render

import (
	"html"
	"strconv"
	"strings"
)

// VideoExtensions are the media extensions rendered as inline video.
var VideoExtensions = []string{".mp4", ".webm", ".mov", ".m4v", ".ogg"}

// IsVideoURL reports whether the url path ends with a video extension. The
// query string and fragment are ignored.
func IsVideoURL(url string) bool {
	clean, _, _ := strings.Cut(url, "?")
	clean, _, _ = strings.Cut(clean, "#")
	clean = strings.ToLower(clean)
	for _, ext := range VideoExtensions {
		if strings.HasSuffix(clean, ext) {
			return true
		}
	}
	return false
}

// StyleToAttr converts a block style object into an inline declaration list.
// Unknown keys and values of the wrong type are ignored.
func StyleToAttr(style any) string {
	rules, ok := style.(map[string]any)
	if !ok || len(rules) == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	if background, ok := rules["background"].(string); ok && background != "" {
		parts = append(parts, "background:"+background)
	}
	if padding, ok := rules["padding"].(string); ok && padding != "" {
		parts = append(parts, "padding:"+padding)
	}
	if color, ok := rules["border_color"].(string); ok && color != "" {
		width := "1px"
		if w := rules["border_width"]; w != nil {
			if formatted := formatCSSValue(w); formatted != "" {
				width = formatted
			}
		}
		parts = append(parts, "border:"+width+" solid "+color)
	}
	if radius, ok := number(rules["border_radius"]); ok {
		parts = append(parts, "border-radius:"+radius+"px")
	}
	return strings.Join(parts, ";")
}

func number(value any) (string, bool) {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	default:
		return "", false
	}
}

func formatCSSValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if n, ok := number(value); ok {
		return n
	}
	return ""
}

// Escape is the single escaping routine for text and attribute values.
func Escape(value string) string {
	return html.EscapeString(value)
}

var unsafeSchemes = []string{"javascript:", "vbscript:", "data:text/html"}

// SafeURL neutralises script-bearing URL schemes in href and src values.
func SafeURL(url string) string {
	trimmed := strings.ToLower(strings.TrimSpace(url))
	compact := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, trimmed)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(compact, scheme) {
			return "#"
		}
	}
	return url
}
