package publisher

import (
	"html/template"
	"strings"
)

// Theme fallbacks used when a project leaves a color slot empty.
const (
	DefaultPageBackground   = "#f8fafc"
	DefaultTextColor        = "#0f172a"
	DefaultAccent           = "#6366f1"
	DefaultHeaderBackground = "#ffffff"
	DefaultHeaderText       = "#0f172a"
	DefaultFooterBackground = "#0f172a"
	DefaultFooterColor      = "#ffffff"
)

// Theme is the resolved set of color slots substituted into the document
// shell. Values are CSS that already passed cssValue.
type Theme struct {
	PageBackground   template.CSS
	TextColor        template.CSS
	Accent           template.CSS
	HeaderBackground template.CSS
	HeaderText       template.CSS
	FooterBackground template.CSS
	FooterText       template.CSS
}

// ResolveTheme maps project theme keys onto the shell slots.
func ResolveTheme(theme map[string]string) Theme {
	return Theme{
		PageBackground:   cssValue(theme["page_bg"], DefaultPageBackground),
		TextColor:        cssValue(theme["text_color"], DefaultTextColor),
		Accent:           cssValue(theme["accent"], DefaultAccent),
		HeaderBackground: cssValue(theme["header_bg"], DefaultHeaderBackground),
		HeaderText:       cssValue(theme["header_text"], DefaultHeaderText),
		FooterBackground: cssValue(theme["footer_bg"], DefaultFooterBackground),
		FooterText:       cssValue(theme["footer_text"], DefaultFooterColor),
	}
}

// cssValue accepts a single declaration value. Anything that could close
// the declaration, the rule or the style element falls back.
func cssValue(value, fallback string) template.CSS {
	value = strings.TrimSpace(value)
	if value == "" {
		return template.CSS(fallback)
	}
	if strings.ContainsAny(value, ";{}<>\"'\\\n\r") || strings.Contains(value, "/*") {
		return template.CSS(fallback)
	}
	lower := strings.ToLower(value)
	if strings.Contains(lower, "expression") || strings.Contains(lower, "url(") || strings.Contains(lower, "@import") {
		return template.CSS(fallback)
	}
	return template.CSS(value)
}
