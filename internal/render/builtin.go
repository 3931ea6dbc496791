package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

//go:embed templates/*.html
var builtinFS embed.FS

// BuiltinKeys lists the definition keys with a built-in template.
var BuiltinKeys = []string{
	"cta",
	"faq",
	"feature-grid",
	"form",
	"hero",
	"media-gallery",
	"price-list",
	"schedule",
	"speaker-highlight",
	"team",
	"testimonials",
}

type builtinCatalog struct {
	templates *template.Template
	keys      map[string]struct{}
}

func parseBuiltins() (*builtinCatalog, error) {
	tpl, err := template.New("builtins").ParseFS(builtinFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse built-in templates: %w", err)
	}
	catalog := &builtinCatalog{templates: tpl, keys: make(map[string]struct{}, len(BuiltinKeys))}
	for _, key := range BuiltinKeys {
		if tpl.Lookup(key+".html") == nil {
			return nil, fmt.Errorf("render: built-in template %s missing", key)
		}
		catalog.keys[key] = struct{}{}
	}
	return catalog, nil
}

func (c *builtinCatalog) has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.keys[key]
	return ok
}

// BuiltinTemplates lists the embedded template files, for tooling.
func BuiltinTemplates() ([]string, error) {
	entries, err := fs.Glob(builtinFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = strings.TrimSuffix(path.Base(entry), ".html")
	}
	return names, nil
}

func (e *Engine) renderBuiltin(block blocks.Renderable, payload map[string]any, styleAttr string, logger interfaces.Logger) (string, bool) {
	key := block.Key()
	if !e.builtins.has(key) {
		return "", false
	}
	view := &builtinView{
		Helpers:   newHelpers(e, block.BlockID(), key, payload),
		styleAttr: styleAttr,
	}
	var buf bytes.Buffer
	if err := e.builtins.templates.ExecuteTemplate(&buf, key+".html", view); err != nil {
		// built-in templates are fixed, so this is a programming error; the
		// page still renders with an error box in place of the block
		logger.Error("block.builtin_failed", "error", err)
		return errorSection(view.Helpers, err), true
	}
	return strings.TrimSpace(buf.String()), true
}

// builtinView is the data of a built-in template. Every dynamic value leaves
// it already escaped through Escape, typed as template.HTML or
// template.HTMLAttr so html/template emits it unchanged.
type builtinView struct {
	*Helpers
	styleAttr string
}

// Style returns the block style attribute, or nothing.
func (v *builtinView) Style() template.HTMLAttr {
	return styleHTMLAttr(v.styleAttr)
}

// Bind returns the data-block-id and data-field-path attributes for path.
func (v *builtinView) Bind(path string) template.HTMLAttr {
	return template.HTMLAttr(strings.TrimSpace(v.bindAttrs(path)))
}

// Tag renders an escaped field inside tag.
func (v *builtinView) Tag(tag, path, classes string) template.HTML {
	return v.Field(path, FieldOptions{Tag: tag, Classes: classes})
}

// ItemTag renders an escaped list item field inside tag.
func (v *builtinView) ItemTag(tag string, item ListItem, sub, classes string) template.HTML {
	return v.Field(item.Path(sub), FieldOptions{Tag: tag, Classes: classes})
}

// RichTag renders an unescaped field inside tag. attrs are name, value pairs.
func (v *builtinView) RichTag(tag, path string, attrs ...string) template.HTML {
	opts := FieldOptions{Tag: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		opts.Attrs = append(opts.Attrs, Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return v.RichText(path, opts)
}

// Literal renders fixed text bound to path, used by empty-state placeholders.
func (v *builtinView) Literal(tag, path, text string) template.HTML {
	return v.element(tag, path, "", nil, Escape(text))
}

// Esc escapes text for element content.
func (v *builtinView) Esc(text string) template.HTML {
	return template.HTML(Escape(text))
}

// Href returns an href attribute for the url at path, or fallback.
func (v *builtinView) Href(path, fallback string) template.HTMLAttr {
	url := v.Value(path, "")
	if url == "" {
		url = fallback
	}
	return template.HTMLAttr(`href="` + Escape(SafeURL(url)) + `"`)
}

// Attr renders name="value" with the value escaped.
func (v *builtinView) Attr(name, value string) template.HTMLAttr {
	return template.HTMLAttr(Escape(name) + `="` + Escape(value) + `"`)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func (v *builtinView) Capitalize(text string) string {
	if text == "" {
		return ""
	}
	runes := []rune(strings.ToLower(text))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

// AssetAttrs binds a figure or div to an asset field.
func (v *builtinView) AssetAttrs(path, label string) template.HTMLAttr {
	return template.HTMLAttr(strings.TrimSpace(v.bindAttrs(path)) +
		` data-field-kind="asset" data-field-label="` + Escape(label) + `"`)
}

// Media renders the url at path as a video with controls or an image, or a
// placeholder when empty.
func (v *builtinView) Media(path, alt, title, placeholderClass string) template.HTML {
	url := v.Value(path, "")
	switch {
	case url != "" && IsVideoURL(url):
		return template.HTML(`<video src="` + Escape(SafeURL(url)) + `" playsinline muted loop controls></video>`)
	case url != "":
		return template.HTML(`<img src="` + Escape(SafeURL(url)) + `" alt="` + Escape(alt) + `" />`)
	default:
		return v.Placeholder(title, placeholderClass)
	}
}

// Ordinal is the 1-based position of item, for labels.
func (v *builtinView) Ordinal(item ListItem) string {
	return strconv.Itoa(item.Index + 1)
}

// Speaker derives the computed styles of the speaker-highlight card.
func (v *builtinView) Speaker() speakerView {
	value := func(key, def string) string {
		return v.Value(key, def)
	}
	background := value("bg_color", "#111827")
	if start, end := value("gradient_start", ""), value("gradient_end", ""); start != "" && end != "" {
		background = "linear-gradient(135deg, " + start + ", " + end + ")"
	}
	section := "background: " + background +
		"; color: " + value("text_color", "#f8fafc") +
		"; box-shadow: " + value("card_shadow", "0 30px 70px rgba(15, 23, 42, 0.4)") +
		"; border-radius: 32px; padding: 40px 32px;"
	if v.styleAttr != "" {
		section += " " + v.styleAttr + ";"
	}

	radius := "999px"
	if strings.EqualFold(strings.TrimSpace(value("avatar_shape", "")), "square") {
		radius = "32px"
	}
	figure := "margin:0; width:260px; flex-shrink:0; text-align:center;"
	if strings.EqualFold(strings.TrimSpace(value("layout", "left")), "right") {
		figure += " order:-1;"
	}

	var chips []string
	if raw := value("chips", ""); raw != "" {
		for _, chip := range strings.Split(raw, ",") {
			chips = append(chips, strings.TrimSpace(chip))
		}
	}

	return speakerView{
		SectionStyle: styleHTMLAttr(section),
		BadgeStyle: styleHTMLAttr("display:inline-flex; align-items:center; padding:4px 12px; border-radius:999px; font-weight:600; letter-spacing:0.08em; background: " +
			value("badge_color", "#f9769b") + ";"),
		FigureStyle: styleHTMLAttr(figure),
		AvatarSrc:   template.HTMLAttr(`src="` + Escape(SafeURL(value("avatar", "https://placehold.co/300x360/222/eee?text=avatar"))) + `"`),
		AvatarAlt:   template.HTMLAttr(`alt="` + Escape(value("headline", "speaker")) + `"`),
		AvatarStyle: styleHTMLAttr("width:100%; height:320px; object-fit:cover; border-radius:" + radius + "; box-shadow:0 20px 45px rgba(0,0,0,0.35);"),
		Chips:       chips,
	}
}

type speakerView struct {
	SectionStyle template.HTMLAttr
	BadgeStyle   template.HTMLAttr
	FigureStyle  template.HTMLAttr
	AvatarSrc    template.HTMLAttr
	AvatarAlt    template.HTMLAttr
	AvatarStyle  template.HTMLAttr
	Chips        []string
}

func styleHTMLAttr(css string) template.HTMLAttr {
	if css == "" {
		return ""
	}
	return template.HTMLAttr(`style="` + Escape(css) + `"`)
}
