package render

import (
	"html/template"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-renderly/internal/fieldpath"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// DefaultPlaceholderHint is shown under the label of an empty asset slot.
const DefaultPlaceholderHint = "Add media in the editor"

// fallbackTag replaces element names that fail tagPattern.
const fallbackTag = "span"

var (
	tagPattern  = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	attrPattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:.-]*$`)
)

// Attr is one extra attribute on a helper generated element. Attributes keep
// the order they are given in.
type Attr struct {
	Name  string
	Value string
}

// FieldOptions controls the element produced by Helpers.Field.
type FieldOptions struct {
	Tag       string
	Classes   string
	Default   string
	Attrs     []Attr
	AllowHTML bool
}

// AssetOptions controls the figure produced by Helpers.Asset.
type AssetOptions struct {
	Classes string
	// Label defaults to the humanized field key.
	Label string
	Attrs []Attr
}

// ListItem is one entry of an array field. It remembers its own path so
// nested fields stay bound to the editor.
type ListItem struct {
	BaseKey string
	Index   int
	Value   any
}

// Path returns base.index, or base.index.sub when sub is given.
func (i ListItem) Path(sub ...string) string {
	path := i.BaseKey + "." + strconv.Itoa(i.Index)
	for _, s := range sub {
		if s = strings.TrimSpace(s); s != "" {
			path += "." + s
		}
	}
	return path
}

// Get resolves a path relative to the item value.
func (i ListItem) Get(sub string) string {
	if sub == "" {
		value, _ := fieldpath.Scalar(i.Value)
		return value
	}
	return fieldpath.String(i.Value, sub, "")
}

// Helpers exposes field-bound rendering primitives for one block. Every
// element it emits carries data-block-id and data-field-path so the editor
// can map rendered markup back to the source field.
type Helpers struct {
	blockID       int64
	definitionKey string
	payload       map[string]any
	maxItems      int
	hint          string
	sanitizer     interfaces.RichTextSanitizer
	markdown      interfaces.MarkdownRenderer
}

func newHelpers(e *Engine, blockID int64, definitionKey string, payload map[string]any) *Helpers {
	return &Helpers{
		blockID:       blockID,
		definitionKey: definitionKey,
		payload:       payload,
		maxItems:      e.maxListItems,
		hint:          e.placeholderHint,
		sanitizer:     e.sanitizer,
		markdown:      e.markdown,
	}
}

// BlockID is the persisted block id or its order index.
func (h *Helpers) BlockID() int64 {
	return h.blockID
}

// DefinitionKey returns the key of the block definition.
func (h *Helpers) DefinitionKey() string {
	return h.definitionKey
}

// Payload returns the locale payload the block renders from.
func (h *Helpers) Payload() map[string]any {
	return h.payload
}

// Value returns the scalar at path as a string, or def.
func (h *Helpers) Value(path, def string) string {
	if path == "" {
		return def
	}
	return fieldpath.String(h.payload, path, def)
}

// Text renders an escaped field.
func (h *Helpers) Text(path string, opts FieldOptions) template.HTML {
	opts.AllowHTML = false
	if opts.Tag == "" {
		opts.Tag = "p"
	}
	return h.Field(path, opts)
}

// RichText renders a field without escaping its value.
func (h *Helpers) RichText(path string, opts FieldOptions) template.HTML {
	opts.AllowHTML = true
	if opts.Tag == "" {
		opts.Tag = "div"
	}
	return h.Field(path, opts)
}

// Field renders <tag data-block-id data-field-path ...>value</tag>.
func (h *Helpers) Field(path string, opts FieldOptions) template.HTML {
	tag := opts.Tag
	if tag == "" {
		tag = "span"
	}
	value := h.Value(path, opts.Default)
	var content string
	if opts.AllowHTML {
		content = h.sanitize(value)
	} else {
		content = Escape(value)
	}
	return h.element(tag, path, opts.Classes, opts.Attrs, content)
}

// Markdown renders a Markdown field as HTML inside tag.
func (h *Helpers) Markdown(path string, opts FieldOptions) template.HTML {
	tag := opts.Tag
	if tag == "" {
		tag = "div"
	}
	source := h.Value(path, opts.Default)
	content := Escape(source)
	if h.markdown != nil && source != "" {
		if rendered, err := h.markdown.Render([]byte(source)); err == nil {
			content = h.sanitize(string(rendered))
		}
	}
	return h.element(tag, path, opts.Classes, opts.Attrs, content)
}

// ListItems returns an indexed view over the array at path, capped at the
// configured maximum.
func (h *Helpers) ListItems(path string) []ListItem {
	raw, ok := fieldpath.Lookup(h.payload, path)
	if !ok {
		return nil
	}
	values := fieldpath.AsSlice(raw)
	if len(values) == 0 {
		return nil
	}
	if h.maxItems > 0 && len(values) > h.maxItems {
		values = values[:h.maxItems]
	}
	items := make([]ListItem, len(values))
	for i, value := range values {
		items[i] = ListItem{BaseKey: path, Index: i, Value: value}
	}
	return items
}

// ItemText renders an escaped sub field of a list item.
func (h *Helpers) ItemText(item ListItem, sub string, opts FieldOptions) template.HTML {
	opts.AllowHTML = false
	return h.Field(item.Path(sub), opts)
}

// ItemRichText renders an unescaped sub field of a list item.
func (h *Helpers) ItemRichText(item ListItem, sub string, opts FieldOptions) template.HTML {
	if opts.Tag == "" {
		opts.Tag = "div"
	}
	opts.AllowHTML = true
	return h.Field(item.Path(sub), opts)
}

// ItemValue returns the scalar sub field of a list item.
func (h *Helpers) ItemValue(item ListItem, sub, def string) string {
	return h.Value(item.Path(sub), def)
}

// Asset renders the media at path as video, image or placeholder inside a
// bound <figure>.
func (h *Helpers) Asset(path string, opts AssetOptions) template.HTML {
	label := opts.Label
	if label == "" {
		label = Humanize(path)
	}
	return h.assetFigure(path, label, opts)
}

// ItemAsset renders a list item media field. The label defaults to the
// humanized sub key, or the list key when sub is empty.
func (h *Helpers) ItemAsset(item ListItem, sub string, opts AssetOptions) template.HTML {
	label := opts.Label
	if label == "" {
		key := sub
		if key == "" {
			key = item.BaseKey
		}
		label = Humanize(key)
	}
	return h.assetFigure(item.Path(sub), label, opts)
}

// FieldPath returns path unchanged, for templates that bind their own markup.
func (h *Helpers) FieldPath(path string) string {
	return path
}

// SectionClasses returns "block block-{key}" plus any non-empty extras.
func (h *Helpers) SectionClasses(extra ...string) string {
	classes := []string{"block", "block-" + h.definitionKey}
	for _, cls := range extra {
		if cls != "" {
			classes = append(classes, cls)
		}
	}
	return strings.Join(classes, " ")
}

// Placeholder renders the dashed empty-asset box.
func (h *Helpers) Placeholder(label, classes string) template.HTML {
	return template.HTML(placeholderMarkup(label, h.hint, classes))
}

func (h *Helpers) assetFigure(path, label string, opts AssetOptions) template.HTML {
	url := h.Value(path, "")
	var media string
	switch {
	case url != "" && IsVideoURL(url):
		media = `<video src="` + Escape(SafeURL(url)) + `" autoplay muted loop playsinline></video>`
	case url != "":
		media = `<img src="` + Escape(SafeURL(url)) + `" alt="` + Escape(label) + `"/>`
	default:
		media = placeholderMarkup(label, h.hint, "")
	}
	attrs := make([]Attr, 0, len(opts.Attrs)+2)
	for _, attr := range opts.Attrs {
		if attr.Name == "data-field-kind" || attr.Name == "data-field-label" {
			continue
		}
		attrs = append(attrs, attr)
	}
	attrs = append(attrs, Attr{Name: "data-field-kind", Value: "asset"}, Attr{Name: "data-field-label", Value: label})
	return h.element("figure", path, opts.Classes, attrs, media)
}

func (h *Helpers) element(tag, path, classes string, attrs []Attr, content string) template.HTML {
	tag = safeTag(tag)
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(h.bindAttrs(path))
	b.WriteString(attrString(classes, attrs))
	b.WriteString(">")
	b.WriteString(content)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
	return template.HTML(b.String())
}

func (h *Helpers) bindAttrs(path string) string {
	return ` data-block-id="` + strconv.FormatInt(h.blockID, 10) + `" data-field-path="` + Escape(path) + `"`
}

func (h *Helpers) sanitize(markup string) string {
	if h.sanitizer == nil {
		return markup
	}
	return h.sanitizer.Sanitize(markup)
}

// safeTag lowercases tag and returns fallbackTag when it is not a plain
// element name.
func safeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !tagPattern.MatchString(tag) {
		return fallbackTag
	}
	return tag
}

// attrString renders class first, then attrs in order, every value escaped.
func attrString(classes string, attrs []Attr) string {
	var b strings.Builder
	if classes != "" {
		b.WriteString(` class="`)
		b.WriteString(Escape(classes))
		b.WriteString(`"`)
	}
	for _, attr := range attrs {
		name := strings.TrimSpace(attr.Name)
		if !attrPattern.MatchString(name) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(Escape(name))
		b.WriteString(`="`)
		b.WriteString(Escape(attr.Value))
		b.WriteString(`"`)
	}
	return b.String()
}

// AttrsFromMap converts a template supplied mapping into ordered attributes.
// Nil values are skipped and names are sorted for stable output.
func AttrsFromMap(values map[string]any) []Attr {
	if len(values) == 0 {
		return nil
	}
	names := make([]string, 0, len(values))
	for name, value := range values {
		if value == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := make([]Attr, 0, len(names))
	for _, name := range names {
		value, ok := fieldpath.Scalar(values[name])
		if !ok {
			continue
		}
		attrs = append(attrs, Attr{Name: name, Value: value})
	}
	return attrs
}

func placeholderMarkup(label, hint, classes string) string {
	class := "asset-placeholder"
	if classes = strings.TrimSpace(classes); classes != "" {
		class += " " + classes
	}
	return `<div class="` + Escape(class) + `"><strong>` + Escape(label) + `</strong><span>` + Escape(hint) + `</span></div>`
}

// Humanize turns a field key such as image_url into "Image Url".
func Humanize(key string) string {
	// a Caser keeps state between calls, so one is built per use
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}
