package render

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// ErrTemplateLoad is returned when an author template tries to load another
// template. Author templates are self-contained.
var ErrTemplateLoad = errors.New("render: templates cannot load other templates")

// bannedTags would let author templates reach the filesystem or recurse.
var bannedTags = []string{"include", "extends", "import", "ssi", "macro"}

var replaceEscapeOnce sync.Once

type dynamicEntry struct {
	checksum string
	template *pongo2.Template
}

type deniedLoader struct{}

func (deniedLoader) Abs(_, name string) string { return name }

func (deniedLoader) Get(string) (io.Reader, error) { return nil, ErrTemplateLoad }

func newDynamicSet() (*pongo2.TemplateSet, error) {
	var replaceErr error
	replaceEscapeOnce.Do(func() {
		// autoescaping goes through the escape filter, keep it on Escape.
		// pongo2 keeps one filter table per process and TemplateSet has no
		// filter override, so this replaces escape for every set. Escape covers
		// the same five characters as the builtin filter.
		replaceErr = pongo2.ReplaceFilter("escape", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsSafeValue(Escape(in.String())), nil
		})
	})
	if replaceErr != nil {
		return nil, fmt.Errorf("render: replace escape filter: %w", replaceErr)
	}

	set := pongo2.NewSet("renderly-blocks", deniedLoader{})
	set.Options.TrimBlocks = true
	set.Options.LStripBlocks = true
	for _, tag := range bannedTags {
		if err := set.BanTag(tag); err != nil {
			return nil, fmt.Errorf("render: ban tag %s: %w", tag, err)
		}
	}
	return set, nil
}

// compile returns the cached template for identity when its checksum still
// matches markup. Concurrent misses may compile twice; the last store wins.
func (e *Engine) compile(identity, markup string) (*pongo2.Template, error) {
	sum := sha1.Sum([]byte(markup))
	checksum := hex.EncodeToString(sum[:])
	if cached, ok := e.dynamic.Load(identity); ok {
		if entry := cached.(dynamicEntry); entry.checksum == checksum {
			return entry.template, nil
		}
	}

	e.compileMu.Lock()
	tpl, err := e.dynamicSet.FromString(markup)
	e.compileMu.Unlock()
	if err != nil {
		return nil, err
	}
	e.dynamic.Store(identity, dynamicEntry{checksum: checksum, template: tpl})
	return tpl, nil
}

// ForgetTemplates drops every compiled author template.
func (e *Engine) ForgetTemplates() {
	e.dynamic.Range(func(key, _ any) bool {
		e.dynamic.Delete(key)
		return true
	})
}

func (e *Engine) renderDynamic(block blocks.Renderable, payload map[string]any, styleAttr string, logger interfaces.Logger) RenderedBlock {
	definition := block.Definition
	helpers := newHelpers(e, block.BlockID(), definition.Key, payload)

	tpl, err := e.compile(definition.Identity(), definition.TemplateMarkup)
	if err != nil {
		logger.Warn("block.template_compile_failed", "error", err)
		return RenderedBlock{HTML: errorSection(helpers, err)}
	}

	inner, err := executeDynamic(tpl, pongo2.Context{
		"block":        capSequences(blockContext(block), e.maxListItems),
		"payload":      capSequences(payload, e.maxListItems),
		"helpers":      pongoHelpers(helpers),
		"block_id":     helpers.BlockID(),
		"style_attr":   styleAttr,
		"is_video_url": isVideoValue,
	})
	if err != nil {
		logger.Warn("block.template_render_failed", "error", err)
		return RenderedBlock{HTML: errorSection(helpers, err)}
	}

	var b strings.Builder
	b.WriteString(`<section class="`)
	b.WriteString(Escape(helpers.SectionClasses()))
	b.WriteString(`" data-block-section="`)
	b.WriteString(strconv.FormatInt(helpers.BlockID(), 10))
	b.WriteString(`" data-template-key="`)
	b.WriteString(Escape(definition.Key))
	b.WriteString(`"`)
	if styleAttr != "" {
		b.WriteString(` style="`)
		b.WriteString(Escape(styleAttr))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(inner)
	b.WriteString("</section>")

	rendered := RenderedBlock{HTML: b.String()}
	if rules := strings.TrimSpace(definition.TemplateStyles); rules != "" {
		rendered.StyleKey = definition.Key
		rendered.StyleRules = rules
	}
	return rendered
}

func executeDynamic(tpl *pongo2.Template, ctx pongo2.Context) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template panicked: %v", r)
		}
	}()
	return tpl.Execute(ctx)
}

func errorSection(helpers *Helpers, err error) string {
	return `<section class="` + Escape(helpers.SectionClasses("is-error")) +
		`" data-block-section="` + strconv.FormatInt(helpers.BlockID(), 10) +
		`" data-template-key="` + Escape(helpers.DefinitionKey()) +
		`"><pre>` + Escape("Template error: "+err.Error()) + `</pre></section>`
}

func blockContext(block blocks.Renderable) map[string]any {
	return map[string]any{
		"id":           block.ID,
		"order_index":  block.OrderIndex,
		"config":       block.Config,
		"translations": block.Translations,
		"definition": map[string]any{
			"id":   block.Definition.ID,
			"key":  block.Definition.Key,
			"name": block.Definition.Name,
		},
	}
}

// capSequences returns a copy of value with every nested sequence cut to limit
// items, so for loops in author templates stay within limit^depth iterations.
// Maps are copied key for key; a limit below one leaves value untouched.
func capSequences(value any, limit int) any {
	if limit <= 0 {
		return value
	}
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = capSequences(item, limit)
		}
		return out
	case map[string]map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = capSequences(item, limit)
		}
		return out
	case []any:
		if len(typed) > limit {
			typed = typed[:limit]
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = capSequences(item, limit)
		}
		return out
	case []map[string]any:
		if len(typed) > limit {
			typed = typed[:limit]
		}
		out := make([]map[string]any, len(typed))
		for i, item := range typed {
			out[i] = capSequences(item, limit).(map[string]any)
		}
		return out
	case []string:
		if len(typed) > limit {
			return typed[:limit]
		}
		return typed
	default:
		return value
	}
}

func isVideoValue(url *pongo2.Value) bool {
	if url == nil || url.IsNil() {
		return false
	}
	return IsVideoURL(url.String())
}

// pongoHelpers exposes Helpers under the snake_case names author templates
// use. Arguments are positional and mirror the Go methods.
func pongoHelpers(h *Helpers) map[string]any {
	field := func(allowHTML bool, defaultTag string) func(args ...*pongo2.Value) *pongo2.Value {
		return func(args ...*pongo2.Value) *pongo2.Value {
			opts := FieldOptions{
				Tag:       argString(args, 1, defaultTag),
				Classes:   argString(args, 2, ""),
				Default:   argString(args, 3, ""),
				Attrs:     argAttrs(args, 4),
				AllowHTML: allowHTML,
			}
			return pongo2.AsSafeValue(string(h.Field(argString(args, 0, ""), opts)))
		}
	}
	itemField := func(allowHTML bool, defaultTag string) func(args ...*pongo2.Value) *pongo2.Value {
		return func(args ...*pongo2.Value) *pongo2.Value {
			item, ok := argItem(args, 0)
			if !ok {
				return pongo2.AsSafeValue("")
			}
			opts := FieldOptions{
				Tag:       argString(args, 2, defaultTag),
				Classes:   argString(args, 3, ""),
				Default:   argString(args, 4, ""),
				Attrs:     argAttrs(args, 5),
				AllowHTML: allowHTML,
			}
			return pongo2.AsSafeValue(string(h.Field(item.Path(argString(args, 1, "")), opts)))
		}
	}
	listItems := func(args ...*pongo2.Value) *pongo2.Value {
		items := h.ListItems(argString(args, 0, ""))
		out := make([]map[string]any, len(items))
		for i, item := range items {
			out[i] = map[string]any{
				"base_key": item.BaseKey,
				"index":    item.Index,
				"value":    capSequences(item.Value, h.maxItems),
				"path":     item.Path(),
			}
		}
		return pongo2.AsValue(out)
	}

	return map[string]any{
		"text":     field(false, "p"),
		"richtext": field(true, "div"),
		"field":    fieldWithFlag(h),
		"markdown": markdownHelper(h),
		"value": func(args ...*pongo2.Value) *pongo2.Value {
			return pongo2.AsValue(h.Value(argString(args, 0, ""), argString(args, 1, "")))
		},
		"list_items":    listItems,
		"items":         listItems,
		"item_text":     itemField(false, "span"),
		"item_richtext": itemField(true, "div"),
		"item_value": func(args ...*pongo2.Value) *pongo2.Value {
			item, ok := argItem(args, 0)
			if !ok {
				return pongo2.AsValue(argString(args, 2, ""))
			}
			return pongo2.AsValue(h.ItemValue(item, argString(args, 1, ""), argString(args, 2, "")))
		},
		"asset": func(args ...*pongo2.Value) *pongo2.Value {
			opts := AssetOptions{Classes: argString(args, 1, ""), Label: argString(args, 2, ""), Attrs: argAttrs(args, 3)}
			return pongo2.AsSafeValue(string(h.Asset(argString(args, 0, ""), opts)))
		},
		"item_asset": func(args ...*pongo2.Value) *pongo2.Value {
			item, ok := argItem(args, 0)
			if !ok {
				return pongo2.AsSafeValue("")
			}
			opts := AssetOptions{Classes: argString(args, 2, ""), Label: argString(args, 3, ""), Attrs: argAttrs(args, 4)}
			return pongo2.AsSafeValue(string(h.ItemAsset(item, argString(args, 1, ""), opts)))
		},
		"field_path": func(args ...*pongo2.Value) *pongo2.Value { return pongo2.AsValue(h.FieldPath(argString(args, 0, ""))) },
		"section_classes": func(args ...*pongo2.Value) *pongo2.Value {
			extra := make([]string, 0, len(args))
			for i := range args {
				extra = append(extra, argString(args, i, ""))
			}
			return pongo2.AsValue(h.SectionClasses(extra...))
		},
	}
}

// fieldWithFlag is the generic field helper: (path, tag, classes, default,
// attrs, allow_html).
func fieldWithFlag(h *Helpers) func(args ...*pongo2.Value) *pongo2.Value {
	return func(args ...*pongo2.Value) *pongo2.Value {
		opts := FieldOptions{
			Tag:     argString(args, 1, "span"),
			Classes: argString(args, 2, ""),
			Default: argString(args, 3, ""),
			Attrs:   argAttrs(args, 4),
		}
		if len(args) > 5 && args[5] != nil {
			opts.AllowHTML = args[5].IsTrue()
		}
		return pongo2.AsSafeValue(string(h.Field(argString(args, 0, ""), opts)))
	}
}

func markdownHelper(h *Helpers) func(args ...*pongo2.Value) *pongo2.Value {
	return func(args ...*pongo2.Value) *pongo2.Value {
		opts := FieldOptions{
			Tag:     argString(args, 1, "div"),
			Classes: argString(args, 2, ""),
			Default: argString(args, 3, ""),
		}
		return pongo2.AsSafeValue(string(h.Markdown(argString(args, 0, ""), opts)))
	}
}

func argString(args []*pongo2.Value, i int, def string) string {
	if i >= len(args) || args[i] == nil || args[i].IsNil() {
		return def
	}
	value := args[i].String()
	if value == "" {
		return def
	}
	return value
}

func argAttrs(args []*pongo2.Value, i int) []Attr {
	if i >= len(args) || args[i] == nil || args[i].IsNil() {
		return nil
	}
	switch typed := args[i].Interface().(type) {
	case map[string]any:
		return AttrsFromMap(typed)
	case map[string]string:
		converted := make(map[string]any, len(typed))
		for k, v := range typed {
			converted[k] = v
		}
		return AttrsFromMap(converted)
	default:
		return nil
	}
}

func argItem(args []*pongo2.Value, i int) (ListItem, bool) {
	if i >= len(args) || args[i] == nil || args[i].IsNil() {
		return ListItem{}, false
	}
	switch typed := args[i].Interface().(type) {
	case ListItem:
		return typed, true
	case map[string]any:
		base, _ := typed["base_key"].(string)
		index, ok := typed["index"].(int)
		if base == "" || !ok {
			return ListItem{}, false
		}
		return ListItem{BaseKey: base, Index: index, Value: typed["value"]}, true
	default:
		return ListItem{}, false
	}
}
