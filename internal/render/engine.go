package render

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/logging"
	"github.com/goliatone/go-renderly/internal/util"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// DefaultMaxListItems bounds list helper iteration.
const DefaultMaxListItems = 200

// RenderedBlock is one block fragment plus the optional style rules its
// definition contributes to the page.
type RenderedBlock struct {
	HTML string
	// StyleKey is the definition key when StyleRules is non-empty.
	StyleKey   string
	StyleRules string
}

// PayloadValidator checks a payload against a definition schema. Failures
// are logged and never block rendering.
type PayloadValidator interface {
	Check(definition blocks.DefinitionView, payload map[string]any) error
}

// Engine renders single blocks. It owns the compiled template caches, so
// separate engines never share state.
type Engine struct {
	logger          interfaces.Logger
	resolver        i18n.Resolver
	maxListItems    int
	placeholderHint string
	sanitizer       interfaces.RichTextSanitizer
	markdown        interfaces.MarkdownRenderer
	validator       PayloadValidator

	dynamicSet *pongo2.TemplateSet
	compileMu  sync.Mutex
	dynamic    sync.Map
	builtins   *builtinCatalog
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for template failures.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithResolver overrides the locale resolver.
func WithResolver(resolver i18n.Resolver) Option {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

// WithMaxListItems caps how many entries list helpers return.
func WithMaxListItems(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.maxListItems = limit
		}
	}
}

// WithPlaceholderHint sets the text shown in empty asset slots.
func WithPlaceholderHint(hint string) Option {
	return func(e *Engine) {
		if hint = strings.TrimSpace(hint); hint != "" {
			e.placeholderHint = hint
		}
	}
}

// WithSanitizer cleans rich text and markdown output before it is emitted.
func WithSanitizer(sanitizer interfaces.RichTextSanitizer) Option {
	return func(e *Engine) {
		e.sanitizer = sanitizer
	}
}

// WithMarkdown enables the markdown helper.
func WithMarkdown(renderer interfaces.MarkdownRenderer) Option {
	return func(e *Engine) {
		e.markdown = renderer
	}
}

// WithPayloadValidator enables advisory payload checks.
func WithPayloadValidator(validator PayloadValidator) Option {
	return func(e *Engine) {
		e.validator = validator
	}
}

// NewEngine parses the built-in templates and prepares the sandboxed set
// used for author templates.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:          logging.NoOp(),
		resolver:        i18n.NewResolver(i18n.FallbackLocale),
		maxListItems:    DefaultMaxListItems,
		placeholderHint: DefaultPlaceholderHint,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	set, err := newDynamicSet()
	if err != nil {
		return nil, err
	}
	e.dynamicSet = set

	builtins, err := parseBuiltins()
	if err != nil {
		return nil, err
	}
	e.builtins = builtins
	return e, nil
}

// Resolver returns the locale resolver used for payload selection.
func (e *Engine) Resolver() i18n.Resolver {
	return e.resolver
}

// HasBuiltin reports whether key has a built-in template.
func (e *Engine) HasBuiltin(key string) bool {
	return e.builtins.has(key)
}

// RenderBlock renders block for locale. It never fails: template problems
// render as an inline error section.
func (e *Engine) RenderBlock(block blocks.Renderable, locale string, settings map[string]any) RenderedBlock {
	payload := util.DeepCloneMap(e.resolver.PayloadForLocale(block.Content(), locale, settings))
	if payload == nil {
		payload = map[string]any{}
	}
	styleAttr := StyleToAttr(payload["style"])
	delete(payload, "style")

	logger := logging.WithBlockContext(e.logger, block.Key(), block.BlockID(), locale)
	if e.validator != nil {
		if err := e.validator.Check(block.Definition, payload); err != nil {
			logger.Warn("block.payload_invalid", "error", err)
		}
	}

	if block.Definition.HasTemplate() {
		return e.renderDynamic(block, payload, styleAttr, logger)
	}
	if html, ok := e.renderBuiltin(block, payload, styleAttr, logger); ok {
		return RenderedBlock{HTML: html}
	}
	return RenderedBlock{HTML: fallbackSection(block.BlockID(), payload, styleAttr)}
}

func fallbackSection(blockID int64, payload map[string]any, styleAttr string) string {
	var b strings.Builder
	b.WriteString(`<section data-block-section="`)
	b.WriteString(strconv.FormatInt(blockID, 10))
	b.WriteString(`"`)
	if styleAttr != "" {
		b.WriteString(` style="`)
		b.WriteString(Escape(styleAttr))
		b.WriteString(`"`)
	}
	b.WriteString("><pre>")
	var dump bytes.Buffer
	encoder := json.NewEncoder(&dump)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		dump.Reset()
		dump.WriteString("{}")
	}
	b.WriteString(Escape(strings.TrimSpace(dump.String())))
	b.WriteString("</pre></section>")
	return b.String()
}
