package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/markdown"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Trace(string, ...any)       {}
func (l *recordingLogger) Debug(string, ...any)       {}
func (l *recordingLogger) Info(string, ...any)        {}
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Fatal(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) WithFields(map[string]any) interfaces.Logger {
	return l
}
func (l *recordingLogger) WithContext(context.Context) interfaces.Logger {
	return l
}

func (l *recordingLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	engine, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func builtinBlock(key string, config map[string]any) blocks.Renderable {
	return blocks.Renderable{
		ID:         1,
		Definition: blocks.DefinitionView{Key: key},
		Config:     config,
	}
}

func customBlock(id, markup, styles string, config map[string]any) blocks.Renderable {
	return blocks.Renderable{
		ID: 5,
		Definition: blocks.DefinitionView{
			ID:             id,
			Key:            "custom",
			TemplateMarkup: markup,
			TemplateStyles: styles,
		},
		Config: config,
	}
}

// assertBalanced walks the fragment and fails when non-void tags are not
// closed in order.
func assertBalanced(t *testing.T, fragment string) {
	t.Helper()
	void := map[string]bool{"img": true, "input": true, "br": true, "hr": true, "meta": true, "source": true}
	var stack []string
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if len(stack) != 0 {
				t.Fatalf("unclosed tags %v in %s", stack, fragment)
			}
			return
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if !void[string(name)] {
				stack = append(stack, string(name))
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if len(stack) == 0 || stack[len(stack)-1] != string(name) {
				t.Fatalf("unexpected </%s> with open %v in %s", name, stack, fragment)
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func TestHeroHeadlineIsEscapedAndBound(t *testing.T) {
	engine := newTestEngine(t)
	out := engine.RenderBlock(builtinBlock("hero", map[string]any{"headline": "Hi"}), "ru", nil)

	if !strings.Contains(out.HTML, `<h1 data-block-id="1" data-field-path="headline">Hi</h1>`) {
		t.Fatalf("expected bound headline, got %s", out.HTML)
	}
	if out.StyleKey != "" || out.StyleRules != "" {
		t.Fatalf("built-in blocks contribute no style rules")
	}

	out = engine.RenderBlock(builtinBlock("hero", map[string]any{"headline": `<script>x</script>`}), "ru", nil)
	if strings.Contains(out.HTML, "<script>") {
		t.Fatalf("expected headline escaped, got %s", out.HTML)
	}
	if !strings.Contains(out.HTML, "&lt;script&gt;x&lt;/script&gt;") {
		t.Fatalf("expected escaped markup, got %s", out.HTML)
	}
	assertBalanced(t, out.HTML)
}

func TestHeroMedia(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		name     string
		url      string
		contains string
		absent   string
	}{
		{name: "video", url: "https://x/y.mp4", contains: "<video", absent: "<img"},
		{name: "video with query", url: "https://x/y.WEBM?sig=1#t", contains: "<video", absent: "<img"},
		{name: "image", url: "https://x/y.png", contains: `<img src="https://x/y.png"`, absent: "<video"},
		{name: "empty", url: "", contains: `class="asset-placeholder"`, absent: "<img"},
		{name: "script url", url: "javascript:alert(1)", contains: `<img src="#"`, absent: "javascript:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := engine.RenderBlock(builtinBlock("hero", map[string]any{"headline": "Hi", "image_url": tc.url}), "", nil)
			if !strings.Contains(out.HTML, tc.contains) {
				t.Fatalf("expected %q in %s", tc.contains, out.HTML)
			}
			if strings.Contains(out.HTML, tc.absent) {
				t.Fatalf("did not expect %q in %s", tc.absent, out.HTML)
			}
			if !strings.Contains(out.HTML, `data-field-path="image_url" data-field-kind="asset" data-field-label="Hero media"`) {
				t.Fatalf("expected bound media figure, got %s", out.HTML)
			}
		})
	}
}

func TestBuiltinsRenderDefaultsAsBalancedMarkup(t *testing.T) {
	definitions, err := blocks.BuiltinDefinitions()
	if err != nil {
		t.Fatalf("BuiltinDefinitions: %v", err)
	}
	engine := newTestEngine(t)
	seen := map[string]bool{}
	for _, def := range definitions {
		block := blocks.Renderable{ID: 3, Definition: def.View()}
		out := engine.RenderBlock(block, "ru", nil)
		if strings.Contains(out.HTML, "is-error") || strings.Contains(out.HTML, "<pre>") {
			t.Fatalf("%s: expected built-in rendering, got %s", def.Key, out.HTML)
		}
		if !strings.Contains(out.HTML, `data-block-section="3"`) {
			t.Fatalf("%s: expected section id, got %s", def.Key, out.HTML)
		}
		assertBalanced(t, out.HTML)
		if def.Key == "faq" && !strings.Contains(out.HTML, `data-field-path="items.0.question">Can I use my own domain?</summary>`) {
			t.Fatalf("expected faq definition defaults rendered, got %s", out.HTML)
		}
		seen[def.Key] = true
	}
	for _, key := range BuiltinKeys {
		if !seen[key] {
			t.Fatalf("no seed definition renders built-in %s", key)
		}
		if !engine.HasBuiltin(key) {
			t.Fatalf("expected built-in %s", key)
		}
	}
}

func TestBuiltinsTolerateEmptyPayloads(t *testing.T) {
	engine := newTestEngine(t)
	for _, key := range BuiltinKeys {
		block := blocks.Renderable{OrderIndex: 4, Definition: blocks.DefinitionView{Key: key}}
		out := engine.RenderBlock(block, "", nil)
		if strings.Contains(out.HTML, "is-error") {
			t.Fatalf("%s: unexpected error section %s", key, out.HTML)
		}
		if !strings.Contains(out.HTML, `data-block-section="4"`) {
			t.Fatalf("%s: expected order index as block id, got %s", key, out.HTML)
		}
		assertBalanced(t, out.HTML)
	}
}

func TestBuiltinListFieldPaths(t *testing.T) {
	engine := newTestEngine(t)
	cases := []struct {
		key    string
		config map[string]any
		want   []string
	}{
		{
			key:    "feature-grid",
			config: map[string]any{"features": []any{map[string]any{"title": "A"}, map[string]any{"title": "B"}}},
			want:   []string{`data-field-path="features.1.title">B</h3>`},
		},
		{
			key: "price-list",
			config: map[string]any{"plans": []any{
				map[string]any{"name": "Pro", "price": 10, "features": []any{"x", "y"}},
			}},
			want: []string{`data-field-path="plans.0.price">10</strong>`, `data-field-path="plans.0.features.1">y</li>`},
		},
		{
			key:    "faq",
			config: map[string]any{"items": []any{map[string]any{"question": "Q?", "answer": "A!"}}},
			want:   []string{"<details open>", `data-field-path="items.0.question">Q?</summary>`},
		},
		{
			key:    "media-gallery",
			config: map[string]any{},
			want:   []string{`data-field-path="images.0.url" data-field-kind="asset" data-field-label="Gallery image #1"`, `data-field-path="images.0.caption"></figcaption>`},
		},
		{
			key:    "team",
			config: map[string]any{"members": []any{map[string]any{"name": "Ann", "photo": "a.jpg"}}},
			want:   []string{`<img src="a.jpg" alt="Ann" />`, `data-field-label="Member photo #1"`},
		},
		{
			key:    "form",
			config: map[string]any{"fields": []any{"email"}},
			want:   []string{`data-field-path="fields.0"`, `<span>Email</span>`, `name="email"`, `placeholder="Email"`},
		},
		{
			key:    "speaker-highlight",
			config: map[string]any{"headline": "Ada", "chips": "a, b", "layout": "right", "avatar_shape": "square", "gradient_start": "#000", "gradient_end": "#fff"},
			want:   []string{"linear-gradient(135deg, #000, #fff)", "order:-1;", "border-radius:32px", "<span style=\"padding:4px 10px;"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			out := engine.RenderBlock(builtinBlock(tc.key, tc.config), "", nil)
			for _, want := range tc.want {
				if !strings.Contains(out.HTML, want) {
					t.Fatalf("expected %q in %s", want, out.HTML)
				}
			}
			assertBalanced(t, out.HTML)
		})
	}
}

func TestStyleIsPoppedAndApplied(t *testing.T) {
	engine := newTestEngine(t)
	config := map[string]any{
		"headline": "Hi",
		"style":    map[string]any{"background": "#000", "border_radius": 8},
	}
	out := engine.RenderBlock(builtinBlock("hero", config), "", nil)
	if !strings.Contains(out.HTML, `style="background:#000;border-radius:8px"`) {
		t.Fatalf("expected inline style, got %s", out.HTML)
	}
	if _, ok := config["style"]; !ok {
		t.Fatalf("rendering must not mutate the block config")
	}
}

func TestFallbackDumpsEscapedPayload(t *testing.T) {
	engine := newTestEngine(t)
	out := engine.RenderBlock(builtinBlock("unknown", map[string]any{"a": "<b>", "style": map[string]any{"padding": "4px"}}), "", nil)
	if !strings.HasPrefix(out.HTML, `<section data-block-section="1" style="padding:4px"><pre>`) {
		t.Fatalf("unexpected fallback %s", out.HTML)
	}
	if strings.Contains(out.HTML, "<b>") || !strings.Contains(out.HTML, "&lt;b&gt;") {
		t.Fatalf("expected escaped dump, got %s", out.HTML)
	}
	if strings.Contains(out.HTML, "padding&#34;") {
		t.Fatalf("style must be removed from the dump, got %s", out.HTML)
	}
}

func TestLocalePayloadSelection(t *testing.T) {
	engine := newTestEngine(t)
	settings := map[string]any{"locales": map[string]any{"default_locale": "ru", "locales": []any{"ru", "en"}}}
	block := blocks.Renderable{
		ID:           2,
		Definition:   blocks.DefinitionView{Key: "hero"},
		Config:       map[string]any{"headline": "Privet"},
		Translations: map[string]map[string]any{"en": {"headline": "Hello"}},
	}
	if out := engine.RenderBlock(block, "en", settings); !strings.Contains(out.HTML, ">Hello</h1>") {
		t.Fatalf("expected translation, got %s", out.HTML)
	}
	if out := engine.RenderBlock(block, "de", settings); !strings.Contains(out.HTML, ">Privet</h1>") {
		t.Fatalf("expected default locale content, got %s", out.HTML)
	}
}

func TestDynamicTemplateRendersWithHelpers(t *testing.T) {
	engine := newTestEngine(t)
	markup := `{{ helpers.text("title", "h2", "title") }}<em>{{ payload.title }}</em>` +
		`{% for item in helpers.list_items("features") %}{{ helpers.item_text(item, "name", "h3") }}{% endfor %}` +
		`{{ helpers.asset("cover_image") }}<i>{{ block_id }}</i>`
	block := customBlock("def-1", markup, " .custom { color: red; } ", map[string]any{
		"title":    "<x>",
		"features": []any{map[string]any{"name": "one"}, map[string]any{"name": "two"}},
		"style":    map[string]any{"padding": "8px"},
	})

	out := engine.RenderBlock(block, "", nil)
	wants := []string{
		`<section class="block block-custom" data-block-section="5" data-template-key="custom" style="padding:8px">`,
		`<h2 data-block-id="5" data-field-path="title" class="title">&lt;x&gt;</h2>`,
		`<em>&lt;x&gt;</em>`,
		`data-field-path="features.1.name">two</h3>`,
		`data-field-path="cover_image" data-field-kind="asset" data-field-label="Cover Image"><div class="asset-placeholder"><strong>Cover Image</strong><span>Add media in the editor</span></div></figure>`,
		`<i>5</i>`,
	}
	for _, want := range wants {
		if !strings.Contains(out.HTML, want) {
			t.Fatalf("expected %q in %s", want, out.HTML)
		}
	}
	if out.StyleKey != "custom" || out.StyleRules != ".custom { color: red; }" {
		t.Fatalf("unexpected style output %q %q", out.StyleKey, out.StyleRules)
	}
	assertBalanced(t, out.HTML)
}

func TestDynamicTemplateErrorsAreContained(t *testing.T) {
	logger := &recordingLogger{}
	engine := newTestEngine(t, WithLogger(logger))

	cases := []struct {
		name   string
		markup string
		log    string
	}{
		{name: "syntax", markup: `{% if %}`, log: "block.template_compile_failed"},
		{name: "banned include", markup: `{% include "other.html" %}`, log: "block.template_compile_failed"},
		{name: "runtime", markup: `{{ payload.title("x") }}`, log: "block.template_render_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := customBlock("err-"+tc.name, tc.markup, "", map[string]any{"title": "t"})
			out := engine.RenderBlock(block, "", nil)
			if !strings.HasPrefix(out.HTML, `<section class="block block-custom is-error" data-block-section="5" data-template-key="custom"><pre>Template error: `) {
				t.Fatalf("expected error section, got %s", out.HTML)
			}
			if !logger.has(tc.log) {
				t.Fatalf("expected %s to be logged, got %v", tc.log, logger.messages)
			}
			if out.StyleKey != "" {
				t.Fatalf("error sections contribute no styles")
			}
		})
	}
}

func TestDynamicTemplateLoopsAreBounded(t *testing.T) {
	engine := newTestEngine(t, WithMaxListItems(3))
	items := make([]any, 50)
	for i := range items {
		items[i] = map[string]any{"tags": []any{"a", "b", "c", "d", "e"}}
	}
	markup := `{% for a in payload.items %}{% for b in payload.items %}[x]{% endfor %}{% endfor %}` +
		`{% for c in block.config.items %}{% for tag in c.tags %}[t]{% endfor %}{% endfor %}` +
		`{% for item in helpers.list_items("items") %}{% for tag in item.value.tags %}[l]{% endfor %}{% endfor %}`
	out := engine.RenderBlock(customBlock("loops", markup, "", map[string]any{"items": items}), "", nil)

	if got := strings.Count(out.HTML, "[x]"); got != 9 {
		t.Fatalf("expected nested payload loops capped to 9 iterations, got %d", got)
	}
	if got := strings.Count(out.HTML, "[t]"); got != 9 {
		t.Fatalf("expected config loops capped to 9 iterations, got %d", got)
	}
	if got := strings.Count(out.HTML, "[l]"); got != 9 {
		t.Fatalf("expected list item loops capped to 9 iterations, got %d", got)
	}
	if len(items) != 50 || len(items[0].(map[string]any)["tags"].([]any)) != 5 {
		t.Fatalf("capping must not mutate the block config")
	}
}

func TestDynamicTemplateTagArgumentIsValidated(t *testing.T) {
	engine := newTestEngine(t)
	markup := `{{ helpers.text("title", "p onclick=alert(1)") }}{{ helpers.field("title", "div><script") }}`
	out := engine.RenderBlock(customBlock("tags", markup, "", map[string]any{"title": "t"}), "", nil)

	if strings.Contains(out.HTML, "onclick") || strings.Contains(out.HTML, "<script") {
		t.Fatalf("expected injected tag names to be dropped, got %s", out.HTML)
	}
	if strings.Count(out.HTML, `<span data-block-id="5" data-field-path="title">t</span>`) != 2 {
		t.Fatalf("expected span fallback for both helpers, got %s", out.HTML)
	}
	assertBalanced(t, out.HTML)
}

func TestDynamicCacheInvalidatesOnChecksum(t *testing.T) {
	engine := newTestEngine(t)

	first := engine.RenderBlock(customBlock("same", `<b>one</b>`, "", nil), "", nil)
	second := engine.RenderBlock(customBlock("same", `<b>two</b>`, "", nil), "", nil)
	if !strings.Contains(first.HTML, "one") || !strings.Contains(second.HTML, "two") {
		t.Fatalf("expected edited markup to take effect: %s / %s", first.HTML, second.HTML)
	}

	a, err := engine.compile("same", `<b>two</b>`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := engine.compile("same", `<b>two</b>`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if a != b {
		t.Fatalf("expected unchanged markup to reuse the compiled template")
	}

	other := newTestEngine(t)
	if _, ok := other.dynamic.Load("same"); ok {
		t.Fatalf("engines must not share compiled templates")
	}

	engine.ForgetTemplates()
	if _, ok := engine.dynamic.Load("same"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestDynamicCacheConcurrentRenders(t *testing.T) {
	engine := newTestEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := engine.RenderBlock(customBlock("race", `{{ payload.n }}`, "", map[string]any{"n": 1}), "", nil)
			if !strings.Contains(out.HTML, ">1</section>") {
				t.Errorf("unexpected output %s", out.HTML)
			}
		}()
	}
	wg.Wait()
}

func TestRichTextSanitizerAndMarkdown(t *testing.T) {
	engine := newTestEngine(t,
		WithSanitizer(markdown.NewUGCSanitizer()),
		WithMarkdown(markdown.NewGoldmarkRenderer()),
	)
	markup := `{{ helpers.richtext("bio") }}{{ helpers.markdown("notes") }}`
	out := engine.RenderBlock(customBlock("rt", markup, "", map[string]any{
		"bio":   `<p>ok</p><script>alert(1)</script>`,
		"notes": "**bold**",
	}), "", nil)
	if strings.Contains(out.HTML, "<script>") {
		t.Fatalf("expected script stripped, got %s", out.HTML)
	}
	if !strings.Contains(out.HTML, "<p>ok</p>") || !strings.Contains(out.HTML, "<strong>bold</strong>") {
		t.Fatalf("expected rich text and markdown, got %s", out.HTML)
	}
}

func TestRichTextIsTrustedWithoutSanitizer(t *testing.T) {
	engine := newTestEngine(t)
	out := engine.RenderBlock(customBlock("raw", `{{ helpers.richtext("bio") }}`, "", map[string]any{"bio": "<em>x</em>"}), "", nil)
	if !strings.Contains(out.HTML, `<div data-block-id="5" data-field-path="bio"><em>x</em></div>`) {
		t.Fatalf("expected unescaped rich text, got %s", out.HTML)
	}
}

type stubValidator struct {
	calls int
	err   error
}

func (s *stubValidator) Check(blocks.DefinitionView, map[string]any) error {
	s.calls++
	return s.err
}

func TestPayloadValidatorIsAdvisory(t *testing.T) {
	logger := &recordingLogger{}
	validator := &stubValidator{err: errors.New("headline required")}
	engine := newTestEngine(t, WithLogger(logger), WithPayloadValidator(validator))

	out := engine.RenderBlock(builtinBlock("hero", map[string]any{}), "", nil)
	if validator.calls != 1 {
		t.Fatalf("expected validator call, got %d", validator.calls)
	}
	if !logger.has("block.payload_invalid") {
		t.Fatalf("expected warning to be logged")
	}
	if !strings.Contains(out.HTML, `class="hero"`) {
		t.Fatalf("expected block to render regardless, got %s", out.HTML)
	}
}
