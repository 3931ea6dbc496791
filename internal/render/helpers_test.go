package render

import (
	"strings"
	"testing"
)

func TestStyleToAttr(t *testing.T) {
	cases := []struct {
		name  string
		style any
		want  string
	}{
		{name: "nil", style: nil, want: ""},
		{name: "not a mapping", style: "color:red", want: ""},
		{name: "background and padding", style: map[string]any{"background": "#fff", "padding": "4px"}, want: "background:#fff;padding:4px"},
		{name: "border default width", style: map[string]any{"border_color": "red"}, want: "border:1px solid red"},
		{name: "border width", style: map[string]any{"border_color": "red", "border_width": "3px"}, want: "border:3px solid red"},
		{name: "radius float", style: map[string]any{"border_radius": 12.5}, want: "border-radius:12.5px"},
		{name: "radius string ignored", style: map[string]any{"border_radius": "12"}, want: ""},
		{name: "empty strings ignored", style: map[string]any{"background": "", "padding": 3}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StyleToAttr(tc.style); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsVideoURL(t *testing.T) {
	cases := map[string]bool{
		"https://x/y.mp4":         true,
		"https://x/y.MOV?x=1":     true,
		"clip.m4v#t=3":            true,
		"a.ogg":                   true,
		"a.webm":                  true,
		"https://x/y.png":         false,
		"https://x/mp4":           false,
		"https://x/y.png?v=a.mp4": false,
		"":                        false,
	}
	for url, want := range cases {
		if got := IsVideoURL(url); got != want {
			t.Fatalf("IsVideoURL(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestSafeURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com":    "https://example.com",
		"/relative":              "/relative",
		"JavaScript:alert(1)":    "#",
		" java\tscript:alert(1)": "#",
		"vbscript:x":             "#",
	}
	for input, want := range cases {
		if got := SafeURL(input); got != want {
			t.Fatalf("SafeURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func testHelpers(payload map[string]any) *Helpers {
	return &Helpers{
		blockID:       9,
		definitionKey: "gallery",
		payload:       payload,
		maxItems:      2,
		hint:          "drop a file",
	}
}

func TestHelpersFieldAttributes(t *testing.T) {
	h := testHelpers(map[string]any{"title": "A & B", "count": 3, "nested": map[string]any{"x": "y"}})

	got := string(h.Field("title", FieldOptions{
		Tag:     "h2",
		Classes: "big",
		Attrs:   []Attr{{Name: "title", Value: `"q"`}, {Name: "", Value: "skip"}},
	}))
	want := `<h2 data-block-id="9" data-field-path="title" class="big" title="&#34;q&#34;">A &amp; B</h2>`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if got := string(h.Text("count", FieldOptions{})); got != `<p data-block-id="9" data-field-path="count">3</p>` {
		t.Fatalf("expected numeric text, got %s", got)
	}
	if got := string(h.Text("nested", FieldOptions{Default: "none"})); !strings.Contains(got, ">none</p>") {
		t.Fatalf("expected default for non-scalar, got %s", got)
	}
	if got := h.Value("missing.path", "d"); got != "d" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestHelpersRejectUnsafeTagsAndAttrNames(t *testing.T) {
	h := testHelpers(map[string]any{"title": "hi"})

	cases := map[string]string{
		"p onclick=alert(1)":  "span",
		`img src=x onerror=x`: "span",
		"h1><script":          "span",
		"1h":                  "span",
		"H2":                  "h2",
		" custom-element ":    "custom-element",
		"x-card2":             "x-card2",
	}
	for tag, want := range cases {
		got := string(h.Text("title", FieldOptions{Tag: tag}))
		if !strings.HasPrefix(got, "<"+want+" ") || !strings.HasSuffix(got, "</"+want+">") {
			t.Fatalf("tag %q: expected <%s>, got %s", tag, want, got)
		}
		if strings.Contains(got, "onclick") || strings.Contains(got, "onerror") || strings.Contains(got, "<script") {
			t.Fatalf("tag %q leaked into markup: %s", tag, got)
		}
	}

	got := string(h.Field("title", FieldOptions{Tag: "p", Attrs: []Attr{
		{Name: `x onmouseover`, Value: "alert(1)"},
		{Name: `a"b`, Value: "1"},
		{Name: "data-ok", Value: "1"},
	}}))
	want := `<p data-block-id="9" data-field-path="title" data-ok="1">hi</p>`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestHelpersListItems(t *testing.T) {
	h := testHelpers(map[string]any{
		"images": []any{
			map[string]any{"url": "a.png"},
			map[string]any{"url": ""},
			map[string]any{"url": "c.png"},
		},
	})
	items := h.ListItems("images")
	if len(items) != 2 {
		t.Fatalf("expected list capped at 2, got %d", len(items))
	}
	if items[1].Path("url") != "images.1.url" || items[1].Path() != "images.1" {
		t.Fatalf("unexpected item paths %q %q", items[1].Path("url"), items[1].Path())
	}
	if got := h.ItemValue(items[0], "url", ""); got != "a.png" {
		t.Fatalf("expected item value, got %q", got)
	}
	if h.ListItems("missing") != nil || h.ListItems("images.0.url") != nil {
		t.Fatalf("expected no items for missing or scalar paths")
	}

	asset := string(h.ItemAsset(items[1], "url", AssetOptions{}))
	want := `<figure data-block-id="9" data-field-path="images.1.url" data-field-kind="asset" data-field-label="Url"><div class="asset-placeholder"><strong>Url</strong><span>drop a file</span></div></figure>`
	if asset != want {
		t.Fatalf("expected %s, got %s", want, asset)
	}

	asset = string(h.ItemAsset(items[0], "", AssetOptions{Classes: "thumb", Attrs: []Attr{{Name: "data-field-kind", Value: "other"}}}))
	if !strings.Contains(asset, `data-field-path="images.0" class="thumb" data-field-kind="asset" data-field-label="Images"`) {
		t.Fatalf("expected list key label and fixed kind, got %s", asset)
	}
}

func TestHelpersAsset(t *testing.T) {
	h := testHelpers(map[string]any{"hero_video": "https://x/v.mp4?t=1", "photo": `a".png`})
	video := string(h.Asset("hero_video", AssetOptions{}))
	if !strings.Contains(video, `<video src="https://x/v.mp4?t=1" autoplay muted loop playsinline></video>`) {
		t.Fatalf("expected video, got %s", video)
	}
	if !strings.Contains(video, `data-field-label="Hero Video"`) {
		t.Fatalf("expected humanized label, got %s", video)
	}
	img := string(h.Asset("photo", AssetOptions{Label: "Photo <1>"}))
	if !strings.Contains(img, `<img src="a&#34;.png" alt="Photo &lt;1&gt;"/>`) {
		t.Fatalf("expected escaped image, got %s", img)
	}
}

func TestSectionClasses(t *testing.T) {
	h := testHelpers(nil)
	if got := h.SectionClasses(); got != "block block-gallery" {
		t.Fatalf("unexpected classes %q", got)
	}
	if got := h.SectionClasses("", "wide", "is-error"); got != "block block-gallery wide is-error" {
		t.Fatalf("unexpected classes %q", got)
	}
}

func TestAttrsFromMap(t *testing.T) {
	attrs := AttrsFromMap(map[string]any{"b": 2, "a": "x", "skip": nil, "obj": map[string]any{}})
	if len(attrs) != 2 || attrs[0].Name != "a" || attrs[1].Value != "2" {
		t.Fatalf("unexpected attrs %#v", attrs)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"image_url": "Image Url",
		"photo":     "Photo",
		"":          "",
	}
	for input, want := range cases {
		if got := Humanize(input); got != want {
			t.Fatalf("Humanize(%q) = %q, want %q", input, got, want)
		}
	}
}
