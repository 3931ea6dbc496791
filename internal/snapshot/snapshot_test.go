package snapshot_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/snapshot"
)

func sampleProject() *projects.Project {
	hero := &blocks.Definition{Key: "hero", Name: "Hero", Category: "layout", Version: "1.0.0", DefaultConfig: map[string]any{"headline": "Default"}}
	cta := &blocks.Definition{Key: "cta", Name: "CTA", Category: "marketing", Version: "1.0.0", TemplateMarkup: "<p>x</p>"}
	return &projects.Project{
		ID:    7,
		Title: "Launch",
		Slug:  "launch",
		Theme: map[string]string{"accent": "#f00"},
		Blocks: []*blocks.Instance{
			{ID: 12, OrderIndex: 2, Config: map[string]any{"title": "Go"}, Definition: cta},
			{ID: 11, OrderIndex: 1, Config: map[string]any{"headline": "Hi", "list": []any{"a"}}, Definition: hero},
			{OrderIndex: 3, Definition: hero},
		},
	}
}

func TestCaptureOrdersBlocksAndNormalizesLocales(t *testing.T) {
	project := sampleProject()
	snap, err := snapshot.Capture(i18n.NewResolver(""), project)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if len(snap.Blocks) != 3 || snap.Blocks[0].DefinitionKey != "hero" || snap.Blocks[1].DefinitionKey != "cta" {
		t.Fatalf("expected blocks sorted by order index, got %+v", snap.Blocks)
	}
	if snap.Blocks[2].ID != nil {
		t.Fatalf("expected nil id for unsaved block")
	}
	if snap.Blocks[1].Definition.TemplateMarkup != "<p>x</p>" {
		t.Fatalf("expected template markup copied")
	}
	if snap.Project.Status != "draft" || snap.Project.Visibility != "private" {
		t.Fatalf("expected effective status and visibility, got %q %q", snap.Project.Status, snap.Project.Visibility)
	}

	locales, ok := project.Settings["locales"].(map[string]any)
	if !ok || locales["default_locale"] != "ru" {
		t.Fatalf("expected project settings normalized in place, got %#v", project.Settings)
	}
	if _, ok := snap.Project.Settings["locales"]; !ok {
		t.Fatalf("expected locales in snapshot settings")
	}
}

func TestCaptureIsIndependentOfProject(t *testing.T) {
	project := sampleProject()
	snap, err := snapshot.Capture(i18n.NewResolver(""), project)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	project.Blocks[1].Config["headline"] = "changed"
	project.Blocks[1].Config["list"].([]any)[0] = "z"
	project.Theme["accent"] = "#000"

	if snap.Blocks[0].Config["headline"] != "Hi" || snap.Blocks[0].Config["list"].([]any)[0] != "a" {
		t.Fatalf("snapshot shares config with project: %#v", snap.Blocks[0].Config)
	}
	if snap.Project.Theme["accent"] != "#f00" {
		t.Fatalf("snapshot shares theme with project")
	}

	clone := snap.Clone()
	clone.Blocks[0].Config["headline"] = "clone"
	*clone.Blocks[0].ID = 99
	if snap.Blocks[0].Config["headline"] != "Hi" || *snap.Blocks[0].ID != 11 {
		t.Fatalf("clone shares state with original")
	}
}

func TestCaptureRequiresProject(t *testing.T) {
	if _, err := snapshot.Capture(i18n.NewResolver(""), nil); !errors.Is(err, snapshot.ErrProjectRequired) {
		t.Fatalf("expected ErrProjectRequired, got %v", err)
	}
}

func TestIdentifier(t *testing.T) {
	id := int64(4)
	if got := (snapshot.BlockData{ID: &id, DefinitionKey: "hero"}).Identifier(); got != "4" {
		t.Fatalf("expected persisted id, got %q", got)
	}
	if got := (snapshot.BlockData{DefinitionKey: "hero", OrderIndex: 2}).Identifier(); got != "hero:2" {
		t.Fatalf("expected synthetic id, got %q", got)
	}
}

func TestEqualAndChecksum(t *testing.T) {
	if !snapshot.Equal(map[string]any{"n": 1, "s": []any{"a"}}, map[string]any{"s": []string{"a"}, "n": 1.0}) {
		t.Fatalf("expected values equal by encoding")
	}
	if snapshot.Equal(map[string]any{"n": 1}, map[string]any{"n": 2}) {
		t.Fatalf("expected different values")
	}
	if !snapshot.Equal(nil, map[string]string{}) {
		t.Fatalf("expected empty theme to equal missing theme")
	}

	project := sampleProject()
	first, _ := snapshot.Capture(i18n.NewResolver(""), project)
	second, _ := snapshot.Capture(i18n.NewResolver(""), project)
	a, err := first.Checksum()
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	b, _ := second.Checksum()
	if a != b || len(a) != 64 {
		t.Fatalf("expected stable checksum, got %q %q", a, b)
	}
	project.Blocks[0].Config["title"] = "Stop"
	third, _ := snapshot.Capture(i18n.NewResolver(""), project)
	if c, _ := third.Checksum(); c == a {
		t.Fatalf("expected checksum to change with content")
	}
}

func TestDecode(t *testing.T) {
	raw := `{"project":{"title":"T","theme":{"accent":"#fff"}},"blocks":[{"id":3,"definition_key":"hero","order_index":0,"config":{"n":10}}]}`
	snap, err := snapshot.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Blocks[0].Identifier() != "3" || !snapshot.Equal(snap.Blocks[0].Config, map[string]any{"n": 10}) {
		t.Fatalf("unexpected decoded block %+v", snap.Blocks[0])
	}
	if _, err := snapshot.Decode([]byte("{")); err == nil || !strings.Contains(err.Error(), "snapshot: decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
