package publisher

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/snapshot"
	"github.com/goliatone/go-renderly/internal/util"
)

// unknownDefinitionKey names preview blocks that carry no definition key.
const unknownDefinitionKey = "unknown"

// PreviewOverrides carries unsaved editor state. A non-nil Blocks replaces
// every block of the project, so an empty slice previews an empty page.
// Project keys overwrite the matching snapshot project fields.
type PreviewOverrides struct {
	Blocks  []map[string]any `json:"blocks" yaml:"blocks"`
	Project map[string]any   `json:"project" yaml:"project"`
}

// RenderPreviewHTML renders project with overrides applied and nothing
// persisted. Override blocks resolve their definition by key against the
// project's own blocks; unknown keys render with an empty inline definition.
func (c *Composer) RenderPreviewHTML(project *projects.Project, overrides PreviewOverrides, locale string) (string, error) {
	if project == nil {
		return "", ErrProjectRequired
	}
	snap, err := snapshot.Capture(c.resolver, project)
	if err != nil {
		return "", err
	}
	applyProjectOverrides(&snap.Project, overrides.Project)
	if snap.Project.Settings == nil {
		snap.Project.Settings = map[string]any{}
	}
	c.resolver.EnsureLocales(snap.Project.Settings)

	definitions := make(map[string]blocks.DefinitionView, len(project.Blocks))
	for _, inst := range project.Blocks {
		if inst == nil || inst.Definition == nil {
			continue
		}
		if _, ok := definitions[inst.Definition.Key]; !ok {
			definitions[inst.Definition.Key] = inst.Definition.View()
		}
	}
	lookup := func(key string) blocks.DefinitionView {
		if view, ok := definitions[key]; ok {
			return view
		}
		return blocks.InlineDefinition(key)
	}

	var renderables []blocks.Renderable
	if overrides.Blocks != nil {
		renderables = make([]blocks.Renderable, 0, len(overrides.Blocks))
		for position, data := range overrides.Blocks {
			key := strings.TrimSpace(fmt.Sprint(data["definition_key"]))
			if data["definition_key"] == nil || key == "" {
				key = unknownDefinitionKey
			}
			renderables = append(renderables, blocks.FromPayload(data, lookup(key), position))
		}
	} else {
		renderables = make([]blocks.Renderable, 0, len(snap.Blocks))
		for _, block := range snap.Blocks {
			renderables = append(renderables, renderableFromSnapshot(block, lookup(block.DefinitionKey)))
		}
	}

	return c.renderPage(page{
		title:    snap.Project.Title,
		theme:    snap.Project.Theme,
		settings: snap.Project.Settings,
		blocks:   renderables,
	}, locale)
}

func applyProjectOverrides(data *snapshot.ProjectData, overrides map[string]any) {
	for key, value := range overrides {
		switch key {
		case "title":
			data.Title = stringValue(value)
		case "slug":
			data.Slug = stringValue(value)
		case "description":
			data.Description = stringValue(value)
		case "status":
			data.Status = stringValue(value)
		case "visibility":
			data.Visibility = stringValue(value)
		case "theme":
			data.Theme = themeValue(value)
		case "settings":
			if settings, ok := value.(map[string]any); ok {
				data.Settings = util.DeepCloneMap(settings)
			} else {
				data.Settings = map[string]any{}
			}
		}
	}
}

func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func themeValue(value any) map[string]string {
	switch typed := value.(type) {
	case map[string]string:
		return util.CloneStringMap(typed)
	case map[string]any:
		out := make(map[string]string, len(typed))
		for key, raw := range typed {
			if raw != nil {
				out[key] = stringValue(raw)
			}
		}
		return out
	default:
		return map[string]string{}
	}
}
