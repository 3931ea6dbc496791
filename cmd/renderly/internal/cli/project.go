package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-renderly"
	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/projects"
)

// projectFile is the on-disk project shape. JSON files parse as YAML too.
type projectFile struct {
	ID          int64             `yaml:"id,omitempty"`
	Title       string            `yaml:"title"`
	Slug        string            `yaml:"slug"`
	Description string            `yaml:"description,omitempty"`
	Status      string            `yaml:"status,omitempty"`
	Visibility  string            `yaml:"visibility,omitempty"`
	Theme       map[string]string `yaml:"theme,omitempty"`
	Settings    map[string]any    `yaml:"settings,omitempty"`
	Blocks      []blockFile       `yaml:"blocks"`
}

type blockFile struct {
	ID            int64                     `yaml:"id,omitempty"`
	DefinitionKey string                    `yaml:"definition_key"`
	OrderIndex    *int                      `yaml:"order_index"`
	Config        map[string]any            `yaml:"config"`
	Translations  map[string]map[string]any `yaml:"translations,omitempty"`
}

// toProjectFile is the inverse of loadProject, so written files load back.
func toProjectFile(project *renderly.Project) projectFile {
	file := projectFile{
		ID:          project.ID,
		Title:       project.Title,
		Slug:        project.Slug,
		Description: project.Description,
		Status:      string(project.Status),
		Visibility:  string(project.Visibility),
		Theme:       project.Theme,
		Settings:    project.Settings,
		Blocks:      make([]blockFile, 0, len(project.Blocks)),
	}
	for _, block := range project.SortedBlocks() {
		order := block.OrderIndex
		file.Blocks = append(file.Blocks, blockFile{
			ID:            block.ID,
			DefinitionKey: block.DefinitionKey(),
			OrderIndex:    &order,
			Config:        block.Config,
			Translations:  block.Translations,
		})
	}
	return file
}

// readSnapshot decodes an exported snapshot. YAML is decoded generically and
// re-read through the snapshot's JSON field names.
func readSnapshot(path string) (renderly.Snapshot, error) {
	var raw map[string]any
	if err := readYAML(path, &raw); err != nil {
		return renderly.Snapshot{}, err
	}
	if len(raw) == 0 || raw["project"] == nil {
		return renderly.Snapshot{}, fmt.Errorf("%s: missing project", path)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return renderly.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	var snap renderly.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return renderly.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func (a *app) writeProjectFile(path string, project *renderly.Project) error {
	data, err := yaml.Marshal(toProjectFile(project))
	if err != nil {
		return err
	}
	return a.writeOutput(path, string(data))
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadProject reads path and resolves every block against the module
// catalog. Blocks without order_index keep their file position.
func (a *app) loadProject(ctx context.Context, path string) (*renderly.Project, error) {
	var file projectFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}

	project := &renderly.Project{
		ID:          file.ID,
		Title:       file.Title,
		Slug:        strings.TrimSpace(file.Slug),
		Description: file.Description,
		Status:      projects.Status(file.Status),
		Visibility:  projects.Visibility(file.Visibility),
		Theme:       file.Theme,
		Settings:    file.Settings,
	}
	if project.Slug == "" {
		project.Slug = renderly.Slugify(project.Title)
	}

	for i, entry := range file.Blocks {
		key := strings.TrimSpace(entry.DefinitionKey)
		definition, err := a.module.Definition(ctx, key)
		if err != nil {
			if blocks.IsNotFound(err) {
				return nil, fmt.Errorf("%s: block %d: unknown definition %q", path, i, key)
			}
			return nil, err
		}
		order := i
		if entry.OrderIndex != nil {
			order = *entry.OrderIndex
		}
		project.Blocks = append(project.Blocks, &renderly.BlockInstance{
			ID:           entry.ID,
			ProjectID:    project.ID,
			DefinitionID: definition.ID,
			OrderIndex:   order,
			Config:       entry.Config,
			Translations: entry.Translations,
			Definition:   definition,
		})
	}
	if err := projects.Validate(project); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return project, nil
}
