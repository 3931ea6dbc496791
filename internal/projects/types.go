package projects

import (
	"sort"
	"time"

	"github.com/goliatone/go-renderly/internal/blocks"
)

// Visibility controls who may open a project's share link.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Project is a site under construction. Blocks are owned by the project and
// rendered in ascending OrderIndex.
type Project struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Description string             `json:"description,omitempty"`
	Theme       map[string]string  `json:"theme"`
	Settings    map[string]any     `json:"settings"`
	Visibility  Visibility         `json:"visibility"`
	Status      Status             `json:"status"`
	Blocks      []*blocks.Instance `json:"blocks"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// EffectiveVisibility defaults an unset visibility to private.
func (p *Project) EffectiveVisibility() Visibility {
	if p == nil || p.Visibility == "" {
		return VisibilityPrivate
	}
	return p.Visibility
}

// EffectiveStatus defaults an unset status to draft.
func (p *Project) EffectiveStatus() Status {
	if p == nil || p.Status == "" {
		return StatusDraft
	}
	return p.Status
}

// EnsureSettings allocates Settings when nil and returns it.
func (p *Project) EnsureSettings() map[string]any {
	if p.Settings == nil {
		p.Settings = map[string]any{}
	}
	return p.Settings
}

// SortedBlocks returns the blocks ordered by OrderIndex. Ties keep their
// relative order.
func (p *Project) SortedBlocks() []*blocks.Instance {
	if p == nil {
		return nil
	}
	out := make([]*blocks.Instance, 0, len(p.Blocks))
	for _, block := range p.Blocks {
		if block != nil {
			out = append(out, block)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// Renderables adapts the sorted blocks for the render engine.
func (p *Project) Renderables() []blocks.Renderable {
	sorted := p.SortedBlocks()
	out := make([]blocks.Renderable, 0, len(sorted))
	for _, block := range sorted {
		out = append(out, blocks.FromInstance(block))
	}
	return out
}
