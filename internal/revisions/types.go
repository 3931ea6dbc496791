package revisions

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-renderly/internal/snapshot"
)

// Revision is one entry of a project's append-only history: the snapshot
// taken after an edit plus its diff against the previous entry.
type Revision struct {
	bun.BaseModel `bun:"table:project_revisions,alias:pr"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ProjectID int64     `bun:"project_id,notnull" json:"project_id"`
	// Sequence increases by one per project and breaks created_at ties.
	Sequence  int64             `bun:"sequence,notnull" json:"sequence"`
	UserID    *int64            `bun:"user_id" json:"user_id,omitempty"`
	Action    string            `bun:"action,notnull" json:"action"`
	Snapshot  snapshot.Snapshot `bun:"snapshot,type:jsonb,notnull" json:"snapshot"`
	Diff      Diff              `bun:"diff,type:jsonb,notnull" json:"diff"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Diff summarises what changed between two snapshots. Block lists hold
// definition keys, so repeated keys mean several blocks of that kind.
type Diff struct {
	BlockCount   BlockCount `json:"block_count"`
	Added        []string   `json:"added"`
	Removed      []string   `json:"removed"`
	Changed      []string   `json:"changed"`
	OrderChanged bool       `json:"order_changed"`
	ThemeChanged bool       `json:"theme_changed"`
}

// BlockCount is the number of distinct block identifiers before and after.
type BlockCount struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// Empty reports whether the diff records no change at all.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 &&
		!d.OrderChanged && !d.ThemeChanged
}

func cloneRevision(src *Revision) *Revision {
	if src == nil {
		return nil
	}
	copied := *src
	if src.UserID != nil {
		id := *src.UserID
		copied.UserID = &id
	}
	copied.Snapshot = src.Snapshot.Clone()
	copied.Diff = Diff{
		BlockCount:   src.Diff.BlockCount,
		Added:        append([]string{}, src.Diff.Added...),
		Removed:      append([]string{}, src.Diff.Removed...),
		Changed:      append([]string{}, src.Diff.Changed...),
		OrderChanged: src.Diff.OrderChanged,
		ThemeChanged: src.Diff.ThemeChanged,
	}
	return &copied
}
