package revisions

import (
	"github.com/goliatone/go-renderly/internal/snapshot"
)

// ComputeDiff compares current against previous. A nil previous is the
// first revision of a project: every block is added and the theme counts
// as changed.
//
// Blocks are matched by BlockData.Identifier. Only base config takes part in
// the changed check; translations do not.
func ComputeDiff(previous *snapshot.Snapshot, current snapshot.Snapshot) Diff {
	if previous == nil {
		added := make([]string, 0, len(current.Blocks))
		for _, block := range current.Blocks {
			added = append(added, block.DefinitionKey)
		}
		return Diff{
			BlockCount:   BlockCount{Before: 0, After: len(current.Blocks)},
			Added:        added,
			Removed:      []string{},
			Changed:      []string{},
			ThemeChanged: true,
		}
	}

	prev := indexBlocks(previous.Blocks)
	curr := indexBlocks(current.Blocks)

	diff := Diff{
		BlockCount: BlockCount{Before: len(prev.order), After: len(curr.order)},
		Added:      []string{},
		Removed:    []string{},
		Changed:    []string{},
	}
	for _, id := range curr.order {
		block := curr.byID[id]
		before, ok := prev.byID[id]
		switch {
		case !ok:
			diff.Added = append(diff.Added, block.DefinitionKey)
		case !snapshot.Equal(before.Config, block.Config):
			diff.Changed = append(diff.Changed, block.DefinitionKey)
		}
	}
	for _, id := range prev.order {
		if _, ok := curr.byID[id]; !ok {
			diff.Removed = append(diff.Removed, prev.byID[id].DefinitionKey)
		}
	}

	diff.OrderChanged = !equalSequences(
		commonSequence(previous.Blocks, curr),
		commonSequence(current.Blocks, prev),
	)
	diff.ThemeChanged = !snapshot.Equal(previous.Project.Theme, current.Project.Theme)
	return diff
}

// blockIndex keeps first-seen identifier order with the last block seen for
// each identifier.
type blockIndex struct {
	order []string
	byID  map[string]snapshot.BlockData
}

func indexBlocks(list []snapshot.BlockData) blockIndex {
	index := blockIndex{byID: make(map[string]snapshot.BlockData, len(list))}
	for _, block := range list {
		id := block.Identifier()
		if _, seen := index.byID[id]; !seen {
			index.order = append(index.order, id)
		}
		index.byID[id] = block
	}
	return index
}

// commonSequence lists identifiers of list, in order, that other also has.
func commonSequence(list []snapshot.BlockData, other blockIndex) []string {
	out := make([]string, 0, len(list))
	for _, block := range list {
		id := block.Identifier()
		if _, ok := other.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func equalSequences(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
