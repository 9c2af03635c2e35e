// Package mask implements the hierarchy-driven merge and exclusion rules
// that simplify a labeled segmentation volume.
//
// The rules are always applied in a fixed order: flatten whole subtrees,
// then flatten to a fixed depth, then exclude. Exclusion matches only a
// region's own ID, so a region that absorbed voxels through flattening is
// removed only if it is itself named in the exclusion list. Callers rely
// on that exact order (fiber tracts are flattened first so the whole
// tract subtree disappears with a single exclusion entry).
package mask

import (
	"fmt"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
)

// FlattenRegions merges every descendant of each listed region into that
// region's own ID. The input volume is not modified; a rewritten copy is
// returned. An unknown acronym aborts the operation before any voxel is
// touched. Re-applying the same rules is a no-op.
//
// Each listed region is applied as its own pass over the volume, in list
// order. When one listed region is an ancestor of another, an earlier
// ancestor pass absorbs the descendant's subtree and the later descendant
// pass finds nothing left to rewrite.
func FlattenRegions(v *models.Volume, a *atlas.Atlas, acronyms []string) (*models.Volume, error) {
	var rules []map[uint32]uint32
	for _, acronym := range acronyms {
		target, err := a.IDOf(acronym)
		if err != nil {
			return nil, fmt.Errorf("flatten %q: %w", acronym, err)
		}
		descendants, err := a.Descendants(acronym)
		if err != nil {
			return nil, fmt.Errorf("flatten %q: %w", acronym, err)
		}
		sub := make(map[uint32]uint32, len(descendants))
		for _, d := range descendants {
			id, err := a.IDOf(d)
			if err != nil {
				return nil, fmt.Errorf("flatten %q: %w", acronym, err)
			}
			sub[id] = target
		}
		rules = append(rules, sub)
	}
	return applySequential(v, rules), nil
}

// FlattenDescendantsAtDepth keeps one generation of substructure below
// each listed region: every region exactly depth levels below it becomes
// the representative for its own subtree, and everything deeper is merged
// into that representative. Depth must be at least 1.
//
// Like FlattenRegions, each listed region is its own pass in list order;
// the kept subtrees below a single region are disjoint, so one pass per
// listed region suffices.
func FlattenDescendantsAtDepth(v *models.Volume, a *atlas.Atlas, acronyms []string, depth int) (*models.Volume, error) {
	var rules []map[uint32]uint32
	for _, acronym := range acronyms {
		kept, err := a.DescendantsAtDepth(acronym, depth)
		if err != nil {
			return nil, fmt.Errorf("flatten %q at depth %d: %w", acronym, depth, err)
		}
		sub := make(map[uint32]uint32)
		for _, k := range kept {
			keptID, err := a.IDOf(k)
			if err != nil {
				return nil, fmt.Errorf("flatten %q at depth %d: %w", acronym, depth, err)
			}
			descendants, err := a.Descendants(k)
			if err != nil {
				return nil, fmt.Errorf("flatten %q at depth %d: %w", acronym, depth, err)
			}
			for _, d := range descendants {
				id, err := a.IDOf(d)
				if err != nil {
					return nil, fmt.Errorf("flatten %q at depth %d: %w", acronym, depth, err)
				}
				sub[id] = keptID
			}
		}
		rules = append(rules, sub)
	}
	return applySequential(v, rules), nil
}

// ExcludeRegions zeroes every voxel carrying the ID of a listed region.
// Only the region's own ID is matched; descendants keep their voxels
// unless they were previously flattened into the excluded region.
func ExcludeRegions(v *models.Volume, a *atlas.Atlas, acronyms []string) (*models.Volume, error) {
	sub := make(map[uint32]uint32)
	for _, acronym := range acronyms {
		id, err := a.IDOf(acronym)
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", acronym, err)
		}
		sub[id] = 0
	}
	return applySequential(v, []map[uint32]uint32{sub}), nil
}

// WholeBrain returns a binary {0,1} mask marking every foreground voxel.
// It is computed from the raw input mask before any merging so the
// whole-brain outline includes regions that are later excluded.
func WholeBrain(v *models.Volume) *models.Volume {
	out := models.NewVolume(v.Width, v.Height, v.Depth)
	for i, id := range v.Data {
		if id != 0 {
			out.Data[i] = 1
		}
	}
	return out
}

// applySequential clones the volume and applies each substitution map in
// its own full sweep, in order. Later passes observe the labels produced
// by earlier ones; collapsing the maps into a single sweep would let a
// later rule undo an earlier ancestor's rewrite.
func applySequential(v *models.Volume, rules []map[uint32]uint32) *models.Volume {
	out := v.Clone()
	for _, sub := range rules {
		if len(sub) == 0 {
			continue
		}
		for i, id := range out.Data {
			if repl, ok := sub[id]; ok {
				out.Data[i] = repl
			}
		}
	}
	return out
}
