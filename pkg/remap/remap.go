// Package remap reassigns region IDs that exceed a target numeric range
// to unused IDs within range. Some atlases carry structure IDs above the
// 16-bit limit of common mask file formats; remapping makes the final
// volume storable as uint16 while a reverse table preserves the original
// anatomical identity of every moved region.
package remap

import (
	"errors"
	"fmt"

	"brainmask3d/internal/models"
)

// ErrExhausted is returned when there are more over-range IDs than free
// slots in [1, maxValue]. It signals either a pathological atlas or a
// target range that is too small.
var ErrExhausted = errors.New("remap: no available IDs left to assign")

// Table is the bidirectional mapping produced by a remap run. Only
// over-range IDs appear in it; IDs already within range are untouched.
type Table struct {
	OldToNew map[uint32]uint32
	NewToOld map[uint32]uint32
}

// Original returns the pre-remap ID for a final mask value. The second
// return value is false when the value was never remapped.
func (t *Table) Original(newID uint32) (uint32, bool) {
	if t == nil {
		return 0, false
	}
	old, ok := t.NewToOld[newID]
	return old, ok
}

// Len returns the number of remapped IDs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.OldToNew)
}

// Apply rewrites every voxel whose ID exceeds maxValue to an unused ID in
// [1, maxValue] and returns the rewritten copy with the assignment table.
//
// Candidates are taken in ascending order from the IDs not already
// present in the volume, and over-range IDs are processed ascending, so
// the assignment is deterministic for a fixed input. The mapping is
// injective and never collides with an ID that remains in the mask.
func Apply(v *models.Volume, maxValue uint32) (*models.Volume, *Table, error) {
	ids := v.DistinctLabels()

	used := make(map[uint32]struct{})
	var overRange []uint32
	for _, id := range ids {
		if id > maxValue {
			overRange = append(overRange, id) // ids are already sorted ascending
		} else {
			used[id] = struct{}{}
		}
	}

	table := &Table{
		OldToNew: make(map[uint32]uint32, len(overRange)),
		NewToOld: make(map[uint32]uint32, len(overRange)),
	}
	out := v.Clone()
	if len(overRange) == 0 {
		return out, table, nil
	}

	candidate := uint32(1)
	for _, old := range overRange {
		for candidate <= maxValue {
			if _, taken := used[candidate]; !taken {
				break
			}
			candidate++
		}
		if candidate > maxValue {
			return nil, nil, fmt.Errorf("%w: %d over-range IDs, last unplaced %d (max %d)",
				ErrExhausted, len(overRange), old, maxValue)
		}
		table.OldToNew[old] = candidate
		table.NewToOld[candidate] = old
		used[candidate] = struct{}{}
	}

	for i, id := range out.Data {
		if newID, ok := table.OldToNew[id]; ok {
			out.Data[i] = newID
		}
	}
	return out, table, nil
}
