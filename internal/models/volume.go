package models

import (
	"sort"
)

// Volume represents a 3D labeled segmentation mask.
// Each voxel holds a region ID; 0 means background (no region).
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order,
	// indexed as z*Width*Height + y*Width + x.
	Data []uint32

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int
}

// NewVolume creates a zero-initialized volume with the given dimensions.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]uint32, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Index converts voxel coordinates to a flat index into Data.
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// Coordinate converts a flat index back to voxel coordinates.
func (v *Volume) Coordinate(idx int) (x, y, z int) {
	plane := v.Width * v.Height
	z = idx / plane
	rem := idx % plane
	y = rem / v.Width
	x = rem % v.Width
	return x, y, z
}

// At returns the region ID at the given voxel coordinates.
func (v *Volume) At(x, y, z int) uint32 {
	return v.Data[v.Index(x, y, z)]
}

// Set writes the region ID at the given voxel coordinates.
func (v *Volume) Set(x, y, z int, id uint32) {
	v.Data[v.Index(x, y, z)] = id
}

// InBounds reports whether the given voxel coordinates lie inside the volume.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.Width && y >= 0 && y < v.Height && z >= 0 && z < v.Depth
}

// NumVoxels returns the total number of voxels in the volume.
func (v *Volume) NumVoxels() int {
	return v.Width * v.Height * v.Depth
}

// Clone returns a deep copy of the volume. Pipeline stages operate on
// copies so that each stage is a pure mask-in, mask-out transform.
func (v *Volume) Clone() *Volume {
	data := make([]uint32, len(v.Data))
	copy(data, v.Data)
	return &Volume{
		Data:   data,
		Width:  v.Width,
		Height: v.Height,
		Depth:  v.Depth,
	}
}

// DistinctLabels returns the distinct nonzero region IDs present in the
// volume, sorted ascending.
func (v *Volume) DistinctLabels() []uint32 {
	seen := make(map[uint32]struct{})
	for _, id := range v.Data {
		if id != 0 {
			seen[id] = struct{}{}
		}
	}
	labels := make([]uint32, 0, len(seen))
	for id := range seen {
		labels = append(labels, id)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// CountNonzero returns the number of foreground voxels.
func (v *Volume) CountNonzero() int {
	n := 0
	for _, id := range v.Data {
		if id != 0 {
			n++
		}
	}
	return n
}

// CountLabel returns the number of voxels carrying the given region ID.
func (v *Volume) CountLabel(id uint32) int {
	n := 0
	for _, d := range v.Data {
		if d == id {
			n++
		}
	}
	return n
}

// FragmentRecord describes one connected component of a region's voxels.
// Component indices are 1-based and scoped per region ID.
type FragmentRecord struct {
	// RegionID is the mask value the fragment belongs to
	RegionID uint32

	// RegionName is the anatomical name resolved from the hierarchy
	RegionName string

	// FragmentIndex is the 1-based component index within the region
	FragmentIndex int

	// SizeVoxels is the number of voxels in the component
	SizeVoxels int

	// Removed reports whether the component was zeroed for being
	// smaller than the configured minimum fragment size
	Removed bool
}

// LabelRow maps one final mask ID to its anatomical name and acronym.
type LabelRow struct {
	ID      uint32
	Name    string
	Acronym string
}
