package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCoordinateRoundTrip(t *testing.T) {
	v := NewVolume(4, 3, 2)
	require.Equal(t, 24, v.NumVoxels())

	for idx := 0; idx < v.NumVoxels(); idx++ {
		x, y, z := v.Coordinate(idx)
		assert.True(t, v.InBounds(x, y, z))
		assert.Equal(t, idx, v.Index(x, y, z))
	}

	assert.False(t, v.InBounds(-1, 0, 0))
	assert.False(t, v.InBounds(4, 0, 0))
	assert.False(t, v.InBounds(0, 3, 0))
	assert.False(t, v.InBounds(0, 0, 2))
}

func TestCloneIsIndependent(t *testing.T) {
	v := NewVolume(2, 2, 1)
	v.Set(0, 0, 0, 7)

	c := v.Clone()
	c.Set(0, 0, 0, 9)

	assert.Equal(t, uint32(7), v.At(0, 0, 0))
	assert.Equal(t, uint32(9), c.At(0, 0, 0))
}

func TestDistinctLabels(t *testing.T) {
	v := NewVolume(5, 1, 1)
	v.Data = []uint32{0, 9, 3, 9, 70000}

	assert.Equal(t, []uint32{3, 9, 70000}, v.DistinctLabels(),
		"labels are distinct, nonzero, ascending")
	assert.Equal(t, 4, v.CountNonzero())
	assert.Equal(t, 2, v.CountLabel(9))
	assert.Equal(t, 0, v.CountLabel(12345))
}
