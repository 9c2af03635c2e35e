package labels_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
	"brainmask3d/pkg/labels"
	"brainmask3d/pkg/remap"
)

func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()
	a, err := atlas.New([]atlas.Region{
		{ID: 997, Acronym: "root", Name: "root"},
		{ID: 5, Acronym: "A", Name: "Region A", ParentAcronym: "root"},
		{ID: 70000, Acronym: "BIG", Name: "Region with an oversized ID", ParentAcronym: "root"},
	})
	require.NoError(t, err)
	return a
}

func rowVolume(values ...uint32) *models.Volume {
	v := models.NewVolume(len(values), 1, 1)
	copy(v.Data, values)
	return v
}

func TestMappingRoundTrip(t *testing.T) {
	a := testAtlas(t)
	v := rowVolume(5, 5, 0, 1, 0)

	table := &remap.Table{
		OldToNew: map[uint32]uint32{70000: 1},
		NewToOld: map[uint32]uint32{1: 70000},
	}
	rows := labels.Mapping(v, a, table)

	require.Len(t, rows, 2, "exactly one row per distinct nonzero final ID")
	assert.Equal(t, uint32(1), rows[0].ID)
	assert.Equal(t, "Region with an oversized ID", rows[0].Name,
		"remapped IDs resolve through the reverse table")
	assert.Equal(t, "BIG", rows[0].Acronym)

	assert.Equal(t, uint32(5), rows[1].ID)
	assert.Equal(t, "Region A", rows[1].Name)
}

func TestMappingPlaceholders(t *testing.T) {
	a := testAtlas(t)
	// 9 was remapped from an ID the hierarchy does not know; 777 was
	// never remapped and is unknown. The two failure modes must stay
	// distinguishable in the generated names.
	v := rowVolume(9, 777)
	table := &remap.Table{
		OldToNew: map[uint32]uint32{123456: 9},
		NewToOld: map[uint32]uint32{9: 123456},
	}

	rows := labels.Mapping(v, a, table)
	require.Len(t, rows, 2)
	assert.Equal(t, "Remapped_123456", rows[0].Name)
	assert.Equal(t, "Remapped_123456", rows[0].Acronym)
	assert.Equal(t, "Unknown_777", rows[1].Name)
	assert.Equal(t, "Unknown_777", rows[1].Acronym)
}

func TestMappingRemapWinsOverCoincidentalAtlasID(t *testing.T) {
	// The candidate pool only avoids IDs present in the mask, so a
	// remapped value can coincide with an atlas ID that never appeared.
	// The reverse table must win the lookup.
	a, err := atlas.New([]atlas.Region{
		{ID: 997, Acronym: "root", Name: "root"},
		{ID: 1, Acronym: "shadow", Name: "Absent region with ID 1", ParentAcronym: "root"},
		{ID: 70000, Acronym: "BIG", Name: "Region with an oversized ID", ParentAcronym: "root"},
	})
	require.NoError(t, err)

	v := rowVolume(1)
	table := &remap.Table{
		OldToNew: map[uint32]uint32{70000: 1},
		NewToOld: map[uint32]uint32{1: 70000},
	}

	rows := labels.Mapping(v, a, table)
	require.Len(t, rows, 1)
	assert.Equal(t, "BIG", rows[0].Acronym)
}

func TestMappingNilRemapTable(t *testing.T) {
	a := testAtlas(t)
	v := rowVolume(5)
	rows := labels.Mapping(v, a, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "Region A", rows[0].Name)
}

func TestWriteLabelCSV(t *testing.T) {
	rows := []models.LabelRow{
		{ID: 5, Name: "Region A", Acronym: "A"},
		{ID: 9, Name: "Remapped_123456", Acronym: "Remapped_123456"},
	}

	var buf bytes.Buffer
	require.NoError(t, labels.WriteLabelCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"region_id", "region_name", "region_acronym"}, records[0])
	assert.Equal(t, []string{"5", "Region A", "A"}, records[1])
	assert.Equal(t, []string{"9", "Remapped_123456", "Remapped_123456"}, records[2])
}

func TestWriteFragmentCSV(t *testing.T) {
	fragments := []models.FragmentRecord{
		{RegionID: 5, RegionName: "Region A", FragmentIndex: 1, SizeVoxels: 120, Removed: false},
		{RegionID: 5, RegionName: "Region A", FragmentIndex: 2, SizeVoxels: 3, Removed: true},
	}

	var buf bytes.Buffer
	require.NoError(t, labels.WriteFragmentCSV(&buf, fragments))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t,
		[]string{"region_id", "region_name", "fragment_index", "fragment_size_voxels", "removed"},
		records[0])
	assert.Equal(t, []string{"5", "Region A", "1", "120", "false"}, records[1])
	assert.Equal(t, []string{"5", "Region A", "2", "3", "true"}, records[2])
}
