package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
	"brainmask3d/pkg/fragments"
	"brainmask3d/pkg/pipeline"
	"brainmask3d/pkg/remap"
)

func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()
	a, err := atlas.New([]atlas.Region{
		{ID: 997, Acronym: "root", Name: "root"},
		{ID: 8, Acronym: "grey", Name: "Basic cell groups and regions", ParentAcronym: "root"},
		{ID: 315, Acronym: "Isocortex", Name: "Isocortex", ParentAcronym: "grey"},
		{ID: 500, Acronym: "MO", Name: "Somatomotor areas", ParentAcronym: "Isocortex"},
		{ID: 320, Acronym: "MOp", Name: "Primary motor area", ParentAcronym: "MO"},
		{ID: 321, Acronym: "MOs", Name: "Secondary motor area", ParentAcronym: "MO"},
		{ID: 549, Acronym: "TH", Name: "Thalamus", ParentAcronym: "grey"},
		{ID: 864, Acronym: "DORsm", Name: "Thalamus, sensory-motor related", ParentAcronym: "TH"},
		{ID: 1009, Acronym: "fiber tracts", Name: "fiber tracts", ParentAcronym: "root"},
		{ID: 776, Acronym: "cc", Name: "corpus callosum", ParentAcronym: "fiber tracts"},
	})
	require.NoError(t, err)
	return a
}

func testParams() pipeline.Params {
	return pipeline.Params{
		FlattenRegions:  []string{"TH"},
		FlattenAtDepth:  []pipeline.DepthRule{{Region: "Isocortex", Depth: 1}},
		ExcludeRegions:  []string{"fiber tracts", "root"},
		MinFragmentSize: 2,
		Connectivity:    fragments.ConnFaces,
		MaxLabelValue:   100,
		Workers:         1,
	}
}

func TestProcessEndToEnd(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(12, 1, 1)
	copy(input.Data, []uint32{997, 1009, 776, 549, 864, 315, 500, 320, 320, 321, 0, 5})

	p := pipeline.NewProcessor(testParams(), a)
	result, err := p.Process(input)
	require.NoError(t, err)

	// Merging: 864 folds into TH, MOp/MOs fold into MO, fiber tracts
	// and root are excluded by their own IDs; cc survives exclusion
	// because it was never flattened into fiber tracts. Filtering then
	// drops the 1-voxel fragments (cc, Isocortex, the unknown ID 5),
	// and remapping moves the surviving over-range IDs 500 and 549 to
	// the lowest free candidates.
	assert.Equal(t, []uint32{0, 0, 0, 2, 2, 0, 1, 1, 1, 1, 0, 0}, result.Adjusted.Data)

	require.Len(t, result.Labels, 2)
	assert.Equal(t, models.LabelRow{ID: 1, Name: "Somatomotor areas", Acronym: "MO"}, result.Labels[0])
	assert.Equal(t, models.LabelRow{ID: 2, Name: "Thalamus", Acronym: "TH"}, result.Labels[1])

	// Whole-brain mask reflects the raw input, excluded regions included.
	wantBrain := make([]uint32, 12)
	for i, id := range input.Data {
		if id != 0 {
			wantBrain[i] = 1
		}
	}
	assert.Equal(t, wantBrain, result.WholeBrain.Data)

	old, ok := result.Remap.Original(1)
	require.True(t, ok)
	assert.Equal(t, uint32(500), old)

	assert.Equal(t, []uint32{997, 1009, 776, 549, 864, 315, 500, 320, 320, 321, 0, 5},
		input.Data, "the input volume is never modified")
}

func TestProcessFragmentAudit(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(12, 1, 1)
	copy(input.Data, []uint32{997, 1009, 776, 549, 864, 315, 500, 320, 320, 321, 0, 5})

	result, err := pipeline.NewProcessor(testParams(), a).Process(input)
	require.NoError(t, err)

	// One record per component of the simplified mask, ordered by
	// region ID: 5, 315, 500, 549, 776.
	require.Len(t, result.Fragments, 5)
	wantRegions := []uint32{5, 315, 500, 549, 776}
	wantRemoved := []bool{true, true, false, false, true}
	var total int
	for i, f := range result.Fragments {
		assert.Equal(t, wantRegions[i], f.RegionID)
		assert.Equal(t, wantRemoved[i], f.Removed)
		assert.Equal(t, 1, f.FragmentIndex)
		total += f.SizeVoxels
	}
	assert.Equal(t, 9, total, "fragment sizes cover every simplified foreground voxel")

	assert.Equal(t, "Unknown ID 5", result.Fragments[0].RegionName)
}

func TestProcessStats(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(12, 1, 1)
	copy(input.Data, []uint32{997, 1009, 776, 549, 864, 315, 500, 320, 320, 321, 0, 5})

	result, err := pipeline.NewProcessor(testParams(), a).Process(input)
	require.NoError(t, err)

	stats := result.Stats
	assert.Equal(t, 11, stats.ForegroundIn)
	assert.Equal(t, 6, stats.ForegroundOut)
	assert.Equal(t, 10, stats.RegionsIn)
	assert.Equal(t, 2, stats.RegionsOut)
	assert.Equal(t, 2, stats.FragmentsKept)
	assert.Equal(t, 3, stats.FragmentsRemoved)
	assert.Equal(t, 2, stats.RemappedIDs)
	assert.InDelta(t, 1.8, stats.FragmentMeanSize, 1e-9)
	assert.LessOrEqual(t, stats.ForegroundOut, stats.ForegroundIn,
		"the pipeline never increases foreground volume")
}

func TestProcessUnknownRegionAborts(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(2, 1, 1)

	params := testParams()
	params.FlattenRegions = append(params.FlattenRegions, "no-such-region")

	_, err := pipeline.NewProcessor(params, a).Process(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, atlas.ErrUnknownRegion)
	assert.Contains(t, err.Error(), "no-such-region", "the offending identifier must be reported")
	assert.Contains(t, err.Error(), "region merging", "the failing stage must be reported")
}

func TestProcessRemapExhaustion(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(4, 1, 1)
	copy(input.Data, []uint32{549, 549, 500, 500})

	params := testParams()
	params.MaxLabelValue = 1 // two surviving over-range IDs, one slot

	_, err := pipeline.NewProcessor(params, a).Process(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, remap.ErrExhausted)
}

func TestProcessInvalidDepthAborts(t *testing.T) {
	a := testAtlas(t)
	input := models.NewVolume(2, 1, 1)

	params := testParams()
	params.FlattenAtDepth = []pipeline.DepthRule{{Region: "Isocortex", Depth: 0}}

	_, err := pipeline.NewProcessor(params, a).Process(input)
	assert.ErrorIs(t, err, atlas.ErrInvalidDepth)
}
