// Package pipeline sequences the mask simplification stages: whole-brain
// mask extraction, hierarchy-driven region merging, small-fragment
// removal, overflow ID remapping and metadata construction. Each stage
// fully consumes its input and produces a fresh volume before the next
// stage starts; the Processor owns the only mutable state.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
	"brainmask3d/pkg/fragments"
	"brainmask3d/pkg/labels"
	"brainmask3d/pkg/mask"
	"brainmask3d/pkg/remap"
)

// DepthRule names a region flattened while keeping one generation of
// substructure at the given depth.
type DepthRule struct {
	Region string
	Depth  int
}

// Params holds the processing configuration as plain data.
type Params struct {
	// FlattenRegions lists regions whose whole subtree is merged into
	// the region's own ID.
	FlattenRegions []string

	// FlattenAtDepth lists regions collapsed onto their descendants at
	// a fixed depth.
	FlattenAtDepth []DepthRule

	// ExcludeRegions lists regions zeroed after all flattening.
	ExcludeRegions []string

	// MinFragmentSize is the minimum voxel count a connected component
	// needs to survive filtering.
	MinFragmentSize int

	// Connectivity is the adjacency rule for component analysis.
	Connectivity fragments.Connectivity

	// MaxLabelValue is the largest ID representable by the output
	// format; larger IDs are remapped into [1, MaxLabelValue].
	MaxLabelValue uint32

	// Workers bounds the fragment filter's concurrency. Zero means one
	// worker per CPU.
	Workers int

	// Verbose enables per-stage progress output.
	Verbose bool
}

// Stats summarizes a processing run.
type Stats struct {
	// ForegroundIn and ForegroundOut count nonzero voxels before and
	// after the pipeline. Merging never increases the count and
	// exclusion and filtering only decrease it.
	ForegroundIn  int
	ForegroundOut int

	// RegionsIn and RegionsOut count distinct nonzero IDs before and
	// after the pipeline.
	RegionsIn  int
	RegionsOut int

	// FragmentsKept and FragmentsRemoved count connected components by
	// their filtering outcome.
	FragmentsKept    int
	FragmentsRemoved int

	// FragmentMeanSize and FragmentMedianSize describe the component
	// size distribution across all regions, removed fragments included.
	FragmentMeanSize   float64
	FragmentMedianSize float64

	// RemappedIDs counts the over-range IDs that were reassigned.
	RemappedIDs int

	// Per-stage wall-clock durations.
	MergeTime  time.Duration
	FilterTime time.Duration
	RemapTime  time.Duration
}

// Result carries every artifact of a processing run.
type Result struct {
	// Adjusted is the final mask; all values fit in [0, MaxLabelValue].
	Adjusted *models.Volume

	// WholeBrain is the binary {0,1} foreground mask of the raw input.
	WholeBrain *models.Volume

	// Labels maps every final nonzero ID to name and acronym.
	Labels []models.LabelRow

	// Fragments is the full per-component audit trail.
	Fragments []models.FragmentRecord

	// Remap is the bidirectional overflow ID table.
	Remap *remap.Table

	// Stats summarizes the run.
	Stats Stats
}

// Processor runs the mask simplification pipeline against one hierarchy.
type Processor struct {
	params Params
	atlas  *atlas.Atlas
}

// NewProcessor creates a processor with the provided parameters.
func NewProcessor(params Params, a *atlas.Atlas) *Processor {
	return &Processor{params: params, atlas: a}
}

// Process runs the complete pipeline on the input mask. The input volume
// is never modified; every stage works on its own copy. On error no
// partial result is returned: the stages are deterministic, so retrying
// with the same input and configuration reproduces the same failure.
func (p *Processor) Process(input *models.Volume) (*Result, error) {
	result := &Result{}
	result.Stats.ForegroundIn = input.CountNonzero()
	result.Stats.RegionsIn = len(input.DistinctLabels())

	// Step 1: Whole-brain mask from the raw input, before any merging,
	// so excluded regions still contribute to the brain outline.
	p.logf("Step 1: Creating whole-brain mask...")
	result.WholeBrain = mask.WholeBrain(input)

	// Step 2: Region merging. Flattening must precede exclusion so a
	// subtree folded into an excluded region disappears with it.
	p.logf("Step 2: Simplifying mask...")
	mergeStart := time.Now()
	simplified, err := mask.FlattenRegions(input, p.atlas, p.params.FlattenRegions)
	if err != nil {
		return nil, fmt.Errorf("region merging: %w", err)
	}
	for _, rule := range p.params.FlattenAtDepth {
		simplified, err = mask.FlattenDescendantsAtDepth(simplified, p.atlas, []string{rule.Region}, rule.Depth)
		if err != nil {
			return nil, fmt.Errorf("region merging: %w", err)
		}
	}
	simplified, err = mask.ExcludeRegions(simplified, p.atlas, p.params.ExcludeRegions)
	if err != nil {
		return nil, fmt.Errorf("region merging: %w", err)
	}
	result.Stats.MergeTime = time.Since(mergeStart)

	// Step 3: Remove small fragments.
	p.logf("Step 3: Removing fragments smaller than %d voxels...", p.params.MinFragmentSize)
	filterStart := time.Now()
	cleaned, records, err := fragments.Filter(simplified, p.atlas, fragments.Options{
		MinSize: p.params.MinFragmentSize,
		Conn:    p.params.Connectivity,
		Workers: p.params.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("fragment filtering: %w", err)
	}
	result.Fragments = records
	result.Stats.FilterTime = time.Since(filterStart)

	// Step 4: Remap IDs that exceed the output range.
	p.logf("Step 4: Remapping IDs above %d...", p.params.MaxLabelValue)
	remapStart := time.Now()
	adjusted, table, err := remap.Apply(cleaned, p.params.MaxLabelValue)
	if err != nil {
		return nil, fmt.Errorf("id remapping: %w", err)
	}
	result.Adjusted = adjusted
	result.Remap = table
	result.Stats.RemapTime = time.Since(remapStart)

	// Step 5: Build the metadata tables.
	p.logf("Step 5: Building label mapping...")
	result.Labels = labels.Mapping(adjusted, p.atlas, table)

	p.fillStats(result)
	return result, nil
}

func (p *Processor) fillStats(result *Result) {
	result.Stats.ForegroundOut = result.Adjusted.CountNonzero()
	result.Stats.RegionsOut = len(result.Adjusted.DistinctLabels())
	result.Stats.RemappedIDs = result.Remap.Len()

	if len(result.Fragments) == 0 {
		return
	}
	sizes := make([]float64, 0, len(result.Fragments))
	for _, f := range result.Fragments {
		sizes = append(sizes, float64(f.SizeVoxels))
		if f.Removed {
			result.Stats.FragmentsRemoved++
		} else {
			result.Stats.FragmentsKept++
		}
	}
	sort.Float64s(sizes)
	result.Stats.FragmentMeanSize = stat.Mean(sizes, nil)
	result.Stats.FragmentMedianSize = stat.Quantile(0.5, stat.Empirical, sizes, nil)
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.params.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
