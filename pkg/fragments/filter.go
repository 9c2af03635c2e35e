// Package fragments finds the spatially connected components of every
// region in a labeled volume and removes the ones below a minimum voxel
// count. Thin structures often survive registration as clouds of tiny
// disconnected specks; dropping them keeps downstream segmentation from
// producing hundreds of meaningless objects.
package fragments

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
)

// Options configures fragment filtering.
type Options struct {
	// MinSize is the minimum voxel count a component needs to survive.
	// Components strictly smaller are zeroed.
	MinSize int

	// Conn selects the adjacency rule. The zero value is invalid;
	// use ConnFaces unless there is a reason not to.
	Conn Connectivity

	// Workers bounds the number of regions analyzed concurrently.
	// Zero or negative means one worker per CPU.
	Workers int
}

// regionResult carries one region's analysis back to the collector.
type regionResult struct {
	id      uint32
	records []models.FragmentRecord
	remove  []int
}

// Filter analyzes each distinct nonzero region ID in the volume, zeroes
// every connected component smaller than opts.MinSize, and returns the
// cleaned copy together with one FragmentRecord per component, kept or
// removed. Records are ordered by region ID, then by component index.
//
// Regions are disjoint by construction, so their analyses run on a
// bounded worker pool; the write-back to the output volume is serialized
// in the collector.
func Filter(v *models.Volume, a *atlas.Atlas, opts Options) (*models.Volume, []models.FragmentRecord, error) {
	if err := opts.Conn.Validate(); err != nil {
		return nil, nil, err
	}

	out := v.Clone()
	ids := v.DistinctLabels()
	if len(ids) == 0 {
		return out, nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	offsets := opts.Conn.Offsets()
	jobs := make(chan uint32)
	results := make(chan regionResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				name, ok := a.NameOf(id)
				if !ok {
					name = fmt.Sprintf("Unknown ID %d", id)
				}
				records, remove := analyzeRegion(v, id, name, offsets, opts.MinSize)
				results <- regionResult{id: id, records: records, remove: remove}
			}
		}()
	}

	go func() {
		for _, id := range ids {
			jobs <- id
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	byRegion := make(map[uint32]regionResult, len(ids))
	for res := range results {
		// Serialized write-back: only this loop mutates the output.
		for _, idx := range res.remove {
			out.Data[idx] = 0
		}
		byRegion[res.id] = res
	}

	var records []models.FragmentRecord
	for _, id := range ids {
		records = append(records, byRegion[id].records...)
	}
	return out, records, nil
}

// analyzeRegion partitions one region's voxels into connected components
// by breadth-first search. Components are numbered from 1 in row-major
// seed order, so the numbering is stable for a fixed input volume.
func analyzeRegion(v *models.Volume, id uint32, name string, offsets [][3]int, minSize int) ([]models.FragmentRecord, []int) {
	seen := make([]bool, len(v.Data))
	var records []models.FragmentRecord
	var remove []int
	index := 0

	for start, val := range v.Data {
		if val != id || seen[start] {
			continue
		}
		comp := collectComponent(v, id, start, seen, offsets)
		index++
		removed := len(comp) < minSize
		if removed {
			remove = append(remove, comp...)
		}
		records = append(records, models.FragmentRecord{
			RegionID:      id,
			RegionName:    name,
			FragmentIndex: index,
			SizeVoxels:    len(comp),
			Removed:       removed,
		})
	}
	return records, remove
}

// collectComponent gathers the flat indices of one connected component
// seeded at start.
func collectComponent(v *models.Volume, id uint32, start int, seen []bool, offsets [][3]int) []int {
	queue := []int{start}
	seen[start] = true

	for qi := 0; qi < len(queue); qi++ {
		u := queue[qi]
		ux, uy, uz := v.Coordinate(u)
		for _, d := range offsets {
			nx, ny, nz := ux+d[0], uy+d[1], uz+d[2]
			if !v.InBounds(nx, ny, nz) {
				continue
			}
			ni := v.Index(nx, ny, nz)
			if seen[ni] || v.Data[ni] != id {
				continue
			}
			seen[ni] = true
			queue = append(queue, ni)
		}
	}
	sort.Ints(queue)
	return queue
}
