// Package labels builds the tabular metadata for a processed mask: the
// final ID to name/acronym mapping and the per-fragment audit table, plus
// their CSV serialization.
package labels

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
	"brainmask3d/pkg/remap"
)

// Mapping resolves every distinct nonzero ID in the final mask to its
// anatomical name and acronym, one row per ID, ordered by ID. IDs the
// hierarchy knows are resolved directly; remapped IDs are resolved
// through the reverse table first. Two distinct placeholder forms mark
// the failure cases: Remapped_<old> when a remapped ID's original is
// unknown to the hierarchy, Unknown_<id> when an ID was never remapped
// and has no hierarchy entry.
func Mapping(v *models.Volume, a *atlas.Atlas, table *remap.Table) []models.LabelRow {
	var rows []models.LabelRow
	for _, id := range v.DistinctLabels() {
		rows = append(rows, resolve(id, a, table))
	}
	return rows
}

func resolve(id uint32, a *atlas.Atlas, table *remap.Table) models.LabelRow {
	// A remapped ID resolves through the reverse table before the
	// hierarchy: its final value may coincide with an atlas ID that
	// simply never appeared in the mask.
	if old, ok := table.Original(id); ok {
		if name, acronym, found := a.Lookup(old); found {
			return models.LabelRow{ID: id, Name: name, Acronym: acronym}
		}
		placeholder := fmt.Sprintf("Remapped_%d", old)
		return models.LabelRow{ID: id, Name: placeholder, Acronym: placeholder}
	}
	if name, acronym, ok := a.Lookup(id); ok {
		return models.LabelRow{ID: id, Name: name, Acronym: acronym}
	}
	placeholder := fmt.Sprintf("Unknown_%d", id)
	return models.LabelRow{ID: id, Name: placeholder, Acronym: placeholder}
}

// LabelColumns is the column order of the label mapping CSV.
var LabelColumns = []string{"region_id", "region_name", "region_acronym"}

// FragmentColumns is the column order of the fragment CSV.
var FragmentColumns = []string{"region_id", "region_name", "fragment_index", "fragment_size_voxels", "removed"}

// WriteLabelCSV writes the label mapping with a header row.
func WriteLabelCSV(w io.Writer, rows []models.LabelRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LabelColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.ID), 10),
			row.Name,
			row.Acronym,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFragmentCSV writes the fragment audit table with a header row.
// Kept and removed fragments both appear; the table is the full audit
// trail, not just the removals.
func WriteFragmentCSV(w io.Writer, records []models.FragmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FragmentColumns); err != nil {
		return err
	}
	for _, r := range records {
		record := []string{
			strconv.FormatUint(uint64(r.RegionID), 10),
			r.RegionName,
			strconv.Itoa(r.FragmentIndex),
			strconv.Itoa(r.SizeVoxels),
			strconv.FormatBool(r.Removed),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
