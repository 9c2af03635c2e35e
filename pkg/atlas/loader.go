package atlas

import (
	"encoding/json"
	"fmt"
	"os"
)

// structureEntry matches one element of a BrainGlobe-style structures.json
// file. StructureIDPath lists the IDs from the root down to the region
// itself, so the parent is the second-to-last element.
type structureEntry struct {
	ID              uint32   `json:"id"`
	Acronym         string   `json:"acronym"`
	Name            string   `json:"name"`
	StructureIDPath []uint32 `json:"structure_id_path"`
}

// LoadStructures reads a structures.json hierarchy file and builds the
// Atlas. The file is the standard BrainGlobe atlas structure list.
func LoadStructures(path string) (*Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading structures file: %w", err)
	}
	return ParseStructures(data)
}

// ParseStructures builds an Atlas from the raw contents of a
// structures.json file.
func ParseStructures(data []byte) (*Atlas, error) {
	var entries []structureEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing structures file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("parsing structures file: %w", ErrNoRoot)
	}

	acronymByID := make(map[uint32]string, len(entries))
	for _, e := range entries {
		acronymByID[e.ID] = e.Acronym
	}

	regions := make([]Region, 0, len(entries))
	for _, e := range entries {
		r := Region{ID: e.ID, Acronym: e.Acronym, Name: e.Name}
		if n := len(e.StructureIDPath); n >= 2 {
			parentID := e.StructureIDPath[n-2]
			parent, ok := acronymByID[parentID]
			if !ok {
				return nil, fmt.Errorf("%w: id %d (parent of %q)", ErrUnknownRegion, parentID, e.Acronym)
			}
			r.ParentAcronym = parent
		}
		regions = append(regions, r)
	}
	return New(regions)
}
