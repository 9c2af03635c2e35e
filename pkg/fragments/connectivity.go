package fragments

import (
	"errors"
	"fmt"
)

// ErrInvalidConnectivity is returned when a connectivity outside 1..3 is
// requested.
var ErrInvalidConnectivity = errors.New("fragments: connectivity must be 1, 2 or 3")

// Connectivity selects which neighbors count as spatially connected,
// following the rank-3 structuring element convention: 1 connects voxels
// sharing a face (6 neighbors), 2 adds shared edges (18 neighbors), and
// 3 adds shared corners (26 neighbors).
//
// Face connectivity is the default and recommended policy for anatomical
// masks; more permissive adjacency joins components that downstream
// segmentation tools treat as separate objects.
type Connectivity int

const (
	// ConnFaces connects the 6 face-adjacent neighbors.
	ConnFaces Connectivity = 1

	// ConnFacesEdges connects the 18 face- and edge-adjacent neighbors.
	ConnFacesEdges Connectivity = 2

	// ConnFull connects all 26 neighbors.
	ConnFull Connectivity = 3
)

// Validate reports whether the connectivity is one of the supported ranks.
func (c Connectivity) Validate() error {
	if c < ConnFaces || c > ConnFull {
		return fmt.Errorf("%w: got %d", ErrInvalidConnectivity, int(c))
	}
	return nil
}

// Offsets returns the neighbor offsets for this connectivity: every
// (dx, dy, dz) in {-1, 0, 1}^3 whose Manhattan distance from the origin
// is between 1 and the connectivity rank.
func (c Connectivity) Offsets() [][3]int {
	var offsets [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				dist := abs(dx) + abs(dy) + abs(dz)
				if dist >= 1 && dist <= int(c) {
					offsets = append(offsets, [3]int{dx, dy, dz})
				}
			}
		}
	}
	return offsets
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
