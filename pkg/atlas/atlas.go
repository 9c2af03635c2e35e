// Package atlas wraps an anatomical region hierarchy and answers the
// lookups the mask pipeline needs: acronym to ID, all descendants of a
// region, and the descendants sitting exactly at a given depth below it.
//
// The hierarchy is held as a node-index arena: a flat node table with
// parent and child links stored as indices into that table. This keeps
// traversal allocation-free and makes test fixtures trivial to build
// without the source ontology files.
package atlas

import (
	"fmt"
)

// Region describes one node of the hierarchy as supplied by the caller.
// ParentAcronym is empty for the root region.
type Region struct {
	ID            uint32
	Acronym       string
	Name          string
	ParentAcronym string
}

type node struct {
	id       uint32
	acronym  string
	name     string
	parent   int // index into nodes, -1 for the root
	children []int
}

// Atlas is an immutable rooted tree of anatomical regions.
type Atlas struct {
	nodes     []node
	byAcronym map[string]int
	byID      map[uint32]int
	root      int
}

// New builds an Atlas from a flat region list. The list must contain
// exactly one region with an empty ParentAcronym (the root), unique IDs
// and unique acronyms, and every ParentAcronym must name a listed region.
func New(regions []Region) (*Atlas, error) {
	a := &Atlas{
		nodes:     make([]node, 0, len(regions)),
		byAcronym: make(map[string]int, len(regions)),
		byID:      make(map[uint32]int, len(regions)),
		root:      -1,
	}

	for _, r := range regions {
		if _, ok := a.byAcronym[r.Acronym]; ok {
			return nil, fmt.Errorf("%w: acronym %q", ErrDuplicateRegion, r.Acronym)
		}
		if _, ok := a.byID[r.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicateRegion, r.ID)
		}
		idx := len(a.nodes)
		a.nodes = append(a.nodes, node{id: r.ID, acronym: r.Acronym, name: r.Name, parent: -1})
		a.byAcronym[r.Acronym] = idx
		a.byID[r.ID] = idx
	}

	for i, r := range regions {
		if r.ParentAcronym == "" {
			if a.root >= 0 {
				return nil, fmt.Errorf("%w: multiple roots (%q and %q)",
					ErrNoRoot, a.nodes[a.root].acronym, r.Acronym)
			}
			a.root = i
			continue
		}
		p, ok := a.byAcronym[r.ParentAcronym]
		if !ok {
			return nil, fmt.Errorf("%w: parent %q of %q", ErrUnknownRegion, r.ParentAcronym, r.Acronym)
		}
		a.nodes[i].parent = p
		a.nodes[p].children = append(a.nodes[p].children, i)
	}

	if a.root < 0 {
		return nil, ErrNoRoot
	}
	return a, nil
}

// NumRegions returns the number of regions in the hierarchy.
func (a *Atlas) NumRegions() int {
	return len(a.nodes)
}

// Root returns the acronym of the root region.
func (a *Atlas) Root() string {
	return a.nodes[a.root].acronym
}

// IDOf resolves an acronym to its region ID.
func (a *Atlas) IDOf(acronym string) (uint32, error) {
	idx, ok := a.byAcronym[acronym]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegion, acronym)
	}
	return a.nodes[idx].id, nil
}

// Lookup resolves a region ID to its name and acronym. The second return
// value is false when the ID is not part of the hierarchy.
func (a *Atlas) Lookup(id uint32) (name, acronym string, ok bool) {
	idx, ok := a.byID[id]
	if !ok {
		return "", "", false
	}
	return a.nodes[idx].name, a.nodes[idx].acronym, true
}

// NameOf resolves a region ID to its name. The second return value is
// false when the ID is not part of the hierarchy.
func (a *Atlas) NameOf(id uint32) (string, bool) {
	name, _, ok := a.Lookup(id)
	return name, ok
}

// Descendants returns the acronyms of every region transitively reachable
// through child links from the given region, excluding the region itself.
// The result is a set; its order carries no meaning.
func (a *Atlas) Descendants(acronym string) ([]string, error) {
	idx, ok := a.byAcronym[acronym]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, acronym)
	}
	var out []string
	a.walk(idx, func(n int) {
		if n != idx {
			out = append(out, a.nodes[n].acronym)
		}
	})
	return out, nil
}

// DescendantsAtDepth returns the acronyms of the regions located exactly
// depth parent-hops below the given region. Depth must be at least 1;
// depth 0 is undefined and fails with ErrInvalidDepth before any traversal.
func (a *Atlas) DescendantsAtDepth(acronym string, depth int) ([]string, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}
	idx, ok := a.byAcronym[acronym]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, acronym)
	}

	var out []string
	var recurse func(n, level int)
	recurse = func(n, level int) {
		for _, c := range a.nodes[n].children {
			if level == depth {
				out = append(out, a.nodes[c].acronym)
			} else {
				recurse(c, level+1)
			}
		}
	}
	recurse(idx, 1)
	return out, nil
}

// walk visits the subtree rooted at idx in depth-first order, idx included.
func (a *Atlas) walk(idx int, visit func(int)) {
	visit(idx)
	for _, c := range a.nodes[idx].children {
		a.walk(c, visit)
	}
}
