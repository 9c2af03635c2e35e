package atlas

import "errors"

var (
	// ErrUnknownRegion is returned when an acronym has no entry in the
	// hierarchy. It is fatal for the whole pipeline run: no partial
	// output is valid once a rule references a region that does not exist.
	ErrUnknownRegion = errors.New("atlas: unknown region")

	// ErrInvalidDepth is returned when a depth-limited traversal is
	// requested with a depth below 1.
	ErrInvalidDepth = errors.New("atlas: depth must be at least 1")

	// ErrDuplicateRegion is returned when the hierarchy definition
	// contains two regions with the same acronym or the same ID.
	ErrDuplicateRegion = errors.New("atlas: duplicate region")

	// ErrNoRoot is returned when the hierarchy definition has no root
	// node or the parent links do not form a single rooted tree.
	ErrNoRoot = errors.New("atlas: hierarchy is not a single rooted tree")
)
