package object

import "errors"

// Error kinds surfaced by the layout model and the optimizer. These are
// sentinel values so callers can classify failures with errors.Is while the
// user-visible message stays with the diagnostic record.
var (
	// ErrCircularReference indicates a set of layout-dependent values that
	// mutually depend in a way the fixpoint cannot resolve.
	ErrCircularReference = errors.New("circular reference detected")

	// ErrComplexSecondaryExpansion indicates a value that became
	// cross-section or non-integer was re-entered into the expansion loop.
	ErrComplexSecondaryExpansion = errors.New("secondary expansion of an external/complex value")

	// ErrOffsetRegression indicates an org-style bytecode would have to move
	// to a smaller offset.
	ErrOffsetRegression = errors.New("org/align went to negative offset")
)
