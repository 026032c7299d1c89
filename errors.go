package geomodelgrids

import "errors"

// Error taxonomy (§7). Concrete errors wrap these sentinels with context
// via fmt.Errorf's %w verb, following the teacher's package-level sentinel
// convention rather than a bespoke error struct hierarchy.
var (
	// ErrInvalidArgument covers malformed CRS strings, non-positive
	// resolutions, and empty coordinate arrays at construction, and also
	// calls made in the wrong lifecycle state or with a mis-sized output
	// buffer.
	ErrInvalidArgument = errors.New("geomodelgrids: invalid argument")

	// ErrBadMetadata covers missing or inconsistent container
	// attributes: surface/block size mismatches, missing resolution or
	// coordinate attributes, value/unit length mismatches.
	ErrBadMetadata = errors.New("geomodelgrids: bad container metadata")

	// ErrValueNotInAnyModel is returned by QueryEngine.Initialize when a
	// requested value name is not provided by any of the query's models.
	ErrValueNotInAnyModel = errors.New("geomodelgrids: requested value not found in any model")

	// ErrIO covers container open/read failures.
	ErrIO = errors.New("geomodelgrids: container io failure")

	// ErrInconsistentUnits is returned by QueryEngine.Initialize when the
	// same requested value name resolves to different units across
	// models that both provide it.
	ErrInconsistentUnits = errors.New("geomodelgrids: inconsistent units across models for requested value")

	// errPointOutsideDomain is not returned to callers as a Go error; it
	// is surfaced through the ErrorHandler/warning status per §7's
	// propagation policy ("per-point query failures never abort the
	// call chain"). It exists so internal code has a single message to
	// route through the ErrorHandler.
	errPointOutsideDomain = errors.New("geomodelgrids: point outside domain")
)
