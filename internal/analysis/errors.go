package analysis

import "errors"

// Failure kinds surfaced by view accessors. All are local and
// synchronous; callers match them with errors.Is. A selection stage
// that merely fails its thresholds is not an error: it leaves the
// corresponding pair undefined and only a later dereference fails.
var (
	// ErrMissingMetadata indicates that the per-sample summary (or a
	// piece of it: a channel's trigger table, the jet-uncertainty
	// provider, the fit producer) is not available.
	ErrMissingMetadata = errors.New("missing sample metadata")

	// ErrMissingSignalObject indicates that a requested composite
	// needs a selected object that is undefined for this event.
	ErrMissingSignalObject = errors.New("missing signal object")

	// ErrInvalidIndex indicates a leg or pair-slot index outside {1,2}
	// or a hypothesis index outside the record.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrInvalidConfiguration indicates mutually exclusive accessor
	// options.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
