package toggle

import "errors"

// Sentinel errors for the evaluation pipeline. The engine never lets these
// reach a caller in production mode: an unknown toggle evaluates to inactive,
// a store failure falls back to the universe default, and a cache failure is
// handled as a miss.
var (
	// ErrUnknownToggle marks a name that is missing from the configured
	// universe. In strict mode this is a programming error and panics instead.
	ErrUnknownToggle = errors.New("toggle: unknown toggle name")

	// ErrInvalidPercent marks a percentage outside [0,100]. Rejected at
	// configuration-load time.
	ErrInvalidPercent = errors.New("toggle: percent must be between 0 and 100")
)
