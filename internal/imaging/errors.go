package imaging

import "errors"

// Error kinds shared by every package of the watermark engine. Callers match
// them with errors.Is. Input and parameter errors wrap one of these with
// context; write failures wrap the OS error.
var (
	// ErrInput reports a missing or undecodable image or array file.
	ErrInput = errors.New("invalid input")

	// ErrDimension reports a degenerate zero-area base image. Operations
	// that return it still return a usable (empty) result.
	ErrDimension = errors.New("zero-area image")

	// ErrConfig reports a missing or out-of-range parameter. It is always
	// raised before any pixel work starts.
	ErrConfig = errors.New("invalid configuration")

	// ErrNonConvergence reports that the luminance solver stopped at its
	// iteration cap or could not reach the requested target. The value
	// returned alongside it is the best estimate and is safe to use.
	ErrNonConvergence = errors.New("solver did not converge")
)
