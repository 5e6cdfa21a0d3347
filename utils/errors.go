package utils

import "errors"

// Error kinds shared by all adapters. Adapters wrap these with detail using
// fmt.Errorf("%w: ...") so callers can test with errors.Is.
var (
	ErrUnsupportedDimensionality = errors.New("unsupported dimensionality")
	ErrShapeMismatch             = errors.New("shape mismatch")
	ErrMissingRequiredField      = errors.New("missing required field")
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrIOFailure                 = errors.New("io failure")

	// ErrUnmappedColumn and ErrTrackOrder refine ErrInvalidParameter and are
	// always wrapped together with it.
	//
	// ErrUnmappedColumn is only returned under the "error" unmapped-column policy.
	ErrUnmappedColumn = errors.New("column has no field in target format")
	// ErrTrackOrder reports a track containing the same frame more than once.
	ErrTrackOrder = errors.New("frame indices within a track must be strictly increasing")
)
