package clrmeta

import "errors"

// Common metadata errors.
var (
	// ErrNotPE is returned when the file is not a PE image.
	ErrNotPE = errors.New("not a PE image")

	// ErrNotManaged is returned when a PE image carries no CLI header.
	ErrNotManaged = errors.New("not a managed assembly")

	// ErrBadSignature is returned when the metadata root signature is not BSJB.
	ErrBadSignature = errors.New("invalid metadata signature")

	// ErrMissingStream is returned when a required metadata stream is absent.
	ErrMissingStream = errors.New("metadata stream missing")

	// ErrTruncated is returned when a header or stream runs past the end of its data.
	ErrTruncated = errors.New("metadata truncated")
)
