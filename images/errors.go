package images

import "github.com/pkg/errors"

var (
	// ErrZeroDimension is returned when a width or height is not strictly
	// positive. Dimensions are never silently clamped; a degenerate empty
	// image must not propagate.
	ErrZeroDimension = errors.New("image dimensions must be strictly positive")

	// ErrSizeMismatch is returned when a supplied buffer's length disagrees
	// with width*height elements, or when an image has no channels at all.
	ErrSizeMismatch = errors.New("buffer length disagrees with image dimensions")

	// ErrChannelCountMismatch is returned when a typed reconstruction expects
	// a different number of channels than the erased value holds.
	ErrChannelCountMismatch = errors.New("channel count mismatch")

	// ErrAllocationFailed is returned when a requested image size cannot be
	// represented. Fatal to the single operation only.
	ErrAllocationFailed = errors.New("image size not representable")
)
