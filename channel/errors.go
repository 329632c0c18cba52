package channel

import "github.com/pkg/errors"

var (
	// ErrNotMutable is returned when mutation is requested on a read-only
	// borrow. A read-only borrow can never be upgraded by copying: the holder
	// observes the content, it does not own it.
	ErrNotMutable = errors.New("buffer is a read-only borrow")

	// ErrFormatMismatch is returned when a typed view is requested against a
	// buffer whose recorded element format differs.
	ErrFormatMismatch = errors.New("pixel format mismatch")
)
