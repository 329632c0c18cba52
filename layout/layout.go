// Package layout - reshaping raw pixel buffers between interleaved and
// planar channel layouts.
//
// Interleaved layout stores all channels of a pixel contiguously, repeated
// per pixel (stride channels*elemSize). Planar layout stores each channel in
// its own contiguous plane. The two transforms are exact inverses of each
// other: composing them in either order reproduces the input bit for bit.
// Both always allocate their output; an in-place transform is not possible
// for more than one channel without an auxiliary buffer.
package layout

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrZeroDimension is returned when a width, height, channel count or
	// element size is not strictly positive.
	ErrZeroDimension = errors.New("layout geometry must be strictly positive")

	// ErrSizeMismatch is returned when a supplied buffer length disagrees
	// with the requested geometry.
	ErrSizeMismatch = errors.New("buffer length disagrees with geometry")

	// ErrAllocationFailed is returned when the output size cannot be
	// represented. Fatal to the single operation only.
	ErrAllocationFailed = errors.New("output size not representable")
)

// totalSize validates the geometry and returns the total byte size
// width*height*channels*elemSize, guarding every multiplication against
// overflow.
func totalSize(width, height, channels, elemSize int) (int, error) {
	if width < 1 || height < 1 || channels < 1 || elemSize < 1 {
		return 0, errors.Wrapf(ErrZeroDimension,
			"%dx%d, %d channels, %d byte elements", width, height, channels, elemSize)
	}
	total := width
	for _, f := range []int{height, channels, elemSize} {
		if total > math.MaxInt/f {
			return 0, errors.Wrapf(ErrAllocationFailed,
				"%dx%d with %d channels of %d byte elements overflows", width, height, channels, elemSize)
		}
		total *= f
	}
	return total, nil
}

// InterleavedToPlanar splits one interleaved buffer into channels separate
// planes. For pixel p and channel c, plane c at offset p*elemSize receives
// the bytes at interleaved offset (p*channels+c)*elemSize. Runs in
// O(width*height*channels) and allocates exactly len(buf) output bytes.
func InterleavedToPlanar(buf []byte, width, height, channels, elemSize int) ([][]byte, error) {
	total, err := totalSize(width, height, channels, elemSize)
	if err != nil {
		return nil, err
	}
	if len(buf) != total {
		return nil, errors.Wrapf(ErrSizeMismatch, "have %d bytes, want %d", len(buf), total)
	}

	pixels := width * height
	planeLen := pixels * elemSize
	backing := make([]byte, total)
	planes := make([][]byte, channels)
	for c := range planes {
		planes[c] = backing[c*planeLen : (c+1)*planeLen : (c+1)*planeLen]
	}

	if elemSize == 1 {
		for p := 0; p < pixels; p++ {
			base := p * channels
			for c := 0; c < channels; c++ {
				planes[c][p] = buf[base+c]
			}
		}
		return planes, nil
	}
	for p := 0; p < pixels; p++ {
		src := p * channels * elemSize
		dst := p * elemSize
		for c := 0; c < channels; c++ {
			copy(planes[c][dst:dst+elemSize], buf[src:src+elemSize])
			src += elemSize
		}
	}
	return planes, nil
}

// PlanarToInterleaved packs separate planes into one interleaved buffer, the
// exact inverse of InterleavedToPlanar. Every plane must hold exactly
// width*height elements of elemSize bytes.
func PlanarToInterleaved(planes [][]byte, width, height, elemSize int) ([]byte, error) {
	total, err := totalSize(width, height, len(planes), elemSize)
	if err != nil {
		return nil, err
	}
	pixels := width * height
	planeLen := pixels * elemSize
	for c, plane := range planes {
		if len(plane) != planeLen {
			return nil, errors.Wrapf(ErrSizeMismatch,
				"plane %d holds %d bytes, want %d", c, len(plane), planeLen)
		}
	}

	channels := len(planes)
	out := make([]byte, total)
	if elemSize == 1 {
		for p := 0; p < pixels; p++ {
			base := p * channels
			for c := 0; c < channels; c++ {
				out[base+c] = planes[c][p]
			}
		}
		return out, nil
	}
	for p := 0; p < pixels; p++ {
		dst := p * channels * elemSize
		src := p * elemSize
		for c := 0; c < channels; c++ {
			copy(out[dst:dst+elemSize], planes[c][src:src+elemSize])
			dst += elemSize
		}
	}
	return out, nil
}
