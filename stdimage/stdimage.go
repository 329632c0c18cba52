// Package stdimage - adapters between go-imgbuf containers and the standard
// library image types.
//
// These are the surface external codec libraries speak through: decoding
// produces a typed image via the validating constructors, encoding consumes
// read-only plane access plus dimensions. The adapters construct results
// only through the core constructors, so the size and positivity invariants
// hold on every path.
package stdimage

import (
	"image"
	"image/draw"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/images"
)

// rgbaPixels reinterprets a tightly packed RGBA byte plane as pixel tuples
// without copying.
func rgbaPixels(pix []byte, n int) [][4]uint8 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*[4]uint8)(unsafe.Pointer(&pix[0])), n)
}

// FromRGBA copies an *image.RGBA into an owned interleaved RGBA image. The
// stdlib value keeps its own storage; mutating one never affects the other.
func FromRGBA(src *image.RGBA) (*images.Image[[4]uint8], error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(images.ErrZeroDimension, "%dx%d", width, height)
	}

	pixels := make([][4]uint8, width*height)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := src.Pix[src.PixOffset(bounds.Min.X, y):]
		for x := 0; x < width; x++ {
			copy(pixels[i][:], row[x*4:x*4+4])
			i++
		}
	}
	return images.New([][][4]uint8{pixels}, width, height)
}

// RefRGBA wraps an *image.RGBA as a zero-copy read-only view. The stride
// must be exactly 4*width; call FromRGBA for sub-images or padded strides.
func RefRGBA(src *image.RGBA) (*images.ImageRef[[4]uint8], error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if src.Stride != width*4 || bounds.Min != (image.Point{}) {
		return nil, errors.Wrapf(images.ErrSizeMismatch,
			"stride %d with bounds %v cannot be viewed without copying", src.Stride, bounds)
	}
	pixels := rgbaPixels(src.Pix, width*height)
	return images.NewRef([][][4]uint8{pixels}, width, height)
}

// ToRGBA copies an interleaved RGBA image into a fresh *image.RGBA.
func ToRGBA(img *images.Image[[4]uint8]) (*image.RGBA, error) {
	if img.Channels() != 1 {
		return nil, errors.Wrapf(images.ErrChannelCountMismatch,
			"interleaved RGBA needs a single channel, have %d", img.Channels())
	}
	width, height := img.Width(), img.Height()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	plane := img.Plane(0)
	for i, px := range plane {
		copy(dst.Pix[i*4:i*4+4], px[:])
	}
	return dst, nil
}

// FromImage draws an arbitrary image.Image into RGBA and wraps the result.
func FromImage(src image.Image) (*images.Image[[4]uint8], error) {
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return FromRGBA(rgba)
}

// FromGray copies an *image.Gray into an owned single-channel image.
func FromGray(src *image.Gray) (*images.Image[uint8], error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(images.ErrZeroDimension, "%dx%d", width, height)
	}
	plane := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		copy(plane[y*width:(y+1)*width], row[:width])
	}
	return images.New([][]uint8{plane}, width, height)
}

// ToGray copies a single-channel uint8 image into a fresh *image.Gray.
func ToGray(img *images.Image[uint8]) (*image.Gray, error) {
	if img.Channels() != 1 {
		return nil, errors.Wrapf(images.ErrChannelCountMismatch,
			"grayscale needs a single channel, have %d", img.Channels())
	}
	width, height := img.Width(), img.Height()
	dst := image.NewGray(image.Rect(0, 0, width, height))
	copy(dst.Pix, img.Plane(0))
	return dst, nil
}
