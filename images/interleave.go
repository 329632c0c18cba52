package images

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/channel"
	"github.com/nvr-ai/go-imgbuf/layout"
	"github.com/nvr-ai/go-imgbuf/pixel"
)

// Interleave packs an n-plane planar image of primitive P into a
// single-channel image whose element type E groups the n primitives of each
// pixel, e.g. Interleave[uint8, [3]uint8] for a 3-plane RGB image. E must be
// exactly [n]P for the image's channel count n, checked at runtime against
// the format descriptors. The transform always allocates a new buffer; it
// never preserves zero-copy.
func Interleave[P pixel.Primitive, E pixel.Pixel](img *Image[P]) (*Image[E], error) {
	n := img.Channels()
	want := pixel.FormatOf[P]().Grouped(n)
	if got := pixel.FormatOf[E](); got != want {
		return nil, errors.Wrapf(channel.ErrFormatMismatch,
			"interleaving %d planes of %s needs element %s, got %s",
			n, pixel.FormatOf[P](), want, got)
	}

	planes := make([][]byte, n)
	for i := 0; i < n; i++ {
		planes[i] = img.channels[i].Bytes()
	}
	packed, err := layout.PlanarToInterleaved(planes, img.width, img.height, pixel.FormatOf[P]().Size)
	if err != nil {
		return nil, err
	}
	ch, err := channel.AdoptTyped[E](packed, nil)
	if err != nil {
		return nil, err
	}
	return fromChannels([]channel.Typed[E]{ch}, img.width, img.height), nil
}

// Deinterleave splits a single-channel image whose element type E is an
// interleaved group [n]P into its n-plane planar counterpart, the inverse of
// Interleave. Always allocates.
func Deinterleave[E pixel.Pixel, P pixel.Primitive](img *Image[E]) (*Image[P], error) {
	if img.Channels() != 1 {
		return nil, errors.Wrapf(ErrChannelCountMismatch,
			"deinterleave expects a single interleaved channel, have %d", img.Channels())
	}
	elem := pixel.FormatOf[E]()
	prim := pixel.FormatOf[P]()
	if elem.Size%prim.Size != 0 {
		return nil, errors.Wrapf(channel.ErrFormatMismatch,
			"%s does not divide into %s samples", elem, prim)
	}
	n := elem.Size / prim.Size
	if prim.Grouped(n) != elem {
		return nil, errors.Wrapf(channel.ErrFormatMismatch,
			"%s is not %d interleaved %s samples", elem, n, prim)
	}

	planes, err := layout.InterleavedToPlanar(img.channels[0].Bytes(), img.width, img.height, n, prim.Size)
	if err != nil {
		return nil, err
	}
	chans := make([]channel.Typed[P], n)
	for i, plane := range planes {
		ch, err := channel.AdoptTyped[P](plane, nil)
		if err != nil {
			return nil, err
		}
		chans[i] = ch
	}
	return fromChannels(chans, img.width, img.height), nil
}
