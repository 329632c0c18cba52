// Package images - generic N-channel image containers over the channel
// ownership core.
//
// The same container logic works whether the image owns its pixel data
// (Image), observes someone else's data (ImageRef), or exclusively mutates
// someone else's data (ImageMut). Every operation's legality is a function
// of that ownership mode: mutation of a read-only view fails, release of a
// borrow is a no-op, and cloning never copies bytes unless the mode forces
// it to.
package images

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/channel"
	"github.com/nvr-ai/go-imgbuf/pixel"
)

// container is the shared layout logic behind every ownership variant:
// strictly positive dimensions and N >= 1 channels of exactly width*height
// elements each.
type container[T pixel.Pixel] struct {
	width    int
	height   int
	channels []channel.Typed[T]
}

// Image owns its channel planes exclusively.
type Image[T pixel.Pixel] struct {
	container[T]
}

// ImageRef observes caller-owned planes read-only. Mutation fails with
// channel.ErrNotMutable; releasing it never frees the caller's memory.
type ImageRef[T pixel.Pixel] struct {
	container[T]
}

// ImageMut exclusively mutates caller-owned planes in place. The caller must
// not alias the planes through any other handle while the view lives.
type ImageMut[T pixel.Pixel] struct {
	container[T]
}

// area validates the dimensions and returns width*height, guarding the
// multiplication against overflow so adversarial dimensions fail as
// ErrAllocationFailed instead of wrapping into a bogus element count.
func area(width, height int) (int, error) {
	if width < 1 || height < 1 {
		return 0, errors.Wrapf(ErrZeroDimension, "%dx%d", width, height)
	}
	if width > math.MaxInt/height {
		return 0, errors.Wrapf(ErrAllocationFailed, "%dx%d pixels overflows", width, height)
	}
	return width * height, nil
}

func validate[T pixel.Pixel](buffers [][]T, width, height int) error {
	want, err := area(width, height)
	if err != nil {
		return err
	}
	if len(buffers) == 0 {
		return errors.Wrap(ErrSizeMismatch, "image needs at least one channel")
	}
	for i, buf := range buffers {
		if len(buf) != want {
			return errors.Wrapf(ErrSizeMismatch,
				"channel %d holds %d elements, want %dx%d = %d", i, len(buf), width, height, want)
		}
	}
	return nil
}

// New validates every buffer against the dimensions and takes exclusive
// ownership of them as the image's channel planes. Fails with
// ErrZeroDimension or ErrSizeMismatch before accepting ownership.
func New[T pixel.Pixel](buffers [][]T, width, height int) (*Image[T], error) {
	if err := validate(buffers, width, height); err != nil {
		return nil, err
	}
	chans := make([]channel.Typed[T], len(buffers))
	for i, buf := range buffers {
		chans[i] = channel.NewTyped(buf)
	}
	return &Image[T]{container[T]{width: width, height: height, channels: chans}}, nil
}

// NewPlanar builds an owned image from one contiguous allocation holding all
// channel planes back to back: channel c occupies
// flat[c*width*height : (c+1)*width*height]. The planes are subslices of the
// supplied allocation, so construction never copies; ownership of the
// allocation moves to the image, and each channel still carries its own share
// count so copy-on-write isolates mutation per channel as usual. Flat is the
// inverse export.
func NewPlanar[T pixel.Pixel](flat []T, width, height, channels int) (*Image[T], error) {
	want, err := area(width, height)
	if err != nil {
		return nil, err
	}
	if channels < 1 {
		return nil, errors.Wrap(ErrSizeMismatch, "image needs at least one channel")
	}
	if want > math.MaxInt/channels {
		return nil, errors.Wrapf(ErrAllocationFailed,
			"%d channels of %dx%d pixels overflows", channels, width, height)
	}
	if len(flat) != want*channels {
		return nil, errors.Wrapf(ErrSizeMismatch,
			"flat buffer holds %d elements, want %d channels of %dx%d = %d",
			len(flat), channels, width, height, want*channels)
	}
	chans := make([]channel.Typed[T], channels)
	for c := range chans {
		chans[c] = channel.NewTyped(flat[c*want : (c+1)*want : (c+1)*want])
	}
	return &Image[T]{container[T]{width: width, height: height, channels: chans}}, nil
}

// NewRef wraps caller-owned buffers as a read-only view with the same
// validation as New. The caller keeps ownership.
func NewRef[T pixel.Pixel](buffers [][]T, width, height int) (*ImageRef[T], error) {
	if err := validate(buffers, width, height); err != nil {
		return nil, err
	}
	chans := make([]channel.Typed[T], len(buffers))
	for i, buf := range buffers {
		chans[i] = channel.NewTypedRef(buf)
	}
	return &ImageRef[T]{container[T]{width: width, height: height, channels: chans}}, nil
}

// NewMut wraps caller-owned buffers as an exclusively mutable view with the
// same validation as New. The caller must not alias the buffers while the
// view lives.
func NewMut[T pixel.Pixel](buffers [][]T, width, height int) (*ImageMut[T], error) {
	if err := validate(buffers, width, height); err != nil {
		return nil, err
	}
	chans := make([]channel.Typed[T], len(buffers))
	for i, buf := range buffers {
		chans[i] = channel.NewTypedMut(buf)
	}
	return &ImageMut[T]{container[T]{width: width, height: height, channels: chans}}, nil
}

// fromChannels assembles an owned image from already-constructed channels.
// Callers guarantee the length invariant holds.
func fromChannels[T pixel.Pixel](chans []channel.Typed[T], width, height int) *Image[T] {
	return &Image[T]{container[T]{width: width, height: height, channels: chans}}
}

// Width returns the image width in pixels.
func (c *container[T]) Width() int { return c.width }

// Height returns the image height in pixels.
func (c *container[T]) Height() int { return c.height }

// Channels returns the number of channel planes.
func (c *container[T]) Channels() int { return len(c.channels) }

// Len returns the number of elements per channel plane.
func (c *container[T]) Len() int { return c.width * c.height }

// Format returns the element format shared by all channels.
func (c *container[T]) Format() pixel.Format { return c.channels[0].Format() }

// Plane returns a read-only typed view of channel i's current elements.
func (c *container[T]) Plane(i int) []T { return c.channels[i].Pixels() }

// Planes returns read-only typed views of every channel's current elements.
func (c *container[T]) Planes() [][]T {
	out := make([][]T, len(c.channels))
	for i := range c.channels {
		out[i] = c.channels[i].Pixels()
	}
	return out
}

// Flat copies every channel plane back to back into one freshly allocated
// contiguous buffer, channel c at offset c*width*height. It is the export
// counterpart of NewPlanar and always allocates: the planes may live in
// unrelated allocations.
func (c *container[T]) Flat() []T {
	out := make([]T, len(c.channels)*c.Len())
	for i := range c.channels {
		copy(out[i*c.Len():], c.channels[i].Pixels())
	}
	return out
}

// MakeMut returns mutable views of every channel, copying shared channels
// first. Only channels that are actually shared are copied, so the backing
// addresses of the returned views may or may not equal the pre-call
// addresses; callers must not assume address stability across this call.
// Read-only views fail with channel.ErrNotMutable.
func (c *container[T]) MakeMut() ([][]T, error) {
	out := make([][]T, len(c.channels))
	for i := range c.channels {
		plane, err := c.channels[i].MakeMut()
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		out[i] = plane
	}
	return out, nil
}

// equal reports value equality: dimensions match and every channel's bytes
// match, independent of sharing mode or storage origin.
func (c *container[T]) equal(o *container[T]) bool {
	if c.width != o.width || c.height != o.height || len(c.channels) != len(o.channels) {
		return false
	}
	for i := range c.channels {
		if !bytes.Equal(c.channels[i].Bytes(), o.channels[i].Bytes()) {
			return false
		}
	}
	return true
}

// Equal reports value equality between two owned images.
func (img *Image[T]) Equal(o *Image[T]) bool { return img.equal(&o.container) }

// Clone returns a second owned handle onto the same planes. No bytes are
// copied; each channel's share count is incremented, and a later MakeMut on
// either image copies only the channels that are still shared at that point.
func (img *Image[T]) Clone() *Image[T] {
	chans := make([]channel.Typed[T], len(img.channels))
	for i := range img.channels {
		chans[i] = img.channels[i].Clone()
	}
	return fromChannels(chans, img.width, img.height)
}

// Release drops ownership of every channel. The image must not be used
// afterwards.
func (img *Image[T]) Release() {
	for i := range img.channels {
		img.channels[i].Release()
	}
	img.channels = nil
}

// ToOwned copies the referenced planes into a new owned image.
func (ref *ImageRef[T]) ToOwned() *Image[T] {
	return copyToOwned(&ref.container)
}

// Equal reports value equality between two read-only views.
func (ref *ImageRef[T]) Equal(o *ImageRef[T]) bool { return ref.equal(&o.container) }

// ToOwned copies the borrowed planes into a new owned image; the mutable
// borrow itself is never aliased.
func (m *ImageMut[T]) ToOwned() *Image[T] {
	return copyToOwned(&m.container)
}

func copyToOwned[T pixel.Pixel](c *container[T]) *Image[T] {
	chans := make([]channel.Typed[T], len(c.channels))
	for i := range c.channels {
		src := c.channels[i].Pixels()
		cp := make([]T, len(src))
		copy(cp, src)
		chans[i] = channel.NewTyped(cp)
	}
	return fromChannels(chans, c.width, c.height)
}
