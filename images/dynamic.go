package images

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/channel"
	"github.com/nvr-ai/go-imgbuf/pixel"
)

// DynamicImage is the runtime-polymorphic counterpart of Image: width,
// height and an ordered sequence of type-erased channels. The channel count
// and element types are values, not type parameters, so dynamic images of
// statically unknown pixel type can live in one collection and cross
// boundaries that do not know the concrete type.
type DynamicImage struct {
	width    int
	height   int
	channels []channel.Dynamic
}

// NewDynamic assembles a dynamic image from already-erased channels,
// validating each channel's byte length against width*height elements of its
// own recorded element size.
func NewDynamic(channels []channel.Dynamic, width, height int) (*DynamicImage, error) {
	pixels, err := area(width, height)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, errors.Wrap(ErrSizeMismatch, "image needs at least one channel")
	}
	for i, ch := range channels {
		if pixels > math.MaxInt/ch.Format().Size {
			return nil, errors.Wrapf(ErrAllocationFailed,
				"channel %d: %dx%d %s overflows", i, width, height, ch.Format())
		}
		want := pixels * ch.Format().Size
		if ch.Len() != want {
			return nil, errors.Wrapf(ErrSizeMismatch,
				"channel %d holds %d bytes, want %dx%d %s = %d",
				i, ch.Len(), width, height, ch.Format(), want)
		}
	}
	return &DynamicImage{width: width, height: height, channels: channels}, nil
}

// EraseImage converts a typed image into its dynamic counterpart by erasing
// each channel. Ownership of the buffers moves; no bytes are copied and img
// must not be used afterwards.
func EraseImage[T pixel.Pixel](img *Image[T]) *DynamicImage {
	chans := make([]channel.Dynamic, len(img.channels))
	for i := range img.channels {
		chans[i] = channel.Erase(&img.channels[i])
	}
	img.channels = nil
	return &DynamicImage{width: img.width, height: img.height, channels: chans}
}

// ToImage attempts the typed reconstruction of a dynamic image. It succeeds
// iff the erased channel count equals n and every channel's format matches
// T; ownership then moves into the returned image zero-copy and d must not
// be used afterwards. On any failure every already-downcast channel is
// rolled back into erased form, d remains valid and unchanged, and no
// partial typed state is ever observed.
func ToImage[T pixel.Pixel](d *DynamicImage, n int) (*Image[T], error) {
	if len(d.channels) != n {
		return nil, errors.Wrapf(ErrChannelCountMismatch, "have %d channels, want %d", len(d.channels), n)
	}
	return takePrefix[T](d, n)
}

// TakeChannels downcasts the first n erased channels into a typed image,
// allowing a narrower view such as RGB out of a dynamic RGBA. The remaining
// channels are released. On failure d remains valid and unchanged.
func TakeChannels[T pixel.Pixel](d *DynamicImage, n int) (*Image[T], error) {
	if n < 1 || n > len(d.channels) {
		return nil, errors.Wrapf(ErrChannelCountMismatch, "want %d of %d channels", n, len(d.channels))
	}
	img, err := takePrefix[T](d, n)
	if err != nil {
		return nil, err
	}
	for i := n; i < len(d.channels); i++ {
		d.channels[i].Release()
	}
	d.channels = nil
	return img, nil
}

func takePrefix[T pixel.Pixel](d *DynamicImage, n int) (*Image[T], error) {
	chans := make([]channel.Typed[T], 0, n)
	for i := 0; i < n; i++ {
		t, err := channel.ToTyped[T](&d.channels[i])
		if err != nil {
			// Re-erase the channels downcast so far; erasure and downcast
			// both move ownership without copying, so the rollback restores
			// d exactly.
			for j := range chans {
				d.channels[j] = channel.Erase(&chans[j])
			}
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		chans = append(chans, t)
	}
	if n == len(d.channels) {
		d.channels = nil
	}
	return fromChannels(chans, d.width, d.height), nil
}

// Width returns the image width in pixels.
func (d *DynamicImage) Width() int { return d.width }

// Height returns the image height in pixels.
func (d *DynamicImage) Height() int { return d.height }

// Channels returns the number of erased channels.
func (d *DynamicImage) Channels() int { return len(d.channels) }

// Channel returns the i'th erased channel handle.
func (d *DynamicImage) Channel(i int) *channel.Dynamic { return &d.channels[i] }

// Formats returns each channel's recorded element format in order.
func (d *DynamicImage) Formats() []pixel.Format {
	out := make([]pixel.Format, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ch.Format()
	}
	return out
}

// Clone duplicates the image by cloning each channel through its own
// dispatch table: the share-count increment of the copy-on-write protocol.
// One clone can keep the bytes shared read-only while the other is later
// mutated, which forces a private copy only for the mutator.
func (d *DynamicImage) Clone() *DynamicImage {
	chans := make([]channel.Dynamic, len(d.channels))
	for i := range d.channels {
		chans[i] = d.channels[i].Clone()
	}
	return &DynamicImage{width: d.width, height: d.height, channels: chans}
}

// Release drops ownership of every channel through its dispatch table. The
// image must not be used afterwards.
func (d *DynamicImage) Release() {
	for i := range d.channels {
		d.channels[i].Release()
	}
	d.channels = nil
}

// Equal reports value equality: dimensions, per-channel formats and bytes
// all match.
func (d *DynamicImage) Equal(o *DynamicImage) bool {
	if d.width != o.width || d.height != o.height || len(d.channels) != len(o.channels) {
		return false
	}
	for i := range d.channels {
		if d.channels[i].Format() != o.channels[i].Format() {
			return false
		}
		if !bytes.Equal(d.channels[i].Bytes(), o.channels[i].Bytes()) {
			return false
		}
	}
	return true
}
