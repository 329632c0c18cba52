// Package preprocess - model-input preparation on top of the image
// containers.
//
// A Preprocessor turns an interleaved RGBA image into a planar (CHW) float32
// tensor the shape inference engines expect: resize, channel split,
// normalization. It is a pure consumer of the buffer core; every buffer it
// touches goes through the exported container operations.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-imgbuf/images"
	"github.com/nvr-ai/go-imgbuf/stdimage"
)

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
	// NormalizeStandardize applies per-channel mean and std normalization.
	NormalizeStandardize
)

// Config defines preprocessing for a specific model input.
type Config struct {
	// Width is the model's expected input width.
	Width int
	// Height is the model's expected input height.
	Height int
	// Normalization defines how pixel values are normalized.
	Normalization NormalizationType
	// Mean holds per-channel means for NormalizeStandardize.
	Mean []float32
	// Std holds per-channel standard deviations for NormalizeStandardize.
	Std []float32
	// KeepAspectRatio maintains aspect ratio with letterbox padding.
	KeepAspectRatio bool
	// LetterboxColor fills the letterbox padding; nil means black.
	LetterboxColor color.Color
}

// Preprocessor prepares model inputs according to a fixed configuration.
type Preprocessor struct {
	config Config
}

// New validates the configuration and returns a Preprocessor.
func New(config Config) (*Preprocessor, error) {
	if config.Width < 1 || config.Height < 1 {
		return nil, errors.Wrapf(images.ErrZeroDimension, "input %dx%d", config.Width, config.Height)
	}
	if config.Normalization == NormalizeStandardize {
		if len(config.Mean) != 3 || len(config.Std) != 3 {
			return nil, errors.New("standardize normalization needs 3 mean and 3 std values")
		}
		for i, s := range config.Std {
			if s == 0 {
				return nil, errors.Errorf("std for channel %d must be non-zero", i)
			}
		}
	}
	return &Preprocessor{config: config}, nil
}

// TensorInput converts an interleaved RGBA image into a normalized planar
// CHW float32 tensor of shape (1, 3, height, width).
//
// Arguments:
// - img: The source image; consumed read-only.
//
// Returns:
// - The model input tensor.
// - error if the image cannot be converted.
func (p *Preprocessor) TensorInput(img *images.Image[[4]uint8]) (*tensor.Dense, error) {
	rgba, err := stdimage.ToRGBA(img)
	if err != nil {
		return nil, errors.Wrap(err, "reading source image")
	}

	resized, err := stdimage.FromImage(p.resizeStage(rgba))
	if err != nil {
		return nil, errors.Wrap(err, "wrapping resized image")
	}
	defer resized.Release()

	// Interleaved RGB float32, then split into planes for CHW ordering.
	src := resized.Plane(0)
	rgb := make([][3]float32, len(src))
	for i, px := range src {
		rgb[i] = [3]float32{float32(px[0]), float32(px[1]), float32(px[2])}
	}
	interleaved, err := images.New([][][3]float32{rgb}, resized.Width(), resized.Height())
	if err != nil {
		return nil, errors.Wrap(err, "building interleaved stage")
	}
	planar, err := images.Deinterleave[[3]float32, float32](interleaved)
	if err != nil {
		return nil, errors.Wrap(err, "splitting channels")
	}
	planes, err := planar.MakeMut()
	if err != nil {
		return nil, errors.Wrap(err, "preparing planes for normalization")
	}
	p.normalize(planes)

	area := planar.Len()
	backing := make([]float32, 3*area)
	for c, plane := range planes {
		copy(backing[c*area:(c+1)*area], plane)
	}
	planar.Release()
	interleaved.Release()

	return tensor.New(
		tensor.WithShape(1, 3, p.config.Height, p.config.Width),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(backing),
	), nil
}

// resizeStage resizes to the configured input size, letterboxing when the
// aspect ratio must be kept.
func (p *Preprocessor) resizeStage(src image.Image) image.Image {
	width, height := p.config.Width, p.config.Height
	if !p.config.KeepAspectRatio {
		return resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	}

	bounds := src.Bounds()
	scale := math32.Min(
		float32(width)/float32(bounds.Dx()),
		float32(height)/float32(bounds.Dy()),
	)
	newWidth := int(float32(bounds.Dx()) * scale)
	newHeight := int(float32(bounds.Dy()) * scale)
	fitted := resize.Resize(uint(newWidth), uint(newHeight), src, resize.Lanczos3)

	pad := p.config.LetterboxColor
	if pad == nil {
		pad = color.Black
	}
	padLeft := (width - newWidth) / 2
	padTop := (height - newHeight) / 2
	letterboxed := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(letterboxed, letterboxed.Bounds(), &image.Uniform{C: pad}, image.Point{}, draw.Src)
	draw.Draw(letterboxed, image.Rect(padLeft, padTop, padLeft+newWidth, padTop+newHeight),
		fitted, image.Point{}, draw.Over)
	return letterboxed
}

// normalize applies the configured normalization to each plane in place.
func (p *Preprocessor) normalize(planes [][]float32) {
	switch p.config.Normalization {
	case NormalizeZeroToOne:
		for _, plane := range planes {
			for i := range plane {
				plane[i] /= 255.0
			}
		}
	case NormalizeMinusOneToOne:
		for _, plane := range planes {
			for i := range plane {
				plane[i] = (plane[i] / 127.5) - 1.0
			}
		}
	case NormalizeStandardize:
		for c, plane := range planes {
			mean, std := p.config.Mean[c], p.config.Std[c]
			for i := range plane {
				plane[i] = (plane[i] - mean) / std
			}
		}
	}
}
