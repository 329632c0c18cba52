package preprocess

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-imgbuf/images"
	"github.com/nvr-ai/go-imgbuf/stdimage"
)

// uniformInput builds a w x h source image of one solid color. Resampling a
// uniform image keeps every sample at that color, so the tests can assert
// tensor values without depending on interpolation details.
func uniformInput(t *testing.T, w, h int, c color.RGBA) *images.Image[[4]uint8] {
	t.Helper()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	img, err := stdimage.FromRGBA(rgba)
	require.NoError(t, err)
	return img
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Width: 0, Height: 224})
	require.Error(t, err)
	assert.True(t, errors.Is(err, images.ErrZeroDimension))

	_, err = New(Config{Width: 224, Height: 224, Normalization: NormalizeStandardize})
	require.Error(t, err, "standardize needs per-channel mean and std")

	_, err = New(Config{
		Width: 224, Height: 224, Normalization: NormalizeStandardize,
		Mean: []float32{0, 0, 0}, Std: []float32{1, 0, 1},
	})
	require.Error(t, err, "a zero std would divide by zero")

	_, err = New(Config{Width: 224, Height: 224})
	require.NoError(t, err)
}

func TestTensorInputShapeAndPlaneOrder(t *testing.T) {
	p, err := New(Config{Width: 2, Height: 2, Normalization: NormalizeNone})
	require.NoError(t, err)

	img := uniformInput(t, 4, 4, color.RGBA{R: 200, G: 50, B: 100, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 3, 2, 2}, tns.Shape())

	data := tns.Data().([]float32)
	require.Len(t, data, 12)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 200, data[i], 1, "red plane comes first")
		assert.InDelta(t, 50, data[4+i], 1, "green plane second")
		assert.InDelta(t, 100, data[8+i], 1, "blue plane third")
	}
}

func TestTensorInputZeroToOne(t *testing.T) {
	p, err := New(Config{Width: 2, Height: 2, Normalization: NormalizeZeroToOne})
	require.NoError(t, err)

	img := uniformInput(t, 4, 4, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	data := tns.Data().([]float32)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, data[i], 0.01)
		assert.InDelta(t, 0.0, data[4+i], 0.01)
		assert.InDelta(t, 1.0, data[8+i], 0.01)
	}
}

func TestTensorInputMinusOneToOne(t *testing.T) {
	p, err := New(Config{Width: 2, Height: 2, Normalization: NormalizeMinusOneToOne})
	require.NoError(t, err)

	img := uniformInput(t, 2, 2, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	data := tns.Data().([]float32)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, data[i], 0.01)
		assert.InDelta(t, -1.0, data[4+i], 0.01)
	}
}

func TestTensorInputStandardize(t *testing.T) {
	p, err := New(Config{
		Width: 2, Height: 2, Normalization: NormalizeStandardize,
		Mean: []float32{100, 100, 100},
		Std:  []float32{50, 50, 50},
	})
	require.NoError(t, err)

	img := uniformInput(t, 4, 4, color.RGBA{R: 200, G: 100, B: 0, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	data := tns.Data().([]float32)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 2.0, data[i], 0.05, "(200-100)/50")
		assert.InDelta(t, 0.0, data[4+i], 0.05, "(100-100)/50")
		assert.InDelta(t, -2.0, data[8+i], 0.05, "(0-100)/50")
	}
}

func TestTensorInputLetterbox(t *testing.T) {
	p, err := New(Config{
		Width: 4, Height: 4, Normalization: NormalizeNone,
		KeepAspectRatio: true,
	})
	require.NoError(t, err)

	// A 4x2 white source fits a 4x4 target at scale 1, leaving one black
	// padding row above and below.
	img := uniformInput(t, 4, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 3, 4, 4}, tns.Shape())
	data := tns.Data().([]float32)
	for x := 0; x < 4; x++ {
		assert.InDelta(t, 0, data[x], 1, "top padding row is black")
		assert.InDelta(t, 255, data[4+x], 1, "first content row is white")
		assert.InDelta(t, 255, data[8+x], 1, "second content row is white")
		assert.InDelta(t, 0, data[12+x], 1, "bottom padding row is black")
	}
}

func TestTensorInputLetterboxColor(t *testing.T) {
	p, err := New(Config{
		Width: 4, Height: 4, Normalization: NormalizeNone,
		KeepAspectRatio: true,
		LetterboxColor:  color.RGBA{R: 114, G: 114, B: 114, A: 255},
	})
	require.NoError(t, err)

	img := uniformInput(t, 4, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	tns, err := p.TensorInput(img)
	require.NoError(t, err)

	data := tns.Data().([]float32)
	assert.InDelta(t, 114, data[0], 1, "padding takes the configured color")
	assert.InDelta(t, 255, data[4], 1, "content stays untouched")
}
