package channel

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/pixel"
)

// Typed is a Buffer viewed through a concrete element type T. Construction
// guarantees that the byte length is a multiple of T's size and that the
// buffer's declared format matches T; both typed and byte views reinterpret
// the same backing array, so no access ever copies.
type Typed[T pixel.Pixel] struct {
	buf    *Buffer
	format pixel.Format
}

// NewTyped takes exclusive ownership of pixels as one channel plane.
func NewTyped[T pixel.Pixel](pixels []T) Typed[T] {
	return Typed[T]{buf: NewBuffer(bytesOf(pixels)), format: pixel.FormatOf[T]()}
}

// NewTypedRef wraps caller-owned pixels as a read-only view.
func NewTypedRef[T pixel.Pixel](pixels []T) Typed[T] {
	return Typed[T]{buf: Borrow(bytesOf(pixels)), format: pixel.FormatOf[T]()}
}

// NewTypedMut wraps caller-owned pixels as an exclusively mutable view.
func NewTypedMut[T pixel.Pixel](pixels []T) Typed[T] {
	return Typed[T]{buf: BorrowMut(bytesOf(pixels)), format: pixel.FormatOf[T]()}
}

// AdoptTyped wraps a foreign byte allocation as a typed channel without
// copying. The release hook runs exactly once, when the last owning handle
// is released. Fails with ErrFormatMismatch if the byte length is not a
// whole number of T elements.
func AdoptTyped[T pixel.Pixel](data []byte, release func([]byte)) (Typed[T], error) {
	format := pixel.FormatOf[T]()
	if len(data)%format.Size != 0 {
		return Typed[T]{}, errors.Wrapf(ErrFormatMismatch,
			"%d bytes is not a whole number of %s elements", len(data), format)
	}
	return Typed[T]{buf: Adopt(data, release), format: format}, nil
}

// Format returns the channel's element format.
func (t Typed[T]) Format() pixel.Format { return t.format }

// Len returns the number of T elements in the channel.
func (t Typed[T]) Len() int { return t.buf.Len() / t.format.Size }

// Pixels returns a read-only typed view of the channel's current bytes.
func (t Typed[T]) Pixels() []T { return pixelsOf[T](t.buf.Bytes()) }

// Bytes returns a read-only byte view of the channel's current bytes.
func (t Typed[T]) Bytes() []byte { return t.buf.Bytes() }

// Shared reports whether another live handle references the same bytes at
// this instant.
func (t Typed[T]) Shared() bool { return t.buf.Shared() }

// MakeMut returns a mutable typed view, copying first when the bytes are
// shared. The backing address may differ from the pre-call address; callers
// must not assume stability across this call.
func (t Typed[T]) MakeMut() ([]T, error) {
	raw, err := t.buf.MakeMut()
	if err != nil {
		return nil, err
	}
	return pixelsOf[T](raw), nil
}

// Clone returns a second handle onto the same content, sharing bytes where
// the ownership mode allows it.
func (t Typed[T]) Clone() Typed[T] {
	return Typed[T]{buf: t.buf.Clone(), format: t.format}
}

// Release drops this handle's ownership of the underlying buffer.
func (t Typed[T]) Release() { t.buf.Release() }

// bytesOf reinterprets a typed slice as its raw bytes without copying.
func bytesOf[T pixel.Pixel](p []T) []byte {
	if len(p) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(p[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&p[0])), len(p)*size)
}

// pixelsOf reinterprets raw bytes as a typed slice without copying. The
// length is truncated to whole elements; Typed construction guarantees there
// is no remainder.
func pixelsOf[T pixel.Pixel](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}
