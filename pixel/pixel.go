// Package pixel - runtime format descriptors for image channel element types.
//
// A Format pairs an opaque type identity with the element's byte size. It is
// what lets a type-erased channel answer "can these bytes be viewed as T?"
// without carrying the concrete type itself.
package pixel

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Primitive enumerates the scalar sample types a channel plane can hold.
type Primitive interface {
	~uint8 | ~uint16 | ~float32
}

// Pixel is the set of element types an image buffer can be viewed through:
// the Primitive scalars and fixed-size arrays of them, e.g. [3]uint8 for an
// interleaved RGB triplet or [4]float32 for interleaved RGBA floats.
//
// The constraint is deliberately open because Go cannot express "array of a
// Primitive" as a type-set member. Element types must be fixed-size value
// types composed only of Primitive scalars; anything containing pointers,
// padding-sensitive structs or variable-size data is a programming defect,
// not a runtime condition.
type Pixel interface {
	any
}

// Format identifies a channel's element type and its byte size. Two formats
// are equal iff both fields match. A Format is created once per concrete
// element type and never mutated.
type Format struct {
	// Type is the opaque identity of the element type.
	Type reflect.Type
	// Size is the element's byte size, always positive.
	Size int
}

// FormatOf returns the format descriptor for element type T.
func FormatOf[T Pixel]() Format {
	var zero T
	return Format{
		Type: reflect.TypeOf(zero),
		Size: int(unsafe.Sizeof(zero)),
	}
}

// Grouped returns the format describing n interleaved elements of f per
// pixel, i.e. the element type [n]T for f's T. FormatOf[uint8]().Grouped(3)
// equals FormatOf[[3]uint8]().
func (f Format) Grouped(n int) Format {
	if n == 1 {
		return f
	}
	return Format{
		Type: reflect.ArrayOf(n, f.Type),
		Size: n * f.Size,
	}
}

// Valid reports whether f describes a usable element type.
func (f Format) Valid() bool {
	return f.Type != nil && f.Size > 0
}

func (f Format) String() string {
	if f.Type == nil {
		return "pixel.Format(nil)"
	}
	return fmt.Sprintf("%s/%dB", f.Type, f.Size)
}
