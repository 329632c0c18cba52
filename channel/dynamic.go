package channel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-imgbuf/pixel"
)

// VTable is the fixed dispatch table that stands in for a channel's concrete
// element type once it has been erased. It is installed per channel, not per
// image: different channels of one dynamic image may originate from
// different allocators, and a single per-image table could not express that.
// Once erased, cloning, releasing and byte access go only through the table.
type VTable struct {
	// Format records the erased element type and size. The recorded size
	// always matches the buffer's element size.
	Format pixel.Format
	// Clone duplicates sharing of the buffer handle.
	Clone func(*Buffer) *Buffer
	// Release drops ownership, freeing on the last release.
	Release func(*Buffer)
	// Bytes returns the buffer's raw byte region.
	Bytes func(*Buffer) []byte
}

// vtables caches one process-wide table per element format. Erased channels
// hold non-owning references into this cache; no table's lifetime is tied to
// any image instance.
var vtables sync.Map // pixel.Format -> *VTable

func vtableFor[T pixel.Pixel]() *VTable {
	format := pixel.FormatOf[T]()
	if vt, ok := vtables.Load(format); ok {
		return vt.(*VTable)
	}
	vt, _ := vtables.LoadOrStore(format, standardVTable(format))
	return vt.(*VTable)
}

// standardVTable dispatches straight into the Buffer's own counted-ownership
// operations.
func standardVTable(format pixel.Format) *VTable {
	return &VTable{
		Format:  format,
		Clone:   (*Buffer).Clone,
		Release: (*Buffer).Release,
		Bytes:   (*Buffer).Bytes,
	}
}

// Dynamic is a type-erased single channel: a dispatch table paired with an
// opaque buffer handle. It is the runtime-polymorphic counterpart of
// Typed[T] and converts to and from it without copying bytes.
type Dynamic struct {
	vt  *VTable
	buf *Buffer
}

// Erase wraps t into an erased channel. Ownership of the buffer moves and t
// is cleared, so any later use of it panics on the nil buffer rather than
// silently double-releasing the share count the erased handle depends on.
// No bytes are copied.
func Erase[T pixel.Pixel](t *Typed[T]) Dynamic {
	d := Dynamic{vt: vtableFor[T](), buf: t.buf}
	t.buf = nil
	return d
}

// AdoptDynamic wraps a foreign allocation directly as an erased channel. The
// supplied format must evenly divide the data; release runs exactly once at
// the last owning release. A non-nil clone is used to duplicate the bytes
// through the foreign allocator whenever a private copy is needed; when nil,
// sharing goes through the standard counted ownership.
func AdoptDynamic(data []byte, format pixel.Format, release func([]byte), clone func([]byte) []byte) (Dynamic, error) {
	if !format.Valid() {
		return Dynamic{}, errors.Wrap(ErrFormatMismatch, "invalid element format")
	}
	if len(data)%format.Size != 0 {
		return Dynamic{}, errors.Wrapf(ErrFormatMismatch,
			"%d bytes is not a whole number of %s elements", len(data), format)
	}
	vt := standardVTable(format)
	if clone != nil {
		vt = &VTable{
			Format: format,
			Clone: func(b *Buffer) *Buffer {
				return Adopt(clone(b.Bytes()), release)
			},
			Release: (*Buffer).Release,
			Bytes:   (*Buffer).Bytes,
		}
	}
	return Dynamic{vt: vt, buf: Adopt(data, release)}, nil
}

// Format returns the erased element format recorded at erasure.
func (d Dynamic) Format() pixel.Format { return d.vt.Format }

// Bytes returns the channel's raw byte region through the dispatch table.
func (d Dynamic) Bytes() []byte { return d.vt.Bytes(d.buf) }

// Len returns the channel's byte length.
func (d Dynamic) Len() int { return len(d.vt.Bytes(d.buf)) }

// Clone duplicates sharing of the channel through its own dispatch table;
// for counted buffers this is the share-count increment of the copy-on-write
// protocol, so a later MakeMut on either handle copies instead of corrupting
// the other's view.
func (d Dynamic) Clone() Dynamic {
	return Dynamic{vt: d.vt, buf: d.vt.Clone(d.buf)}
}

// Release drops this handle's ownership through the dispatch table.
func (d Dynamic) Release() { d.vt.Release(d.buf) }

// ToTyped attempts to recover the concrete typed view from an erased
// channel. It succeeds iff the recorded format equals T's format; ownership
// of the buffer then moves into the typed wrapper, the dispatch table is
// discarded and d is cleared. On failure d is untouched and remains usable,
// so the caller can try another type or propagate the mismatch.
func ToTyped[T pixel.Pixel](d *Dynamic) (Typed[T], error) {
	want := pixel.FormatOf[T]()
	if d.vt.Format != want {
		return Typed[T]{}, errors.Wrapf(ErrFormatMismatch, "channel holds %s, want %s", d.vt.Format, want)
	}
	t := Typed[T]{buf: d.buf, format: want}
	d.vt = nil
	d.buf = nil
	return t, nil
}
