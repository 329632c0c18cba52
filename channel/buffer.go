// Package channel - ownership and copy-on-write for single-channel pixel
// buffers.
//
// A Buffer is one contiguous byte region holding one channel's pixel data.
// It is either owned (alone or shared with clones through an atomic share
// count) or borrowed from a caller that retains ownership. Mutation always
// goes through MakeMut, which consults the live share count and copies
// exactly when the bytes are shared. The release hook recorded at creation
// runs exactly once, when the last owning handle is released, regardless of
// how often the buffer moved between typed and erased form in between.
package channel

import "sync/atomic"

type mode uint8

const (
	// modeOwned participates in the share count; release frees on last drop.
	modeOwned mode = iota
	// modeBorrowed observes caller-owned bytes; release is a no-op.
	modeBorrowed
	// modeBorrowedMut exclusively mutates caller-owned bytes.
	modeBorrowedMut
)

// control guards one owned allocation. refs counts the owning handles; the
// release hook runs exactly once, when the count reaches zero.
type control struct {
	refs    atomic.Int64
	release func([]byte)
	data    []byte
}

func newControl(data []byte, release func([]byte)) *control {
	c := &control{release: release, data: data}
	c.refs.Store(1)
	return c
}

func (c *control) drop() {
	if c.refs.Add(-1) == 0 && c.release != nil {
		c.release(c.data)
	}
}

// Buffer owns or borrows one contiguous byte region of pixel data.
type Buffer struct {
	data []byte
	ctrl *control // nil for borrows
	mode mode
}

// NewBuffer takes exclusive ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, ctrl: newControl(data, nil), mode: modeOwned}
}

// Adopt wraps bytes allocated by an external system without copying them.
// The release hook, when non-nil, runs exactly once at the point the last
// owning handle is released, no matter who that handle ends up being.
func Adopt(data []byte, release func([]byte)) *Buffer {
	return &Buffer{data: data, ctrl: newControl(data, release), mode: modeOwned}
}

// Borrow wraps caller-owned bytes as a read-only view. The caller must keep
// the bytes alive and unchanged for as long as the handle is in use.
func Borrow(data []byte) *Buffer {
	return &Buffer{data: data, mode: modeBorrowed}
}

// BorrowMut wraps caller-owned bytes as an exclusively mutable view. The
// caller must not alias the bytes through any other handle while this one
// lives.
func BorrowMut(data []byte) *Buffer {
	return &Buffer{data: data, mode: modeBorrowedMut}
}

// Bytes returns the current byte region. Always legal, never copies, never
// fails. The view is read-only by contract; use MakeMut to write.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the byte length of the region.
func (b *Buffer) Len() int { return len(b.data) }

// Borrowed reports whether this handle never owns its bytes.
func (b *Buffer) Borrowed() bool { return b.mode != modeOwned }

// Shared reports whether another live owning handle references the same
// bytes at this instant. The answer must not be cached across calls.
func (b *Buffer) Shared() bool {
	return b.mode == modeOwned && b.ctrl.refs.Load() > 1
}

// Clone returns a second handle onto the same logical content. Owned buffers
// share bytes through the count (no copy). A read-only borrow yields another
// non-owning view. A mutable borrow must never be aliased, so its clone is a
// private owned copy.
func (b *Buffer) Clone() *Buffer {
	switch b.mode {
	case modeOwned:
		b.ctrl.refs.Add(1)
		return &Buffer{data: b.data, ctrl: b.ctrl, mode: modeOwned}
	case modeBorrowed:
		return &Buffer{data: b.data, mode: modeBorrowed}
	default:
		cp := make([]byte, len(b.data))
		copy(cp, b.data)
		return NewBuffer(cp)
	}
}

// MakeMut returns a mutable view of the bytes, copying first when they are
// shared. Exclusively owned and mutably borrowed buffers mutate in place.
// The share count is evaluated at the moment of the call: after a sibling
// clone has been released, the next MakeMut reuses the original storage.
// Read-only borrows fail with ErrNotMutable.
func (b *Buffer) MakeMut() ([]byte, error) {
	switch b.mode {
	case modeBorrowedMut:
		return b.data, nil
	case modeBorrowed:
		return nil, ErrNotMutable
	}
	if b.ctrl.refs.Load() == 1 {
		// Sole owner: the count cannot rise concurrently because every other
		// path to this allocation has already released its handle.
		return b.data, nil
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	old := b.ctrl
	b.data = cp
	b.ctrl = newControl(cp, nil)
	old.drop()
	return cp, nil
}

// Release drops this handle's ownership. For the last owning handle the
// release hook recorded at creation runs; for borrows this is a no-op. The
// handle must not be used afterwards.
func (b *Buffer) Release() {
	if b.mode != modeOwned || b.ctrl == nil {
		return
	}
	b.ctrl.drop()
	b.ctrl = nil
	b.data = nil
}
