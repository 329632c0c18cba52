package channel

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeMutExclusiveInPlace(t *testing.T) {
	data := []byte{0, 64, 128, 192}
	buf := NewBuffer(data)

	mm, err := buf.MakeMut()
	require.NoError(t, err, "exclusively owned buffers must be mutable")
	assert.Same(t, &data[0], &mm[0], "sole owner must mutate in place without copying")
}

func TestCloneSharesAndMakeMutCopies(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	buf := NewBuffer(data)
	clone := buf.Clone()

	assert.Same(t, &buf.Bytes()[0], &clone.Bytes()[0], "clone must share bytes without copying")
	assert.True(t, buf.Shared(), "both handles must observe the sharing")

	mm, err := clone.MakeMut()
	require.NoError(t, err)
	assert.NotSame(t, &data[0], &mm[0], "mutating a shared buffer must divert to a private copy")

	mm[0] = 99
	assert.Equal(t, byte(1), buf.Bytes()[0], "the sibling's view must be unaffected by the mutation")
	assert.False(t, buf.Shared(), "the sibling is exclusive again after the copy")
}

func TestMakeMutReusesStorageAfterSiblingRelease(t *testing.T) {
	data := []byte{5, 6, 7, 8}
	buf := NewBuffer(data)
	clone := buf.Clone()

	clone.Release()

	mm, err := buf.MakeMut()
	require.NoError(t, err)
	assert.Same(t, &data[0], &mm[0],
		"after the sibling is released the remaining owner must reuse the original storage")
}

func TestBorrowIsNotMutable(t *testing.T) {
	data := []byte{1, 2, 3}
	buf := Borrow(data)

	_, err := buf.MakeMut()
	require.Error(t, err, "a read-only borrow must never become mutable")
	assert.True(t, errors.Is(err, ErrNotMutable), "the failure must be ErrNotMutable")

	assert.Equal(t, data, buf.Bytes(), "reading a borrow is always legal")
	buf.Release()
	assert.Equal(t, data, buf.Bytes(), "releasing a borrow is a no-op")
}

func TestBorrowMutMutatesInPlace(t *testing.T) {
	data := []byte{1, 2, 3}
	buf := BorrowMut(data)

	mm, err := buf.MakeMut()
	require.NoError(t, err, "a mutable borrow mutates in place")
	mm[0] = 42
	assert.Equal(t, byte(42), data[0], "the caller's bytes must see the mutation")
}

func TestBorrowMutCloneNeverAliases(t *testing.T) {
	data := []byte{1, 2, 3}
	buf := BorrowMut(data)
	clone := buf.Clone()

	assert.NotSame(t, &data[0], &clone.Bytes()[0],
		"a clone of a mutable borrow must be a private copy, never an alias")

	mm, err := buf.MakeMut()
	require.NoError(t, err)
	mm[0] = 42
	assert.Equal(t, byte(1), clone.Bytes()[0], "the copy must not see later mutation of the borrow")
}

func TestAdoptReleaseRunsExactlyOnce(t *testing.T) {
	released := 0
	data := []byte{9, 9, 9}
	buf := Adopt(data, func(b []byte) {
		assert.Same(t, &data[0], &b[0], "the hook must receive the adopted bytes")
		released++
	})

	c1 := buf.Clone()
	c2 := c1.Clone()

	buf.Release()
	assert.Zero(t, released, "the hook must not run while owners remain")
	c1.Release()
	c2.Release()
	assert.Equal(t, 1, released, "the hook must run exactly once, at the last release")
}

func TestMakeMutOnSharedAdoptedKeepsForeignBytesAlive(t *testing.T) {
	released := 0
	data := []byte{1, 2, 3}
	buf := Adopt(data, func([]byte) { released++ })
	clone := buf.Clone()

	mm, err := clone.MakeMut()
	require.NoError(t, err)
	mm[0] = 42

	assert.Zero(t, released, "diverting to a private copy must not release the foreign bytes early")
	assert.Equal(t, byte(1), buf.Bytes()[0], "the foreign bytes must be unchanged")

	buf.Release()
	assert.Equal(t, 1, released, "the foreign release must still run exactly once")
	clone.Release()
	assert.Equal(t, 1, released, "the private copy must not trigger the foreign release again")
}

func TestConcurrentCloneRelease(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	buf := NewBuffer(data)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		clone := buf.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := clone.Clone()
			assert.Equal(t, byte(1), local.Bytes()[0], "readers must never observe corruption")
			local.Release()
			clone.Release()
		}()
	}
	wg.Wait()

	mm, err := buf.MakeMut()
	require.NoError(t, err)
	assert.Same(t, &data[0], &mm[0], "after all clones resolved the original owner is exclusive again")
}

func TestConcurrentMakeMutOnSiblings(t *testing.T) {
	data := []byte{7, 7, 7, 7}
	buf := NewBuffer(data)

	siblings := make([]*Buffer, 8)
	for i := range siblings {
		siblings[i] = buf.Clone()
	}

	var wg sync.WaitGroup
	for _, s := range siblings {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			mm, err := s.MakeMut()
			if assert.NoError(t, err) {
				mm[0] = 42
			}
			s.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, byte(7), buf.Bytes()[0],
		"no sibling's mutation may ever reach a handle that did not call MakeMut")
}
