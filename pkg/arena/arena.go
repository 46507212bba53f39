// Package arena implements the scratch-arena contract of spec §6: a
// caller-owned bump allocator that every Store/paths/gather operation
// allocates its return buffers from.
package arena

import "github.com/VioletaStepanyan/ukv/pkg/kverrors"

const defaultAlign = 8

// Arena is a bump allocator. It is not safe for concurrent use: the caller
// owns it exclusively and must not share it across concurrent calls.
type Arena struct {
	buf    []byte
	off    int
	growth float64
}

// New creates an Arena with the given initial capacity and growth factor.
// A growth factor <= 1.0 is treated as 2.0.
func New(initialCapacity int, growth float64) *Arena {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	if growth <= 1.0 {
		growth = 2.0
	}
	return &Arena{
		buf:    make([]byte, 0, initialCapacity),
		growth: growth,
	}
}

// Alloc returns a zeroed, aligned slice of nBytes cut from the arena's
// backing buffer. A growth attempt that still leaves too little capacity is
// retried once with a doubled request per §7's local-recovery policy before
// surfacing OutOfMemory.
func (a *Arena) Alloc(nBytes int, align int) ([]byte, error) {
	if nBytes < 0 {
		return nil, kverrors.New(kverrors.InvalidArgument, "arena: negative allocation size")
	}
	if align <= 0 {
		align = defaultAlign
	}

	aligned := alignUp(a.off, align)
	needed := aligned + nBytes
	if needed > cap(a.buf) {
		a.reserve(needed)
	}
	if needed > cap(a.buf) {
		// Retry once with a doubled request, per §7.
		a.reserve(needed * 2)
	}
	if needed > cap(a.buf) {
		return nil, kverrors.New(kverrors.OutOfMemory, "arena: unable to grow backing buffer")
	}

	a.buf = a.buf[:needed]
	for i := aligned; i < needed; i++ {
		a.buf[i] = 0
	}
	a.off = needed
	return a.buf[aligned:needed], nil
}

// reserve grows the backing buffer geometrically until it can hold atLeast
// bytes, preserving already-allocated contents.
func (a *Arena) reserve(atLeast int) {
	newCap := cap(a.buf)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < atLeast {
		newCap = int(float64(newCap) * a.growth)
	}
	grown := make([]byte, len(a.buf), newCap)
	copy(grown, a.buf)
	a.buf = grown
}

// Reset rewinds the arena to empty without releasing its backing buffer,
// so a caller reusing the same Arena value across calls avoids repeated
// allocation (the §6 "valid until the next call using the same arena, or
// until reset" lifetime).
func (a *Arena) Reset() {
	a.buf = a.buf[:0]
	a.off = 0
}

// Len reports bytes allocated since the last Reset.
func (a *Arena) Len() int { return a.off }

// Cap reports the arena's current backing capacity.
func (a *Arena) Cap() int { return cap(a.buf) }

func alignUp(off, align int) int {
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}
