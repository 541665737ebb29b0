// Package segment models the shared memory segment the synchronization
// core lives inside: a handle the host validates before every operation,
// and a fixed-size arena addressed by offset rather than by native pointer.
//
// The reference implementation maps a single POSIX/Win32 shared memory
// segment at (possibly different) base addresses in each participating
// process and resolves every reference as base+offset. Go has no portable
// way to hand out raw offsets into an arbitrary memory mapping without
// unsafe.Pointer games that would fight the garbage collector, so this
// package keeps the *spirit* of the design (never touch shared state
// before the handle is known-good; never hold a native reference to a
// node that can be freed, only a stable numeric ref) while representing
// the arena as an ordinary Go slice. Cross-process use of this particular
// implementation is out of scope; the offset-addressing discipline is kept
// because it is what makes the allocator and queue logic lock-free and
// ABA-safe in the first place, not because the bytes need to survive a
// remap.
package segment

import "github.com/rishav/synccore/internal/atomics"

// CheckFunc is the host-provided validity predicate for a Handle,
// generalizing the reference implementation's dbcheck(db). It must be
// cheap and side-effect free: Validate may be called on every public
// operation.
type CheckFunc func() bool

// Handle is the opaque segment reference every synclock operation takes.
// A zero Handle has no check function and is always valid; callers that
// want validation must construct one with NewHandle.
type Handle struct {
	check CheckFunc
}

// NewHandle wraps check as a Handle. A nil check makes the handle
// unconditionally valid.
func NewHandle(check CheckFunc) Handle {
	return Handle{check: check}
}

// Valid reports whether the segment this handle refers to currently
// passes its validity predicate. No shared state is touched to compute
// this; it is purely the host's predicate.
func (h Handle) Valid() bool {
	return h.check == nil || h.check()
}

// Arena is a fixed-capacity pool of T addressed by atomics.Ref instead of
// by pointer. Ref 0 (atomics.NoRef) is never a valid cell; cell refs run
// from 1 through Cap() inclusive, so a zero Ref can always double as "no
// reference" without colliding with a live cell, exactly as offset 0 does
// in the original segment-relative addressing scheme.
type Arena[T any] struct {
	cells []T
}

// NewArena allocates an arena with room for exactly capacity cells.
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{cells: make([]T, capacity)}
}

// Cap returns the arena's fixed capacity.
func (a *Arena[T]) Cap() int {
	return len(a.cells)
}

// At resolves ref to a pointer at the cell it names. It panics on
// atomics.NoRef or an out-of-range ref: callers are expected to have
// already established ref is non-zero (the allocator never hands out
// NoRef as a live cell), so this is a programming-error guard, not part of
// the public error taxonomy.
func (a *Arena[T]) At(ref atomics.Ref) *T {
	if ref == atomics.NoRef {
		panic("segment: dereference of NoRef")
	}
	idx := int(ref) - 1
	if idx < 0 || idx >= len(a.cells) {
		panic("segment: ref out of range")
	}
	return &a.cells[idx]
}

// RefOfIndex converts a zero-based arena index into the Ref domain.
func RefOfIndex(idx int) atomics.Ref {
	return atomics.Ref(idx + 1)
}
