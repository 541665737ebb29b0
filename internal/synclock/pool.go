package synclock

import (
	"github.com/rishav/synccore/internal/atomics"
	"github.com/rishav/synccore/internal/segment"
)

// pool is the lock-free, refcount-protected queue-node allocator backing
// Algorithm Q (spec section 4.5). It is a Valois-style freelist: a
// singly-linked stack of free cells, with each cell's refcount doubling as
// an ABA guard so a racing alloc can never observe a cell that has already
// been popped, reused, and pushed back by another goroutine in between.
type pool struct {
	arena    *segment.Arena[qnode]
	freelist atomics.Word // holds an atomics.Ref
}

// newPool builds a pool over capacity fresh cells, linking all of them
// onto the freelist with refcount=1 (the single "on-freelist" reference),
// exactly as init_lock_queue does in the reference implementation. Must
// only be called single-threaded, during init.
func newPool(capacity int) *pool {
	p := &pool{arena: segment.NewArena[qnode](capacity)}
	if capacity == 0 {
		atomics.Store(&p.freelist, int64(atomics.NoRef))
		return p
	}

	for i := 0; i < capacity; i++ {
		cell := p.arena.At(segment.RefOfIndex(i))
		atomics.Store(&cell.refcount, 1)
		if i+1 < capacity {
			cell.nextCell = segment.RefOfIndex(i + 1)
		} else {
			cell.nextCell = atomics.NoRef
		}
	}
	atomics.Store(&p.freelist, int64(segment.RefOfIndex(0)))
	return p
}

// alloc pops a cell off the freelist, publishing an owning reference
// before the pop is even confirmed so that a concurrent free() racing
// against us can never reclaim the cell out from under our inspection of
// it (spec section 4.5, "alloc").
func (p *pool) alloc() atomics.Ref {
	for {
		t := atomics.RefOf(atomics.Load(&p.freelist))
		if t == atomics.NoRef {
			return atomics.NoRef
		}
		cell := p.arena.At(t)

		atomics.Add(&cell.refcount, 2)

		if atomics.CAS(&p.freelist, int64(t), int64(cell.nextCell)) {
			atomics.Add(&cell.refcount, -1) // clear the on-freelist claim bit
			return t
		}

		p.free(t)
	}
}

// free drops one reference on ref; once the last reference is dropped, it
// claims the cell for the freelist and pushes it back on with the
// standard CAS-loop stack push (spec section 4.5, "free").
func (p *pool) free(ref atomics.Ref) {
	cell := p.arena.At(ref)

	atomics.Add(&cell.refcount, -2)

	if !atomics.CAS(&cell.refcount, 0, 1) {
		// Some other observer still holds a reference; they (or a
		// subsequent free from the owner) will push it back later.
		return
	}

	for {
		head := atomics.RefOf(atomics.Load(&p.freelist))
		cell.nextCell = head
		if atomics.CAS(&p.freelist, int64(head), int64(ref)) {
			return
		}
	}
}

// derefLink safely reads a shared Ref-typed field (link) and returns a
// counted reference to the cell it names, retrying if the field changes
// out from under the read. It mirrors the reference implementation's
// deref_link, which spec section 9's Open Questions notes is unused by any
// acquire/release path but kept for protocol completeness; this
// implementation keeps it for the same reason, exercised directly by
// pool_test.go.
func (p *pool) derefLink(link *atomics.Word) atomics.Ref {
	for {
		t := atomics.RefOf(atomics.Load(link))
		if t == atomics.NoRef {
			return atomics.NoRef
		}
		cell := p.arena.At(t)
		atomics.Add(&cell.refcount, 2)

		if t == atomics.RefOf(atomics.Load(link)) {
			return t
		}
		p.free(t)
	}
}
