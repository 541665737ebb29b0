package synclock

import (
	"sync"
	"testing"

	"github.com/rishav/synccore/internal/atomics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocExhaustionAndRecovery(t *testing.T) {
	p := newPool(2)

	a := p.alloc()
	b := p.alloc()
	require.NotEqual(t, atomics.NoRef, a)
	require.NotEqual(t, atomics.NoRef, b)
	require.NotEqual(t, a, b)

	// Pool exhausted: a third alloc must fail (S5).
	assert.Equal(t, atomics.NoRef, p.alloc())

	p.free(a)

	// Releasing one cell must make a subsequent alloc succeed again.
	c := p.alloc()
	assert.NotEqual(t, atomics.NoRef, c)
	assert.Equal(t, a, c, "freed cell should be the one reallocated off a 1-deep stack")
}

func TestPoolConservationUnderConcurrency(t *testing.T) {
	const capacity = 8
	const workers = 32
	const rounds = 200

	p := newPool(capacity)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				ref := p.alloc()
				if ref == atomics.NoRef {
					continue
				}
				p.free(ref)
			}
		}()
	}
	wg.Wait()

	// Every cell must be reachable from the freelist again: total free
	// chain length equals capacity (property 4, pool conservation).
	seen := map[atomics.Ref]bool{}
	cur := atomics.RefOf(atomics.Load(&p.freelist))
	for cur != atomics.NoRef {
		assert.False(t, seen[cur], "cycle detected in freelist")
		seen[cur] = true
		cur = p.arena.At(cur).nextCell
	}
	assert.Len(t, seen, capacity)
}

func TestPoolDerefLinkTracksLiveCell(t *testing.T) {
	p := newPool(2)
	a := p.alloc()

	var link atomics.Word
	atomics.Store(&link, int64(a))

	got := p.derefLink(&link)
	require.Equal(t, a, got)

	// derefLink's reference must keep the cell alive even if the owner's
	// own reference is dropped concurrently.
	p.free(a)
	cell := p.arena.At(a)
	assert.NotEqual(t, int64(0), atomics.Load(&cell.refcount), "cell should still carry derefLink's reference")

	p.free(a) // drop derefLink's own reference
}

func TestPoolDerefLinkOnEmptyLinkReturnsNoRef(t *testing.T) {
	p := newPool(1)
	var link atomics.Word
	atomics.Store(&link, int64(atomics.NoRef))

	assert.Equal(t, atomics.NoRef, p.derefLink(&link))
}
