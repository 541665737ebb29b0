package synclock

import "github.com/rishav/synccore/internal/atomics"

// queuedState is Algorithm Q's shared state: a single logical FIFO of
// waiters threaded through pool-allocated nodes, plus the bookkeeping
// needed to hand off reader-count responsibility and next-writer wakeups
// across that FIFO (spec section 3/4.4). This is the "fair queued"
// locally-spinning lock from Mellor-Crummey & Scott 1991, grounded on the
// reference implementation's QUEUED_LOCKS branch of wg_start_write /
// wg_start_read / wg_end_write / wg_end_read, and in spirit on
// github.com/ahrav/go-locks's MCS lock (Lock/Unlock over a tail pointer
// and per-node local spinning) generalized from mutual exclusion to
// reader/writer with cohort batching.
type queuedState struct {
	tail        atomics.Word // holds an atomics.Ref: most recently enqueued node, or NoRef
	nextWriter  atomics.Word // holds an atomics.Ref: writer eligible to run next, or NoRef
	readerCount atomics.Word // number of currently active readers

	pool *pool
}

// initQueued builds a queuedState with a maxNodes-capacity node pool.
// Single-threaded, called once at database init.
func initQueued(maxNodes int) *queuedState {
	q := &queuedState{pool: newPool(maxNodes)}
	atomics.Store(&q.tail, int64(atomics.NoRef))
	atomics.Store(&q.nextWriter, int64(atomics.NoRef))
	atomics.Store(&q.readerCount, 0)
	return q
}

func (q *queuedState) node(ref atomics.Ref) *qnode {
	return q.pool.arena.At(ref)
}

// afterEnqueueHook, when non-nil, is invoked immediately after a waiter's
// node has been linked onto the tail (i.e. right after the Exchange on
// q.tail), before any spin-waiting begins. Production code never sets
// this; it exists so tests can observe and control FIFO arrival order
// deterministically (see TestQueuedFIFOOrdering) without adding any
// runtime cost beyond a single nil check per start_read/start_write.
var afterEnqueueHook func(ref atomics.Ref, class nodeClass)

func fireEnqueueHook(ref atomics.Ref, class nodeClass) {
	if afterEnqueueHook != nil {
		afterEnqueueHook(ref, class)
	}
}

// startWriteQueued enqueues a writer node and blocks until it is first in
// line with no active readers ahead of it.
func startWriteQueued(q *queuedState, backoff BackoffPolicy) (Token, error) {
	ref := q.pool.alloc()
	if ref == atomics.NoRef {
		return noToken, ErrPoolExhausted
	}
	n := q.node(ref)
	n.reset(classWrite)

	prev := atomics.RefOf(atomics.Exchange(&q.tail, int64(ref)))
	fireEnqueueHook(ref, classWrite)

	if prev == atomics.NoRef {
		// No predecessor in the queue. That alone doesn't mean no
		// readers are active, so register as the next writer and
		// re-check: if reader_count is still 0 *and* we are still
		// the registered next_writer, nobody raced us to clear it
		// via end_read's last-reader handoff, so we can proceed.
		atomics.Store(&q.nextWriter, int64(ref))
		if atomics.Load(&q.readerCount) == 0 &&
			atomics.RefOf(atomics.Exchange(&q.nextWriter, int64(atomics.NoRef))) == ref {
			atomics.And(&n.state, ^stateBlocked)
		}
	} else {
		p := q.node(prev)
		atomics.Or(&p.state, stateSuccWriter)
		p.publishNext(ref)
	}

	if atomics.Load(&n.state)&stateBlocked != 0 {
		spinWait(backoff, func() bool {
			return atomics.Load(&n.state)&stateBlocked == 0
		})
	}
	return Token(ref), nil
}

// endWriteQueued releases a writer's node, handing off to whatever
// successor (reader cohort or single writer) has linked in behind it.
func endWriteQueued(q *queuedState, tok Token) {
	ref := atomics.Ref(tok)
	n := q.node(ref)

	if n.nextRef() != atomics.NoRef || !atomics.CAS(&q.tail, int64(ref), int64(atomics.NoRef)) {
		tightSpin(func() bool { return n.nextRef() != atomics.NoRef })

		next := q.node(n.nextRef())
		if next.class == classRead {
			atomics.Add(&q.readerCount, 1)
		}
		atomics.And(&next.state, ^stateBlocked)
	}

	q.pool.free(ref)
}

// startReadQueued enqueues a reader node. It joins an already-running
// reader cohort immediately, waits behind a writer or a still-blocked
// reader otherwise, and then chain-wakes any reader registered behind it
// while it was blocked.
func startReadQueued(q *queuedState, backoff BackoffPolicy) (Token, error) {
	ref := q.pool.alloc()
	if ref == atomics.NoRef {
		return noToken, ErrPoolExhausted
	}
	n := q.node(ref)
	n.reset(classRead)

	prev := atomics.RefOf(atomics.Exchange(&q.tail, int64(ref)))
	fireEnqueueHook(ref, classRead)

	if prev == atomics.NoRef {
		atomics.Add(&q.readerCount, 1)
		atomics.And(&n.state, ^stateBlocked)
	} else {
		p := q.node(prev)

		if p.class == classWrite || atomics.CAS(&p.state, stateBlocked, stateBlocked|stateSuccReader) {
			// Predecessor is a writer, or a reader that is still
			// blocked: either way we must wait. The predecessor
			// (or whoever unblocks it) will bump reader_count on
			// our behalf and clear our blocked bit.
			p.publishNext(ref)
			if atomics.Load(&n.state)&stateBlocked != 0 {
				spinWait(backoff, func() bool {
					return atomics.Load(&n.state)&stateBlocked == 0
				})
			}
		} else {
			// Predecessor is an already-active reader: join the
			// cohort immediately.
			atomics.Add(&q.readerCount, 1)
			p.publishNext(ref)
			atomics.And(&n.state, ^stateBlocked)
		}
	}

	// Reader-chain wake propagation: if a reader registered behind us
	// while we were still blocked, our becoming active must chain-wake
	// it too, so a single predecessor unblock can cascade through an
	// entire contiguous run of readers.
	if atomics.Load(&n.state)&stateSuccReader != 0 {
		tightSpin(func() bool { return n.nextRef() != atomics.NoRef })
		atomics.Add(&q.readerCount, 1)
		next := q.node(n.nextRef())
		atomics.And(&next.state, ^stateBlocked)
	}

	return Token(ref), nil
}

// endReadQueued releases a reader's node. If it was the last active
// reader, it hands off to any waiting writer.
func endReadQueued(q *queuedState, tok Token) {
	ref := atomics.Ref(tok)
	n := q.node(ref)

	if n.nextRef() != atomics.NoRef || !atomics.CAS(&q.tail, int64(ref), int64(atomics.NoRef)) {
		tightSpin(func() bool { return n.nextRef() != atomics.NoRef })

		if atomics.Load(&n.state)&stateSuccWriter != 0 {
			atomics.Store(&q.nextWriter, int64(n.nextRef()))
		}
	}

	if atomics.FetchAdd(&q.readerCount, -1) == 1 {
		w := atomics.RefOf(atomics.Exchange(&q.nextWriter, int64(atomics.NoRef)))
		if w != atomics.NoRef {
			writer := q.node(w)
			atomics.And(&writer.state, ^stateBlocked)
		}
	}

	q.pool.free(ref)
}
