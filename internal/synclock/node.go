package synclock

import "github.com/rishav/synccore/internal/atomics"

// cacheLinePad is sized to prevent false sharing between adjacent queue
// nodes, the Go equivalent of the reference implementation's
// SYN_VAR_PADDING. Queue nodes are locally spun on (each waiter only reads
// its own node's state word), so keeping neighboring nodes off the same
// cache line is what makes that local spinning actually cheap; see
// rishav/order-matching-engine's RingBufferSlot, which pads for the same
// reason on a much hotter path.
const cacheLinePad = 24

// qnode is a single Algorithm-Q queue node: a pending or active lock
// request. It lives inside a pool-backed segment.Arena and is always
// addressed by atomics.Ref, never by Go pointer held across a release —
// the arena slice backing it is never resized or moved, but ownership of
// a given cell passes between goroutines, so holding on to a *qnode past
// the paired end_read/end_write is a misuse the core does not guard
// against (see spec section 7).
type qnode struct {
	// class records whether this node represents a reader or a writer.
	// Written once before the node is published (linked into the queue)
	// and only read afterward, so it needs no atomic wrapper.
	class nodeClass

	// state packs the blocked bit and the successor-class hint bits
	// (see const.go). This is the only field a waiter spins on, and it
	// is always touched through the atomics package.
	state atomics.Word

	// next is the Ref of this node's successor in the queue, or NoRef
	// until a successor links itself in.
	next atomics.Word

	// nextCell is freelist linkage. Only meaningful while the node is
	// on the freelist; the pool never touches it while a node is live.
	nextCell atomics.Ref

	// refcount's even part counts outstanding observers of this cell;
	// bit 0 is the "currently on freelist, no external owner" claim bit.
	refcount atomics.Word

	_ [cacheLinePad]byte
}

func (n *qnode) reset(class nodeClass) {
	n.class = class
	atomics.Store(&n.next, int64(atomics.NoRef))
	atomics.Store(&n.state, stateBlocked)
}

func (n *qnode) nextRef() atomics.Ref {
	return atomics.RefOf(atomics.Load(&n.next))
}

func (n *qnode) publishNext(ref atomics.Ref) {
	atomics.Store(&n.next, atomics.WordOf(ref))
}
