package synclock

// Bit layout for Algorithm S's single sync word (spec section 3).
const (
	// waflag is bit 0 of the sync word: set iff a writer holds the lock.
	waflag int64 = 0x1
	// rcIncr is the reader-count increment step; keeping it even leaves
	// bit 0 dedicated to waflag.
	rcIncr int64 = 0x2
)

// nodeClass tags what kind of waiter a queue node represents (Algorithm Q).
// The values intentionally reuse the same bit positions as the state hint
// flags below, matching the reference implementation's choice to let
// "class" and "successor hint" share encodings.
type nodeClass int32

const (
	classNone  nodeClass = 0x0
	classRead  nodeClass = 0x2
	classWrite nodeClass = 0x4
)

// Bits within a queue node's state word (Algorithm Q, spec section 3/4.4).
const (
	// stateBlocked is bit 0: the node's owner is still waiting to enter
	// its critical section.
	stateBlocked int64 = 0x1
	// stateSuccReader is bit 1: our successor, a reader, sets this on our
	// node while we are still blocked, so that we wake it once we become
	// active.
	stateSuccReader int64 = 0x2
	// stateSuccWriter is bit 2: our successor is a writer, so releasing
	// must hand off next_writer rather than just unblocking a reader.
	stateSuccWriter int64 = 0x4
)
