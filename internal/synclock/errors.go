package synclock

import "errors"

// ErrInvalidHandle is returned when the caller's segment.Handle fails its
// Valid() predicate. No shared state is touched before this is returned,
// matching the reference implementation's dbcheck(db) early-return.
var ErrInvalidHandle = errors.New("synclock: invalid segment handle")

// ErrPoolExhausted is returned by start_read/start_write under Algorithm Q
// when the queue-node freelist is empty. It never occurs under Algorithm
// S, which needs no node allocation.
var ErrPoolExhausted = errors.New("synclock: queue node pool exhausted")

// Token is the opaque, nonzero value a successful start_read/start_write
// returns and the matching end_read/end_write must be given back. Under
// Algorithm S it carries no information beyond "non-zero"; under Algorithm
// Q it is the 1-based offset of the queue node the caller now owns.
type Token int64

// noToken is the zero Token, returned on every failure path.
const noToken Token = 0
