// Package synclock implements the database-wide reader/writer
// synchronization core: a single logical lock guarding an entire
// in-memory database image, admitting either an arbitrary number of
// concurrent readers or one exclusive writer. Two algorithms are
// available, chosen when the Lock is constructed:
//
//   - Algorithm S (NewSimple): a reader-preference lock built on one
//     shared counter word (Mellor-Crummey & Scott 1991, "algorithm 1").
//   - Algorithm Q (NewQueued): a locally-spinning, FIFO-queued
//     reader/writer lock (Mellor-Crummey & Scott 1991, "fair queued"),
//     backed by a lock-free node allocator.
//
// Every public method validates the Lock's segment.Handle first and
// touches no shared state at all if validation fails (ErrInvalidHandle).
// There is no deadlock detection, no acquire timeout/cancellation, no
// read-to-write upgrade, no reentrancy, and no priority inheritance — by
// design, not by oversight; see spec.md section 1's Non-goals.
package synclock

import (
	"github.com/rishav/synccore/internal/segment"
	"github.com/rs/zerolog"
)

// Algorithm selects which of the two lock implementations a Lock uses.
// It is fixed for the lifetime of a Lock, matching the reference
// implementation's QUEUED_LOCKS being a build-time #ifdef rather than a
// runtime switch.
type Algorithm int

const (
	// AlgorithmSimple is Algorithm S: the reader-preference lock.
	AlgorithmSimple Algorithm = iota
	// AlgorithmQueued is Algorithm Q: the FIFO-queued lock.
	AlgorithmQueued
)

// Option configures a Lock at construction time.
type Option func(*Lock)

// WithMetrics attaches Prometheus instrumentation. See Metrics for what is
// recorded and the fast-path guarantees around it.
func WithMetrics(m *Metrics) Option {
	return func(l *Lock) { l.metrics = m }
}

// WithLogger attaches a zerolog.Logger used only for off-hot-path
// diagnostics (currently: pool exhaustion). Without this option (the
// default) no diagnostics are logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Lock) { l.logger = &logger }
}

// WithBackoff overrides the default spin/sleep backoff policy. For
// Algorithm S this governs start_write/start_read spinning; for Algorithm
// Q it governs a queued waiter's local spin on its own node.
func WithBackoff(b BackoffPolicy) Option {
	return func(l *Lock) { l.backoff = b }
}

// Lock is the database-wide reader/writer synchronization core. The zero
// value is not usable; construct one with NewSimple or NewQueued.
type Lock struct {
	handle  segment.Handle
	algo    Algorithm
	backoff BackoffPolicy

	simple *simpleState
	queued *queuedState

	metrics *Metrics
	logger  *zerolog.Logger
}

// NewSimple constructs a Lock using Algorithm S over handle. InitLocks
// must be called once, single-threaded, before any start_read/start_write.
func NewSimple(handle segment.Handle, opts ...Option) *Lock {
	l := &Lock{
		handle:  handle,
		algo:    AlgorithmSimple,
		backoff: DefaultSimpleBackoff(),
		simple:  &simpleState{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewQueued constructs a Lock using Algorithm Q over handle, with a node
// pool sized for maxNodes concurrently pending/active waiters. InitLocks
// must be called once, single-threaded, before any start_read/start_write.
func NewQueued(handle segment.Handle, maxNodes int, opts ...Option) *Lock {
	l := &Lock{
		handle:  handle,
		algo:    AlgorithmQueued,
		backoff: DefaultQueuedBackoff(),
		queued:  initQueued(maxNodes),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Algorithm reports which algorithm this Lock was constructed with.
func (l *Lock) Algorithm() Algorithm {
	return l.algo
}

// InitLocks (re)initializes the shared lock state. It is not parallel
// safe and must complete before any other Lock method is called
// concurrently, matching spec section 4.2.
func (l *Lock) InitLocks() error {
	if !l.handle.Valid() {
		return ErrInvalidHandle
	}
	switch l.algo {
	case AlgorithmSimple:
		initSimple(l.simple)
	case AlgorithmQueued:
		l.queued = initQueued(l.queued.pool.arena.Cap())
	}
	return nil
}

// StartRead acquires a shared (reader) lock, blocking until no writer
// holds it. It returns a nonzero Token to hand back to EndRead.
func (l *Lock) StartRead() (Token, error) {
	if !l.handle.Valid() {
		return noToken, ErrInvalidHandle
	}

	var (
		tok Token
		err error
	)
	switch l.algo {
	case AlgorithmSimple:
		tok = startReadSimple(l.simple, l.backoff)
	case AlgorithmQueued:
		tok, err = startReadQueued(l.queued, l.backoff)
	}
	if err != nil {
		l.logPoolExhausted("start_read")
		l.metrics.observePoolExhausted()
		return noToken, err
	}
	l.metrics.observeReadAcquired()
	return tok, nil
}

// EndRead releases a reader lock acquired via StartRead. Releasing a
// token not obtained from a successful StartRead, double-releasing, or
// mismatching read/write releases are documented misuses the core does
// not defend against (spec section 7).
func (l *Lock) EndRead(tok Token) error {
	if !l.handle.Valid() {
		return ErrInvalidHandle
	}
	switch l.algo {
	case AlgorithmSimple:
		endReadSimple(l.simple)
	case AlgorithmQueued:
		endReadQueued(l.queued, tok)
	}
	l.metrics.observeReadReleased()
	return nil
}

// StartWrite acquires the exclusive (writer) lock, blocking until no
// reader and no other writer holds it. It returns a nonzero Token to hand
// back to EndWrite.
func (l *Lock) StartWrite() (Token, error) {
	if !l.handle.Valid() {
		return noToken, ErrInvalidHandle
	}

	var (
		tok Token
		err error
	)
	switch l.algo {
	case AlgorithmSimple:
		tok = startWriteSimple(l.simple, l.backoff)
	case AlgorithmQueued:
		tok, err = startWriteQueued(l.queued, l.backoff)
	}
	if err != nil {
		l.logPoolExhausted("start_write")
		l.metrics.observePoolExhausted()
		return noToken, err
	}
	l.metrics.observeWriteAcquired()
	return tok, nil
}

// EndWrite releases the exclusive lock acquired via StartWrite.
func (l *Lock) EndWrite(tok Token) error {
	if !l.handle.Valid() {
		return ErrInvalidHandle
	}
	switch l.algo {
	case AlgorithmSimple:
		endWriteSimple(l.simple)
	case AlgorithmQueued:
		endWriteQueued(l.queued, tok)
	}
	return nil
}

func (l *Lock) logPoolExhausted(op string) {
	if l.logger == nil {
		return
	}
	l.logger.Warn().Str("op", op).Msg("synclock: queue node pool exhausted")
}
