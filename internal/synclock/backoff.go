package synclock

import (
	"runtime"
	"time"
)

// BackoffPolicy controls how a spinning start_read/start_write retries
// while it waits for a condition to become true. Every pass runs SpinCount
// opaque-load iterations (each yielding the scheduler, standing in for the
// reference implementation's x86 PAUSE instruction, the way
// github.com/ahrav/go-locks's MCS lock uses runtime.Gosched() in its own
// local-spin loop) before sleeping for an additively-growing duration.
//
// No pass of the inner spin may run longer than a few microseconds of wall
// time before yielding; that bound, not any particular SpinCount value, is
// the actual portability contract from the spec.
type BackoffPolicy struct {
	// SpinCount is the number of opaque-load iterations per pass before
	// the first sleep.
	SpinCount int

	// InitialSleep is the duration slept after the first failed pass.
	InitialSleep time.Duration

	// SleepIncrement is added to the sleep duration after every
	// subsequent failed pass (additive backoff).
	SleepIncrement time.Duration
}

// DefaultSimpleBackoff matches the reference implementation's non-Windows
// Algorithm S tuning: SPIN_COUNT=500, initial/incremental sleep of 500µs.
func DefaultSimpleBackoff() BackoffPolicy {
	return BackoffPolicy{
		SpinCount:      500,
		InitialSleep:   500 * time.Microsecond,
		SleepIncrement: 500 * time.Microsecond,
	}
}

// DefaultQueuedBackoff matches the reference implementation's non-Windows
// Algorithm Q tuning: same SPIN_COUNT, but the initial/incremental sleep is
// effectively "just deschedule" (SLEEP_NSEC=1), since a queued waiter spins
// only on its own node's state word.
func DefaultQueuedBackoff() BackoffPolicy {
	return BackoffPolicy{
		SpinCount:      500,
		InitialSleep:   time.Nanosecond,
		SleepIncrement: time.Nanosecond,
	}
}

// spinWait repeatedly calls cond until it returns true, backing off
// between passes according to p. cond must be a cheap, side-effect-free
// spin-observation read (see atomics.Load) paired with whatever real
// atomic op actually established the condition.
func spinWait(p BackoffPolicy, cond func() bool) {
	sleep := p.InitialSleep
	for {
		for i := 0; i < p.SpinCount; i++ {
			if cond() {
				return
			}
			runtime.Gosched()
		}
		time.Sleep(sleep)
		sleep += p.SleepIncrement
	}
}

// tightSpin busy-waits on cond with no backoff at all: used only for the
// brief window in end_write/end_read, and in start_read's reader-chain
// wake, where a successor is known to be actively publishing its link
// (waiting until n.next != 0), which the reference implementation spins on
// with a bare `while(!lockp->next);`.
func tightSpin(cond func() bool) {
	for !cond() {
		runtime.Gosched()
	}
}
