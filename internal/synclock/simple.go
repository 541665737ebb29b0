package synclock

import "github.com/rishav/synccore/internal/atomics"

// simpleState is Algorithm S's entire shared state: one machine word,
// bit 0 the writer-active flag, bits >=1 the reader count scaled by
// rcIncr (spec section 3). This is the "algorithm 1" reader-preference
// lock from Mellor-Crummey & Scott 1991, ported line-for-line in spirit
// from the reference implementation's non-QUEUED_LOCKS wg_start_write /
// wg_start_read / wg_end_write / wg_end_read.
type simpleState struct {
	syncWord atomics.Word
}

// initSimple zeroes the sync word. Single-threaded, called once at
// database init (spec section 4.2).
func initSimple(s *simpleState) {
	atomics.Store(&s.syncWord, 0)
}

// startWriteSimple acquires the lock for exclusive access, blocking until
// no writer and no reader holds it.
func startWriteSimple(s *simpleState, backoff BackoffPolicy) Token {
	if atomics.CAS(&s.syncWord, 0, waflag) {
		return 1
	}

	spinWait(backoff, func() bool {
		if atomics.Load(&s.syncWord) != 0 {
			return false
		}
		return atomics.CAS(&s.syncWord, 0, waflag)
	})
	return 1
}

// endWriteSimple releases the exclusive lock. No validation of the prior
// state is performed, matching the reference implementation: releasing a
// token not obtained from a successful start_write is a documented misuse
// (spec section 7), not a defended-against error.
func endWriteSimple(s *simpleState) {
	atomics.And(&s.syncWord, ^waflag)
}

// startReadSimple increments the reader count unconditionally, then waits
// for the writer flag to clear if one is currently set. The reader count
// is never decremented while waiting — this is the reader-preference
// property: a waiting reader keeps the count bumped so that, the instant
// the current writer releases, any newly-arriving writer already sees
// readers present and must wait behind them.
func startReadSimple(s *simpleState, backoff BackoffPolicy) Token {
	prior := atomics.FetchAdd(&s.syncWord, rcIncr)
	if prior&waflag == 0 {
		return 1
	}

	spinWait(backoff, func() bool {
		return atomics.Load(&s.syncWord)&waflag == 0
	})
	return 1
}

// endReadSimple decrements the reader count.
func endReadSimple(s *simpleState) {
	atomics.FetchAdd(&s.syncWord, -rcIncr)
}
