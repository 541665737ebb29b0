package synclock

import (
	"testing"
	"time"

	"github.com/rishav/synccore/internal/atomics"
	"github.com/rishav/synccore/internal/segment"
	"github.com/stretchr/testify/require"
)

func newQueuedLock(t *testing.T, maxNodes int) *Lock {
	t.Helper()
	l := NewQueued(segment.NewHandle(nil), maxNodes)
	require.NoError(t, l.InitLocks())
	return l
}

// TestQueuedFIFOOrdering is literal scenario S4: enqueuing W1, R1, R2, W2,
// R3 in that arrival order must execute as W1 alone, then R1+R2
// concurrently (reader_count == 2 during that phase), then W2 alone, then
// R3 alone.
func TestQueuedFIFOOrdering(t *testing.T) {
	l := newQueuedLock(t, 8)

	type waiter struct {
		name    string
		write   bool
		release chan struct{}
	}
	waiters := []waiter{
		{"W1", true, make(chan struct{})},
		{"R1", false, make(chan struct{})},
		{"R2", false, make(chan struct{})},
		{"W2", true, make(chan struct{})},
		{"R3", false, make(chan struct{})},
	}

	entered := make(chan string, len(waiters))
	enqueued := make(chan struct{}, 1)
	afterEnqueueHook = func(ref atomics.Ref, class nodeClass) {
		select {
		case enqueued <- struct{}{}:
		default:
		}
	}
	defer func() { afterEnqueueHook = nil }()

	waitEnqueued := func() {
		select {
		case <-enqueued:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for enqueue hook")
		}
	}
	waitEntered := func() string {
		select {
		case name := <-entered:
			return name
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for a waiter to enter its critical section")
			return ""
		}
	}

	spawn := func(w waiter) {
		go func() {
			var (
				tok Token
				err error
			)
			if w.write {
				tok, err = l.StartWrite()
			} else {
				tok, err = l.StartRead()
			}
			require.NoError(t, err)
			entered <- w.name
			<-w.release
			if w.write {
				require.NoError(t, l.EndWrite(tok))
			} else {
				require.NoError(t, l.EndRead(tok))
			}
		}()
	}

	// Enqueue strictly in order W1, R1, R2, W2, R3: wait for each one's
	// tail-exchange to fire before spawning the next.
	for _, w := range waiters {
		spawn(w)
		waitEnqueued()
	}

	// W1 has no predecessor and no active readers: it must run alone
	// first.
	require.Equal(t, "W1", waitEntered())

	// R1 and R2 must become active together, as a cohort, once W1
	// releases.
	close(waiters[0].release)
	first := waitEntered()
	second := waitEntered()
	require.ElementsMatch(t, []string{"R1", "R2"}, []string{first, second})
	require.Equal(t, int64(2), atomics.Load(&l.queued.readerCount))

	// W2 must not be able to run until both readers have released.
	close(waiters[1].release)
	close(waiters[2].release)
	require.Equal(t, "W2", waitEntered())

	close(waiters[3].release)
	require.Equal(t, "R3", waitEntered())
	close(waiters[4].release)
}

// TestQueuedPoolExhaustion is literal scenario S5.
func TestQueuedPoolExhaustion(t *testing.T) {
	l := newQueuedLock(t, 2)

	t1, err := l.StartRead()
	require.NoError(t, err)
	t2, err := l.StartRead()
	require.NoError(t, err)

	_, err = l.StartRead()
	require.ErrorIs(t, err, ErrPoolExhausted)

	require.NoError(t, l.EndRead(t1))

	t3, err := l.StartRead()
	require.NoError(t, err)

	require.NoError(t, l.EndRead(t2))
	require.NoError(t, l.EndRead(t3))
}

// TestQueuedWriterWaitsForActiveReaders checks that a writer queued behind
// an active reader (the reader's node is still the tail, so the writer takes
// the has-a-predecessor path in startWriteQueued) waits until the reader's
// end_read hands off via next_writer.
func TestQueuedWriterWaitsForActiveReaders(t *testing.T) {
	l := newQueuedLock(t, 4)

	r, err := l.StartRead()
	require.NoError(t, err)

	writerDone := make(chan Token, 1)
	go func() {
		tok, err := l.StartWrite()
		require.NoError(t, err)
		writerDone <- tok
	}()

	select {
	case <-writerDone:
		t.Fatalf("writer acquired the lock while a reader was active")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, l.EndRead(r))

	select {
	case tok := <-writerDone:
		require.NoError(t, l.EndWrite(tok))
	case <-time.After(time.Second):
		t.Fatalf("writer never acquired the lock after the reader released")
	}
}

// TestQueuedConcurrentStress is scenario S6 under Algorithm Q.
func TestQueuedConcurrentStress(t *testing.T) {
	l := newQueuedLock(t, 64)

	const workers = 32
	const duration = 200 * time.Millisecond

	var counter, writeCount int64
	stop := make(chan struct{})
	done := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		go func(seed int) {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if seed%3 == 0 {
					tok, err := l.StartWrite()
					require.NoError(t, err)
					counter++
					writeCount++
					require.NoError(t, l.EndWrite(tok))
				} else {
					tok, err := l.StartRead()
					require.NoError(t, err)
					_ = counter
					require.NoError(t, l.EndRead(tok))
				}
				seed++
			}
		}(i)
	}

	time.Sleep(duration)
	close(stop)
	for i := 0; i < workers; i++ {
		<-done
	}

	require.Equal(t, writeCount, counter)
}
