package synclock

import (
	"sync"
	"testing"
	"time"

	"github.com/rishav/synccore/internal/atomics"
	"github.com/rishav/synccore/internal/segment"
	"github.com/stretchr/testify/require"
)

func newSimpleLock(t *testing.T) *Lock {
	t.Helper()
	l := NewSimple(segment.NewHandle(nil))
	require.NoError(t, l.InitLocks())
	return l
}

// TestSimpleSingleReader is literal scenario S1.
func TestSimpleSingleReader(t *testing.T) {
	l := newSimpleLock(t)

	tok, err := l.StartRead()
	require.NoError(t, err)
	require.NotZero(t, tok)
	require.Equal(t, rcIncr, atomics.Load(&l.simple.syncWord))

	require.NoError(t, l.EndRead(tok))
	require.Equal(t, int64(0), atomics.Load(&l.simple.syncWord))
}

// TestSimpleSingleWriter is literal scenario S2.
func TestSimpleSingleWriter(t *testing.T) {
	l := newSimpleLock(t)

	tok, err := l.StartWrite()
	require.NoError(t, err)
	require.NotZero(t, tok)
	require.Equal(t, waflag, atomics.Load(&l.simple.syncWord))

	require.NoError(t, l.EndWrite(tok))
	require.Equal(t, int64(0), atomics.Load(&l.simple.syncWord))
}

// TestSimpleWriterBlocksOnActiveReaders is literal scenario S3: a writer
// must not return until both readers have released.
func TestSimpleWriterBlocksOnActiveReaders(t *testing.T) {
	l := newSimpleLock(t)

	r1, err := l.StartRead()
	require.NoError(t, err)
	r2, err := l.StartRead()
	require.NoError(t, err)
	require.Equal(t, 2*rcIncr, atomics.Load(&l.simple.syncWord))

	writerDone := make(chan Token, 1)
	go func() {
		tok, err := l.StartWrite()
		require.NoError(t, err)
		writerDone <- tok
	}()

	// The writer must still be blocked a moment later.
	select {
	case <-writerDone:
		t.Fatalf("writer returned while readers were still active")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, l.EndRead(r1))
	// One reader remains: writer must still be blocked.
	select {
	case <-writerDone:
		t.Fatalf("writer returned while a reader was still active")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, l.EndRead(r2))

	var writerTok Token
	select {
	case writerTok = <-writerDone:
	case <-time.After(time.Second):
		t.Fatalf("writer never acquired the lock after both readers released")
	}
	require.Equal(t, waflag, atomics.Load(&l.simple.syncWord))
	require.NoError(t, l.EndWrite(writerTok))
	require.Equal(t, int64(0), atomics.Load(&l.simple.syncWord))
}

// TestSimpleConcurrentStress is scenario S6 under Algorithm S: readers
// must always observe the value left by the immediately preceding writer,
// and the final counter must equal the number of completed writes.
func TestSimpleConcurrentStress(t *testing.T) {
	l := newSimpleLock(t)

	const workers = 32
	const duration = 200 * time.Millisecond

	var (
		counter    int64
		writeCount int64
		stop       = make(chan struct{})
		wg         sync.WaitGroup
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(seed int) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if seed%2 == 0 {
					tok, err := l.StartWrite()
					require.NoError(t, err)
					counter++
					writeCount++
					require.NoError(t, l.EndWrite(tok))
				} else {
					tok, err := l.StartRead()
					require.NoError(t, err)
					require.Equal(t, writeCount, counter) // read under the shared lock
					require.NoError(t, l.EndRead(tok))
				}
				seed++
			}
		}(i)
	}

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	require.Equal(t, writeCount, counter)
}
