package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rishav/synccore/internal/synclock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRunCmd(algo *string, newLogger func() zerolog.Logger) *cobra.Command {
	var (
		workers  int
		duration time.Duration
		maxNodes int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a concurrent read/write stress benchmark (scenario S6)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			reg := prometheus.NewRegistry()
			metrics := synclock.NewMetrics(reg)

			l, err := newLock(*algo, maxNodes, synclock.WithLogger(logger), synclock.WithMetrics(metrics))
			if err != nil {
				return err
			}
			if err := l.InitLocks(); err != nil {
				return err
			}

			var reads, writes int64
			stop := make(chan struct{})
			var wg sync.WaitGroup
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
						if seed%3 == 0 {
							tok, err := l.StartWrite()
							if err != nil {
								continue
							}
							atomic.AddInt64(&writes, 1)
							_ = l.EndWrite(tok)
						} else {
							tok, err := l.StartRead()
							if err != nil {
								continue
							}
							atomic.AddInt64(&reads, 1)
							_ = l.EndRead(tok)
						}
						seed++
					}
				}(i)
			}

			time.Sleep(duration)
			close(stop)
			wg.Wait()

			fmt.Printf("algorithm=%s workers=%d duration=%s writes=%d reads=%d total=%d ops/sec=%.0f\n",
				*algo, workers, duration, writes, reads, writes+reads,
				float64(writes+reads)/duration.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 32, "number of concurrent goroutines")
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "how long to run the benchmark")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 256, "queue node pool capacity (algorithm queued only)")
	return cmd
}
