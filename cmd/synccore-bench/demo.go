package main

import (
	"fmt"
	"time"

	"github.com/rishav/synccore/internal/synclock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newDemoCmd(algo *string, newLogger func() zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the literal scenarios from the specification and print what happens",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			l, err := newLock(*algo, 8, synclock.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := l.InitLocks(); err != nil {
				return err
			}

			step := func(format string, a ...interface{}) {
				fmt.Printf(format+"\n", a...)
			}

			step("S1: single reader")
			tok, err := l.StartRead()
			if err != nil {
				return err
			}
			step("  start_read succeeded, token=%d", tok)
			if err := l.EndRead(tok); err != nil {
				return err
			}
			step("  end_read done")

			step("S2: single writer")
			tok, err = l.StartWrite()
			if err != nil {
				return err
			}
			step("  start_write succeeded, token=%d", tok)
			if err := l.EndWrite(tok); err != nil {
				return err
			}
			step("  end_write done")

			step("S3: writer blocks on active readers")
			r1, err := l.StartRead()
			if err != nil {
				return err
			}
			r2, err := l.StartRead()
			if err != nil {
				return err
			}
			writerDone := make(chan struct{})
			go func() {
				wtok, werr := l.StartWrite()
				if werr != nil {
					return
				}
				step("  writer acquired the lock after both readers released")
				_ = l.EndWrite(wtok)
				close(writerDone)
			}()
			time.Sleep(20 * time.Millisecond)
			step("  releasing reader 1")
			_ = l.EndRead(r1)
			time.Sleep(20 * time.Millisecond)
			step("  releasing reader 2")
			_ = l.EndRead(r2)
			<-writerDone

			return nil
		},
	}
}
