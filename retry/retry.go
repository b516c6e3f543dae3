// Copyright 2026, Square, Inc.

// Package retry calls a function until it succeeds.
package retry

import (
	"context"
	"time"
)

type TryFunc func() error
type LogFunc func(try int, err error)

// Do calls tryFunc up to tries times, sleeping between calls, and returns the
// last error. logFunc (optional) is called with every error but the last. It
// stops early, returning ctx.Err(), if ctx is done while sleeping.
func Do(ctx context.Context, tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	var err error
	for try := 1; ; try++ {
		if err = tryFunc(); err == nil || try >= tries {
			return err
		}
		if logFunc != nil {
			logFunc(try, err)
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
