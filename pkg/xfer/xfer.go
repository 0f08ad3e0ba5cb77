// Package xfer runs individual USB transfers under a fixed deadline, so that
// a wedged device can never hang the host side of a session.
package xfer

import (
	"errors"
	"time"
)

// Deadline applied to every control and bulk transfer.
const Deadline = 5 * time.Second

// ErrTimeout is returned when a transfer does not complete before its
// deadline.
var ErrTimeout = errors.New("transfer timed out")

type result struct {
	n   int
	err error
}

// Timed races op against a timer of duration d and returns whichever
// finishes first: the operation's own result, or ErrTimeout. A losing
// transfer is simply abandoned; nothing is sent to the device to cancel it,
// and each transfer is independently retriable by the caller.
func Timed(d time.Duration, op func() (int, error)) (int, error) {
	done := make(chan result, 1)
	go func() {
		n, err := op()
		done <- result{n: n, err: err}
	}()
	select {
	case r := <-done:
		return r.n, r.err
	case <-time.After(d):
		return 0, ErrTimeout
	}
}
