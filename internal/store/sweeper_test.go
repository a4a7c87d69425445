package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for _, sweepErr := range []error{nil, errors.New("locked")} {
		ctx, cancel := context.WithCancel(context.Background())
		sw := &countingSweeper{err: sweepErr}
		done := StartSweeper(ctx, sw, 5*time.Millisecond, quietLogger())

		assert.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop")
		}
	}
}
