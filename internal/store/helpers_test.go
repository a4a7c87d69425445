package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// downBackend fails every operation as an unreachable server would.
type downBackend struct {
	mu    sync.Mutex
	calls []string
	// failOps limits failures to the listed ops; empty means fail all.
	failOps map[string]bool
	healthy bool
	inner   *MemoryBackend
}

func newDownBackend(ops ...string) *downBackend {
	d := &downBackend{failOps: make(map[string]bool), inner: NewMemoryBackend(nil)}
	for _, op := range ops {
		d.failOps[op] = true
	}
	return d
}

func (d *downBackend) fail(op, key string) error {
	d.mu.Lock()
	d.calls = append(d.calls, op+" "+key)
	healthy := d.healthy
	d.mu.Unlock()
	if healthy || (len(d.failOps) > 0 && !d.failOps[op]) {
		return nil
	}
	return &BackendError{Backend: "fake", Op: op, Key: key, Err: syscall.ECONNREFUSED}
}

// Recover makes every later operation succeed.
func (d *downBackend) Recover() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.healthy = true
}

func (d *downBackend) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *downBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := d.fail("get", key); err != nil {
		return "", false, err
	}
	return d.inner.Get(ctx, key)
}

func (d *downBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := d.fail("set", key); err != nil {
		return err
	}
	return d.inner.Set(ctx, key, value, ttl)
}

func (d *downBackend) Delete(ctx context.Context, key string) error {
	if err := d.fail("delete", key); err != nil {
		return err
	}
	return d.inner.Delete(ctx, key)
}

func (d *downBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := d.fail("keys", prefix); err != nil {
		return nil, err
	}
	return d.inner.Keys(ctx, prefix)
}

func (d *downBackend) Ping(context.Context) error {
	return errors.New("down")
}

func (d *downBackend) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
