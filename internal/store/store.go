// Package store provides session persistence: durable key/value backends
// and the two-tier SessionStore the router depends on.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/epieletronica-png/wa-ia/internal/shared"
)

// Backend is a key/value store with per-key expiry.
//
// Every failure is returned as a *BackendError. A missing or expired key is
// not a failure: Get reports it with ok == false.
type Backend interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key. A ttl <= 0 means the key never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every live key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// BackendError wraps a failed backend operation.
type BackendError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Unavailable reports whether the failure looks like an outage rather than
// a bad value or query.
func (e *BackendError) Unavailable() bool {
	return shared.IsUnavailable(e.Err)
}

func backendErr(backend, op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Op: op, Key: key, Err: err}
}
