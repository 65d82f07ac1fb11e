package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform means push or notification support is absent
	// in this environment. Callers degrade, they never crash on it.
	ErrUnsupportedPlatform = errors.New("push notifications are not supported on this platform")

	// ErrPermissionDenied means the user declined notification permission.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrNotConnected means an operation was attempted against a dead or
	// absent realtime connection. Surfaced synchronously: this is a caller
	// bug, not a transient condition.
	ErrNotConnected = errors.New("socket not connected, call Connect first")
)

// TransportError wraps a network-level failure on the realtime connection.
// These are retried automatically by the reconnect policy and only surface
// once retries are exhausted or on an initial connect.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendSyncError means the push subscription exists locally but the
// backend did not acknowledge it. Local state is intentionally not rolled
// back; the caller owns the retry decision.
type BackendSyncError struct {
	StatusCode int
	Err        error
}

func (e *BackendSyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("push subscription sync failed: %v", e.Err)
	}
	return fmt.Sprintf("push subscription sync failed: backend returned %d", e.StatusCode)
}

func (e *BackendSyncError) Unwrap() error { return e.Err }
