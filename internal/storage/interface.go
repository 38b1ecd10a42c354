package storage

import "errors"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("store closed")
	// ErrUnavailable is returned by the in-memory store while it simulates an outage.
	ErrUnavailable = errors.New("store unavailable")
)
