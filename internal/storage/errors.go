// Package storage holds shared storage errors used by the postgres tier
// table and the ClickHouse event archive.
package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)
