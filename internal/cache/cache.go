// Package cache memoizes generated payloads keyed by request fingerprint.
package cache

import (
	"errors"
	"time"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 15 * time.Minute

// ErrClosed is returned by backends after Close.
var ErrClosed = errors.New("cache: closed")

// Store is a TTL key/value cache. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value for key. Expired entries report a miss.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	// Sweep removes expired entries and returns how many were removed.
	Sweep() (int, error)
	Len() int
}

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

type entry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}
