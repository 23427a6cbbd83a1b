// Package cache stores computed prayer times and other small values in a
// durable key-value store.
//
// Store is the backend contract. FileStore (one JSON file per key), SQLStore
// (sqlite or postgres) and RedisStore implement it; LRU bounds memory in
// front of any of them. Records layers prayer-record semantics on top.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("cache: key not found")

// Store is a durable string-keyed byte store. Implementations must be safe
// for concurrent use. Put is last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with prefix. An empty prefix clears
	// everything the store owns.
	Clear(ctx context.Context, prefix string) error
	// Keys lists the keys starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// validateKey keeps keys safe to use as file names and in LIKE patterns.
func validateKey(key string) error {
	if key == "" {
		return errors.New("cache: empty key")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(":-.", r):
		default:
			return fmt.Errorf("cache: invalid character %q in key %q", r, key)
		}
	}
	return nil
}
