package cache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU keeps the most recently used entries of a backing Store in memory.
// Writes go through to the backing store first.
type LRU struct {
	next  Store
	items *lru.Cache[string, []byte]
}

// NewLRU wraps next with an in-memory cache of at most size entries.
func NewLRU(next Store, size int) (*LRU, error) {
	items, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("cache: lru: %w", err)
	}
	return &LRU{next: next, items: items}, nil
}

// Get implements Store.
func (l *LRU) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := l.items.Get(key); ok {
		return v, nil
	}
	v, err := l.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	l.items.Add(key, v)
	return v, nil
}

// Put implements Store.
func (l *LRU) Put(ctx context.Context, key string, value []byte) error {
	if err := l.next.Put(ctx, key, value); err != nil {
		// The backing store may or may not hold the new value.
		l.items.Remove(key)
		return err
	}
	l.items.Add(key, value)
	return nil
}

// Delete implements Store.
func (l *LRU) Delete(ctx context.Context, key string) error {
	l.items.Remove(key)
	return l.next.Delete(ctx, key)
}

// Clear implements Store.
func (l *LRU) Clear(ctx context.Context, prefix string) error {
	for _, k := range l.items.Keys() {
		if strings.HasPrefix(k, prefix) {
			l.items.Remove(k)
		}
	}
	return l.next.Clear(ctx, prefix)
}

// Keys implements Store. It always asks the backing store.
func (l *LRU) Keys(ctx context.Context, prefix string) ([]string, error) {
	return l.next.Keys(ctx, prefix)
}

// Len is the number of entries held in memory.
func (l *LRU) Len() int {
	return l.items.Len()
}

// Close implements Store.
func (l *LRU) Close() error {
	l.items.Purge()
	return l.next.Close()
}
