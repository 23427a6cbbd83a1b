package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// Key namespaces.
const (
	PrayerPrefix = "prayer:"
	GeoPrefix    = "geo:"
)

// ErrStale is returned by Records.Put when the record was computed under a
// settings generation that is no longer current.
var ErrStale = errors.New("cache: record generation is stale")

// Records stores one prayer.Record per calendar date.
//
// A write carries the generation it was computed under and is dropped if the
// generation has moved on. Put and Clear are serialised against each other so
// a write that passed the check cannot land after the clear that invalidated it.
type Records struct {
	store      Store
	generation func() uint64

	mu sync.RWMutex
}

// NewRecords wraps store. generation reports the current settings generation.
func NewRecords(store Store, generation func() uint64) *Records {
	return &Records{store: store, generation: generation}
}

// PrayerKey is the cache key of a "YYYY-MM-DD" date.
func PrayerKey(date string) string {
	return PrayerPrefix + date
}

// Get returns the record for date. A record computed under different settings
// than fingerprint is reported as ErrNotFound, as is a corrupt entry.
func (r *Records) Get(ctx context.Context, date, fingerprint string) (prayer.Record, error) {
	data, err := r.store.Get(ctx, PrayerKey(date))
	if err != nil {
		return prayer.Record{}, err
	}

	var rec prayer.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return prayer.Record{}, ErrNotFound
	}
	if rec.Date != date || rec.Fingerprint != fingerprint {
		return prayer.Record{}, ErrNotFound
	}
	return rec, nil
}

// Put stores rec under its date unless rec.Generation is stale.
func (r *Records) Put(ctx context.Context, rec prayer.Record) error {
	if strings.TrimSpace(rec.Date) == "" {
		return errors.New("cache: record has no date")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cur := r.generation(); rec.Generation != cur {
		return fmt.Errorf("%w: record %d, current %d", ErrStale, rec.Generation, cur)
	}
	return r.store.Put(ctx, PrayerKey(rec.Date), data)
}

// Clear removes every prayer record. Other namespaces are untouched.
func (r *Records) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Clear(ctx, PrayerPrefix)
}

// Invalidate runs fn, which is expected to move the generation forward, and
// clears the records while no Put can interleave.
func (r *Records) Invalidate(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return r.store.Clear(ctx, PrayerPrefix)
}

// Dates lists the dates that have a stored record, ascending.
func (r *Records) Dates(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, PrayerPrefix)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(keys))
	for _, k := range keys {
		dates = append(dates, strings.TrimPrefix(k, PrayerPrefix))
	}
	slices.Sort(dates)
	return dates, nil
}
