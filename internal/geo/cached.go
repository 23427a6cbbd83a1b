package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/masjid-times/internal/cache"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

// DefaultTTL is how long a detected location is reused.
const DefaultTTL = 24 * time.Hour

// cacheKey holds the last detected location.
const cacheKey = cache.GeoPrefix + "location"

// entry stores a cached geolocation result with a timestamp.
type entry struct {
	Location Location  `json:"location"`
	CachedAt time.Time `json:"cached_at"`
}

// Cached reuses a detected location for TTL.
type Cached struct {
	next  Provider
	store cache.Store
	ttl   time.Duration
	clock clockwork.Clock
	log   zerolog.Logger
}

// NewCached wraps next with a store-backed cache.
func NewCached(next Provider, store cache.Store, ttl time.Duration, clock clockwork.Clock, log zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cached{next: next, store: store, ttl: ttl, clock: clock, log: log}
}

// Detect implements Provider. A cache read or write failure only costs a
// lookup.
func (c *Cached) Detect(ctx context.Context) (Location, error) {
	if loc, ok := c.load(ctx); ok {
		return loc, nil
	}

	loc, err := c.next.Detect(ctx)
	if err != nil {
		return Location{}, err
	}

	data, err := json.Marshal(entry{Location: loc, CachedAt: c.clock.Now()})
	if err == nil {
		err = c.store.Put(ctx, cacheKey, data)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to cache geolocation")
	}
	return loc, nil
}

func (c *Cached) load(ctx context.Context) (Location, bool) {
	data, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Warn().Err(err).Msg("failed to read cached geolocation")
		}
		return Location{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Location{}, false
	}
	if c.clock.Since(e.CachedAt) > c.ttl {
		return Location{}, false
	}
	return e.Location, true
}

// Resolve detects the location, falling back when detection fails. The
// returned error is nil on success and wraps ErrLocationUnresolved otherwise.
func Resolve(ctx context.Context, p Provider, fallback settings.Location) (settings.Location, error) {
	loc, err := p.Detect(ctx)
	if err != nil {
		return fallback, err
	}
	s := loc.Settings()
	if err := s.Validate(); err != nil {
		return fallback, errors.Join(ErrLocationUnresolved, err)
	}
	return s, nil
}
