// Package service computes, caches and serves prayer times.
//
// Service is the single entry point used by the CLI, the HTTP API, the
// background daemon and the trigger. Reads are cache-first by local date;
// misses are computed with the current settings and written through.
// Settings changes bump the generation, clear the cache and start a fresh
// preload.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/smokyabdulrahman/masjid-times/internal/cache"
	"github.com/smokyabdulrahman/masjid-times/internal/hijri"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// DefaultPreloadMonths is the background preload window after a settings change.
const DefaultPreloadMonths = 2

// stale writes are retried this many times with the newer settings.
const maxStaleRetries = 3

// Options configures New. Zero values select defaults.
type Options struct {
	Clock         clockwork.Clock
	Logger        zerolog.Logger
	PreloadMonths int
}

// Service owns prayer-time reads and settings changes.
type Service struct {
	calc     solar.Calculator
	settings *settings.Store
	records  *cache.Records
	clock    clockwork.Clock
	log      zerolog.Logger
	months   int

	flight singleflight.Group

	mu            sync.Mutex
	base          context.Context
	cancelPreload context.CancelFunc
	wg            sync.WaitGroup
}

// New wires a Service. records must be built on the same settings store's
// generation.
func New(calc solar.Calculator, store *settings.Store, records *cache.Records, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PreloadMonths <= 0 {
		opts.PreloadMonths = DefaultPreloadMonths
	}
	return &Service{
		calc:     calc,
		settings: store,
		records:  records,
		clock:    opts.Clock,
		log:      opts.Logger.With().Str("component", "service").Logger(),
		months:   opts.PreloadMonths,
		base:     context.Background(),
	}
}

// Start binds background work to ctx and begins the initial preload.
// It returns immediately.
func (s *Service) Start(ctx context.Context) {
	s.Bind(ctx)
	s.StartPreload(s.months)
}

// Bind ties background preloads to ctx without starting one. Preloads
// already running keep their old context.
func (s *Service) Bind(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
}

// Wait blocks until background preloads have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Clock is the service's time source.
func (s *Service) Clock() clockwork.Clock {
	return s.clock
}

// Settings returns the current settings snapshot.
func (s *Service) Settings() settings.Snapshot {
	return s.settings.Current()
}

// Zone is the timezone of the configured location.
func (s *Service) Zone() (*time.Location, error) {
	return s.settings.Current().Location.Zone()
}

// Today is the current calendar date in the configured zone, at noon.
func (s *Service) Today() (time.Time, error) {
	zone, err := s.Zone()
	if err != nil {
		return time.Time{}, err
	}
	return civil(s.clock.Now().In(zone)), nil
}

// ParseDate parses "YYYY-MM-DD" as a date in the configured zone.
func (s *Service) ParseDate(raw string) (time.Time, error) {
	zone, err := s.Zone()
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation(prayer.DateLayout, strings.TrimSpace(raw), zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return civil(d), nil
}

// GetPrayerTimes returns the record for the calendar date of date (in date's
// own location). A cached record is served only when its fingerprint matches
// the current settings; anything else is recomputed. Generations are process
// local and only guard writes.
func (s *Service) GetPrayerTimes(ctx context.Context, date time.Time) (prayer.Record, error) {
	key := prayer.Key(date)

	for range maxStaleRetries {
		snap := s.settings.Current()

		rec, err := s.records.Get(ctx, key, snap.Fingerprint())
		switch {
		case err == nil:
			return rec, nil
		case !errors.Is(err, cache.ErrNotFound):
			s.log.Warn().Err(err).Str("date", key).Msg("cache read failed, recomputing")
		}

		// The shared calculation outlives any one caller; each caller still
		// gives up when its own context ends.
		ch := s.flight.DoChan(fmt.Sprintf("%s@%d", key, snap.Generation), func() (any, error) {
			return s.computeAndStore(context.WithoutCancel(ctx), snap, date)
		})
		var res singleflight.Result
		select {
		case <-ctx.Done():
			return prayer.Record{}, ctx.Err()
		case res = <-ch:
		}

		if res.Err == nil {
			return res.Val.(prayer.Record), nil
		}
		if !errors.Is(res.Err, cache.ErrStale) {
			return prayer.Record{}, res.Err
		}
		s.log.Debug().Str("date", key).Msg("settings changed during calculation, retrying")
	}

	return prayer.Record{}, fmt.Errorf("%s: settings kept changing: %w", key, cache.ErrStale)
}

func (s *Service) computeAndStore(ctx context.Context, snap settings.Snapshot, date time.Time) (prayer.Record, error) {
	rec, err := s.compute(ctx, snap, date)
	if err != nil {
		return prayer.Record{}, err
	}

	if err := s.records.Put(ctx, rec); err != nil {
		if errors.Is(err, cache.ErrStale) {
			return prayer.Record{}, err
		}
		s.log.Warn().Err(err).Str("date", rec.Date).Msg("cache write failed")
	}
	return rec, nil
}

// compute builds a record for date under snap without touching the cache.
func (s *Service) compute(ctx context.Context, snap settings.Snapshot, date time.Time) (prayer.Record, error) {
	key := prayer.Key(date)
	zone, err := snap.Location.Zone()
	if err != nil {
		return prayer.Record{}, err
	}
	y, m, d := date.Date()
	day := time.Date(y, m, d, 12, 0, 0, 0, zone)

	at := solar.Coordinates{
		Latitude:  snap.Location.Latitude,
		Longitude: snap.Location.Longitude,
		Elevation: snap.Location.Elevation,
		Zone:      zone,
	}
	times, err := s.calc.Calculate(ctx, day, at, snap.Calculation.Params())
	if err != nil {
		if ctx.Err() != nil {
			return prayer.Record{}, err
		}
		return prayer.Record{}, fmt.Errorf("%s: %w: %w", key, ErrCalculationUnavailable, err)
	}

	calc := snap.Calculation
	rec := prayer.Record{
		Date:              key,
		Times:             make(map[string]string, len(prayer.Names)),
		Iqamah:            make(map[string]string, len(prayer.Names)),
		Location:          snap.Location.Label(),
		Timezone:          zone.String(),
		CalculationMethod: calc.Method,
		Generation:        snap.Generation,
		Fingerprint:       snap.Fingerprint(),
		LastUpdated:       s.clock.Now().UTC(),
	}

	for _, name := range prayer.Names {
		lower := strings.ToLower(name)
		t, ok := times.Prayers[name]
		if !ok {
			rec.Unavailable = append(rec.Unavailable, lower)
			if cause := times.Unavailable[name]; cause != nil {
				s.log.Debug().Err(cause).Str("date", key).Str("prayer", name).Msg("prayer unavailable")
			}
			continue
		}

		t = t.In(zone).Add(time.Duration(calc.Adjustments.For(name)) * time.Minute)
		if !sameDate(t, day) {
			rec.Unavailable = append(rec.Unavailable, lower)
			continue
		}
		rec.Times[lower] = prayer.FormatHHMM(t)

		if name == prayer.Sunrise {
			continue
		}
		if iq := t.Add(time.Duration(calc.IqamahDelays.For(name)) * time.Minute); sameDate(iq, day) {
			rec.Iqamah[lower] = prayer.FormatHHMM(iq)
		}
	}

	if len(rec.Times) == 0 {
		return prayer.Record{}, fmt.Errorf("%s: %w", key, ErrCalculationUnavailable)
	}
	if len(rec.Iqamah) == 0 {
		rec.Iqamah = nil
	}

	rec.HijriDate = times.HijriDate
	if rec.HijriDate == "" {
		rec.HijriDate = hijri.Converter{Offset: calc.HijriOffset}.FromGregorian(day).String()
	}

	return rec, nil
}

// GetPrayerTimesRange returns one record per day from start to end inclusive,
// ascending.
func (s *Service) GetPrayerTimesRange(ctx context.Context, start, end time.Time) ([]prayer.Record, error) {
	first, last := civil(start), civil(end.In(start.Location()))
	if last.Before(first) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, prayer.Key(end), prayer.Key(start))
	}

	var out []prayer.Record
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		rec, err := s.GetPrayerTimes(ctx, day)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// NextPrayer returns the current and next prayer at now, looking at
// yesterday and tomorrow across midnight.
func (s *Service) NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error) {
	zone, err := s.Zone()
	if err != nil {
		return prayer.Selection{}, err
	}
	today := civil(now.In(zone))

	days := make([][]prayer.Prayer, 3)
	for i, offset := range []int{-1, 0, 1} {
		rec, err := s.GetPrayerTimes(ctx, today.AddDate(0, 0, offset))
		if err != nil {
			return prayer.Selection{}, err
		}
		if days[i], err = rec.Prayers(zone); err != nil {
			return prayer.Selection{}, err
		}
	}

	return prayer.Select(days[0], days[1], days[2], now.In(zone)), nil
}

// CachedDates lists the dates currently held in the cache.
func (s *Service) CachedDates(ctx context.Context) ([]string, error) {
	return s.records.Dates(ctx)
}

// civil returns noon on t's calendar date in t's location. Noon keeps
// AddDate day steps clear of DST transitions at midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
