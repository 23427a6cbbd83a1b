package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/api"
	"github.com/smokyabdulrahman/masjid-times/internal/cache"
	"github.com/smokyabdulrahman/masjid-times/internal/config"
	"github.com/smokyabdulrahman/masjid-times/internal/geo"
	"github.com/smokyabdulrahman/masjid-times/internal/logger"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// app is everything a command needs, wired from the loaded config.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	file     *settings.FileStore
	settings *settings.Store
	store    cache.Store
	records  *cache.Records
	svc      *service.Service
}

// appMode selects how settings are sourced.
type appMode int

const (
	// readMode applies flag overrides for this run only and detects the
	// location when no settings file exists yet.
	readMode appMode = iota
	// persistMode reads and writes the settings file as is. Commands that
	// change settings use it.
	persistMode
)

// seeded starts from a prepared snapshot but saves to the settings file.
type seeded struct {
	*settings.FileStore
	initial settings.Settings
}

func (s seeded) Load() (settings.Settings, error) {
	return s.initial, nil
}

// newApp opens the cache and settings and builds the service.
func newApp(cmd *cobra.Command, mode appMode) (*app, error) {
	cfg := loadedConfig
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return nil, err
	}
	base, err := file.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: rootLogger, file: file}
	a.store = openCache(ctx, cfg.Cache, cmd, a.log)

	var persister settings.Persister = file
	if mode == readMode {
		overridden, err := a.applyOverrides(ctx, cmd, &base)
		if err != nil {
			a.store.Close()
			return nil, err
		}
		switch {
		case overridden:
			// One-off settings must not leave records in the shared cache.
			if err := a.store.Close(); err != nil {
				a.log.Warn().Err(err).Msg("failed to close cache")
			}
			a.store = cache.NewMemory()
			persister = settings.NewMemory(base)
		case cfg.Geo.Enabled && !fileExists(file.Path()):
			base.Location = a.detectLocation(ctx, base.Location)
			persister = seeded{FileStore: file, initial: base}
		}
	}

	a.settings, err = settings.NewStore(persister)
	if err != nil {
		a.store.Close()
		return nil, err
	}
	a.records = cache.NewRecords(a.store, a.settings.Generation)
	a.svc = service.New(newCalculator(cfg.Calculator), a.settings, a.records, service.Options{
		Clock:         appClock,
		Logger:        a.log,
		PreloadMonths: cfg.Sync.PreloadMonths,
	})
	return a, nil
}

// Close releases the cache backend.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close cache")
	}
}

// applyOverrides folds the location and calculation flags into s. It
// reports whether anything changed.
func (a *app) applyOverrides(ctx context.Context, cmd *cobra.Command, s *settings.Settings) (bool, error) {
	changed := false

	switch {
	case anyFlagSet(cmd, "latitude", "longitude"):
		s.Location = settings.Location{
			Latitude:  FlagLatitude,
			Longitude: FlagLongitude,
			City:      FlagCity,
			Country:   FlagCountry,
			Timezone:  FlagTimezone,
		}
		changed = true
	case anyFlagSet(cmd, "city"):
		loc, err := a.locateCity(ctx)
		if err != nil {
			return false, err
		}
		s.Location = loc
		changed = true
	case anyFlagSet(cmd, "timezone"):
		if err := s.Set("timezone", FlagTimezone); err != nil {
			return false, err
		}
		changed = true
	}

	if anyFlagSet(cmd, "method") {
		if err := s.Set("method", FlagMethod); err != nil {
			return false, err
		}
		changed = true
	}
	if anyFlagSet(cmd, "asr") {
		if err := s.Set("asr_method", FlagAsr); err != nil {
			return false, err
		}
		changed = true
	}

	if changed {
		if err := s.Validate(); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// locateCity resolves --city/--country through the Al Adhan API. An explicit
// --timezone wins over the one the API reports.
func (a *app) locateCity(ctx context.Context) (settings.Location, error) {
	if FlagCountry == "" {
		return settings.Location{}, fmt.Errorf("--country is required when using --city")
	}
	client := api.NewClient(a.cfg.Calculator.AlAdhanURL, a.cfg.Calculator.Timeout)
	loc, err := client.LocateCity(ctx, FlagCity, FlagCountry, appClock.Now())
	if err != nil {
		return settings.Location{}, fmt.Errorf("failed to locate %s, %s: %w", FlagCity, FlagCountry, err)
	}
	if FlagTimezone != "" {
		loc.Timezone = FlagTimezone
	}
	return loc, nil
}

// geoProvider is the IP geolocation chain, cached in the cache backend.
func (a *app) geoProvider() geo.Provider {
	return geo.NewCached(
		geo.NewIPAPI(a.cfg.Geo.Endpoint),
		a.store,
		a.cfg.Geo.CacheTTL,
		appClock,
		logger.Component(a.log, "geo"),
	)
}

// detectLocation resolves the location from the public IP, keeping fallback
// when that fails.
func (a *app) detectLocation(ctx context.Context, fallback settings.Location) settings.Location {
	loc, err := geo.Resolve(ctx, a.geoProvider(), fallback)
	if err != nil {
		a.log.Warn().Err(err).Str("fallback", fallback.Label()).Msg("location detection failed")
	}
	return loc
}

// openCache opens the configured backend, wrapped in an LRU when enabled.
// A backend that cannot be opened costs persistence, not the command.
func openCache(ctx context.Context, cfg config.CacheConfig, cmd *cobra.Command, log zerolog.Logger) cache.Store {
	store, err := openBackend(ctx, cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		log.Warn().Err(err).Str("backend", cfg.Backend).Msg("cache backend unavailable")
		return cache.NewMemory()
	}
	if cfg.LRUSize <= 0 {
		return store
	}
	lru, err := cache.NewLRU(store, cfg.LRUSize)
	if err != nil {
		log.Warn().Err(err).Msg("lru disabled")
		return store
	}
	return lru
}

func openBackend(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dir, err := cacheDir(cfg)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
			}
			dsn = filepath.Join(dir, "cache.db")
		}
		return cache.NewSQLStore(ctx, cache.DialectSQLite, dsn)
	case config.BackendPostgres:
		return cache.NewSQLStore(ctx, cache.DialectPostgres, cfg.DSN)
	case config.BackendRedis:
		return cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisNamespace,
		})
	default:
		return cache.NewFileStore(cfg.Dir)
	}
}

func cacheDir(cfg config.CacheConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	return cache.DefaultDir()
}

func newCalculator(cfg config.CalculatorConfig) solar.Calculator {
	if cfg.Kind == config.CalculatorAlAdhan {
		return api.NewCalculator(api.NewClient(cfg.AlAdhanURL, cfg.Timeout))
	}
	return solar.NewAstronomical()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
