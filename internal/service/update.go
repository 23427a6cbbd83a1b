package service

import (
	"context"

	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

// UpdateLocation persists loc, moves to a new settings generation, clears
// every cached record and starts a background preload.
func (s *Service) UpdateLocation(ctx context.Context, loc settings.Location) (settings.Snapshot, error) {
	return s.update(ctx, "location", func(st *settings.Settings) error {
		st.Location = loc
		return nil
	})
}

// UpdateCalculation does the same for the calculation settings.
func (s *Service) UpdateCalculation(ctx context.Context, calc settings.Calculation) (settings.Snapshot, error) {
	return s.update(ctx, "calculation", func(st *settings.Settings) error {
		st.Calculation = calc
		return nil
	})
}

// UpdateSettings applies an arbitrary change, e.g. one `config set` key.
func (s *Service) UpdateSettings(ctx context.Context, fn func(*settings.Settings) error) (settings.Snapshot, error) {
	return s.update(ctx, "settings", fn)
}

func (s *Service) update(ctx context.Context, what string, fn func(*settings.Settings) error) (settings.Snapshot, error) {
	var (
		snap    settings.Snapshot
		updated bool
	)
	err := s.records.Invalidate(ctx, func() error {
		var err error
		snap, err = s.settings.Update(fn)
		updated = err == nil
		return err
	})
	if err != nil {
		if !updated {
			return snap, err
		}
		// Old records no longer match the new fingerprint.
		s.log.Warn().Err(err).Msg("cache clear failed after settings change")
	}

	s.log.Info().
		Str("changed", what).
		Uint64("generation", snap.Generation).
		Str("location", snap.Location.Label()).
		Str("method", snap.Calculation.Method).
		Msg("settings updated")

	s.StartPreload(s.months)
	return snap, nil
}
