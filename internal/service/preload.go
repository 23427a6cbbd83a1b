package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/smokyabdulrahman/masjid-times/internal/cache"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// PreloadChunkDays is how many dates are computed between yields.
const PreloadChunkDays = 7

// PreloadReport summarises one preload run.
type PreloadReport struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Days   int    `json:"days"`
	Failed int    `json:"failed"`
	// Stale counts dates skipped because the settings changed mid-run.
	Stale int `json:"stale"`
}

// PreloadPrayerTimes computes and caches every date from today through
// monthsAhead calendar months out, inclusive, in weekly chunks. A failing
// date is logged and counted; it never stops the run. If the settings change
// mid-run the remaining dates are left to the preload started by that change.
func (s *Service) PreloadPrayerTimes(ctx context.Context, monthsAhead int) (PreloadReport, error) {
	if monthsAhead < 0 {
		return PreloadReport{}, fmt.Errorf("%w: %d", ErrInvalidMonths, monthsAhead)
	}
	start, err := s.Today()
	if err != nil {
		return PreloadReport{}, err
	}
	end := start.AddDate(0, monthsAhead, 0)
	gen := s.settings.Generation()

	report := PreloadReport{From: prayer.Key(start), To: prayer.Key(end)}
	log := s.log.With().Str("from", report.From).Str("to", report.To).Logger()
	log.Info().Msg("preloading prayer times")

	for chunk := start; !chunk.After(end); chunk = chunk.AddDate(0, 0, PreloadChunkDays) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.settings.Generation() != gen {
			report.Stale = daysBetween(chunk, end)
			log.Info().Int("skipped", report.Stale).Msg("settings changed, abandoning preload")
			return report, nil
		}

		for i := 0; i < PreloadChunkDays; i++ {
			day := chunk.AddDate(0, 0, i)
			if day.After(end) {
				break
			}
			if _, err := s.GetPrayerTimes(ctx, day); err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				if errors.Is(err, cache.ErrStale) {
					report.Stale++
					continue
				}
				report.Failed++
				log.Warn().Err(err).Str("date", prayer.Key(day)).Msg("preload failed for date")
				continue
			}
			report.Days++
		}

		runtime.Gosched()
	}

	log.Info().Int("days", report.Days).Int("failed", report.Failed).Msg("preload finished")
	return report, nil
}

// StartPreload runs PreloadPrayerTimes in the background, cancelling any
// preload it started before.
func (s *Service) StartPreload(monthsAhead int) {
	s.mu.Lock()
	if s.cancelPreload != nil {
		s.cancelPreload()
	}
	ctx, cancel := context.WithCancel(s.base)
	s.cancelPreload = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if _, err := s.PreloadPrayerTimes(ctx, monthsAhead); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("background preload failed")
		}
	}()
}

// daysBetween counts the dates from a through b inclusive.
func daysBetween(a, b time.Time) int {
	n := 0
	for d := a; !d.After(b); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
