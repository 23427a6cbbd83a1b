// Package notify delivers call-to-prayer events.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// Audio cue names carried in events.
const (
	AudioAzan     = "azan"
	AudioAzanFajr = "azan-fajr"
)

// Event is one prayer time being reached.
type Event struct {
	ID      string    `json:"id"`
	Prayer  string    `json:"prayer"`
	Time    time.Time `json:"time"`
	FiredAt time.Time `json:"firedAt"`
	Audio   string    `json:"audio"`
	// Muted events are still delivered so displays can update silently.
	Muted bool `json:"muted"`
}

// NewEvent builds an event for p observed at now.
func NewEvent(p prayer.Prayer, now time.Time, muted bool) Event {
	return Event{
		ID:      uuid.NewString(),
		Prayer:  p.Name,
		Time:    p.Time,
		FiredAt: now,
		Audio:   AudioCue(p.Name),
		Muted:   muted,
	}
}

// AudioCue returns the sound to play for the named prayer.
func AudioCue(name string) string {
	if strings.EqualFold(name, prayer.Fajr) {
		return AudioAzanFajr
	}
	return AudioAzan
}

// Notifier receives events.
type Notifier interface {
	OnPrayerTimeReached(ctx context.Context, ev Event) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev Event) error

// OnPrayerTimeReached implements Notifier.
func (f Func) OnPrayerTimeReached(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Log writes events to a logger.
type Log struct {
	Logger zerolog.Logger
}

// OnPrayerTimeReached implements Notifier.
func (l Log) OnPrayerTimeReached(_ context.Context, ev Event) error {
	l.Logger.Info().
		Str("event_id", ev.ID).
		Str("prayer", ev.Prayer).
		Time("time", ev.Time).
		Str("audio", ev.Audio).
		Bool("muted", ev.Muted).
		Msg("prayer time reached")
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

// OnPrayerTimeReached implements Notifier.
func (m Multi) OnPrayerTimeReached(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.OnPrayerTimeReached(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
