// Package trigger turns the polled next-prayer selection into one
// call-to-prayer event per prayer.
package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/masjid-times/internal/notify"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// DefaultWindow is how long after a prayer time an event may still fire.
const DefaultWindow = 30 * time.Second

// Detector remembers the last prayer it saw become current and fires once
// when a new prayer starts within Window.
type Detector struct {
	Window         time.Duration
	IncludeSunrise bool

	mu    sync.Mutex
	last  string
	muted bool
}

// NewDetector returns a detector with the default window.
func NewDetector(includeSunrise bool) *Detector {
	return &Detector{Window: DefaultWindow, IncludeSunrise: includeSunrise}
}

// Observe records sel and reports whether its current prayer has just
// started. Muted events are still reported with Muted set; the caller decides
// what muting suppresses. The bookkeeping advances either way, so unmuting
// inside the window does not fire again.
func (d *Detector) Observe(sel prayer.Selection, now time.Time) (notify.Event, bool) {
	cur := sel.Current
	if cur == nil {
		return notify.Event{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cur.Name == d.last {
		return notify.Event{}, false
	}
	d.last = cur.Name

	if cur.Name == prayer.Sunrise && !d.IncludeSunrise {
		return notify.Event{}, false
	}

	window := d.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if elapsed := now.Sub(cur.Time); elapsed < 0 || elapsed > window {
		return notify.Event{}, false
	}

	return notify.NewEvent(*cur, now, d.muted), true
}

// SetMuted turns the audible side effect off or on.
func (d *Detector) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

// Muted reports whether events are muted.
func (d *Detector) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Last is the name of the last prayer observed as current.
func (d *Detector) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Selector is the part of the prayer service the Runner polls.
type Selector interface {
	NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error)
}

// Runner drives a Detector once per second.
type Runner struct {
	svc      Selector
	detector *Detector
	notifier notify.Notifier
	clock    clockwork.Clock
	log      zerolog.Logger

	// OnTick, when set, receives every selection; used by live displays.
	OnTick func(prayer.Selection)
}

// NewRunner wires a runner. A nil clock means the real clock.
func NewRunner(svc Selector, d *Detector, n notify.Notifier, clock clockwork.Clock, log zerolog.Logger) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		svc:      svc,
		detector: d,
		notifier: n,
		clock:    clock,
		log:      log.With().Str("component", "trigger").Logger(),
	}
}

// Run ticks every second until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(time.Second)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Tick(ctx)
		}
	}
}

// Tick runs one observation. It reports whether an event fired.
func (r *Runner) Tick(ctx context.Context) bool {
	now := r.clock.Now()
	sel, err := r.svc.NextPrayer(ctx, now)
	if err != nil {
		r.log.Warn().Err(err).Msg("next prayer unavailable")
		return false
	}
	if r.OnTick != nil {
		r.OnTick(sel)
	}

	ev, ok := r.detector.Observe(sel, now)
	if !ok {
		return false
	}
	if err := r.notifier.OnPrayerTimeReached(ctx, ev); err != nil {
		r.log.Error().Err(err).Str("prayer", ev.Prayer).Msg("notification failed")
	}
	return true
}
