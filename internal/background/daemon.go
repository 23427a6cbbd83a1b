// Package background keeps the prayer-time cache warm.
//
// A Daemon runs one sync pass immediately and then every Interval. Each pass
// refreshes a rolling window of days and, on the first of the month, preloads
// the months ahead. Passes never overlap; the next one is scheduled only after
// the current one returns.
package background

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
)

// Defaults used when Options leave a field zero.
const (
	DefaultInterval      = 6 * time.Hour
	DefaultWindowDays    = 14
	DefaultPreloadMonths = 2
)

// Syncer is the part of the prayer service a pass needs.
type Syncer interface {
	Today() (time.Time, error)
	GetPrayerTimesRange(ctx context.Context, start, end time.Time) ([]prayer.Record, error)
	PreloadPrayerTimes(ctx context.Context, monthsAhead int) (service.PreloadReport, error)
}

// Options configures a Daemon.
type Options struct {
	Interval      time.Duration
	WindowDays    int
	PreloadMonths int
	Clock         clockwork.Clock
	Logger        zerolog.Logger
}

// Status describes the daemon's recent activity.
type Status struct {
	Running   bool      `json:"running"`
	Online    bool      `json:"online"`
	InFlight  bool      `json:"inFlight"`
	Passes    int       `json:"passes"`
	LastPass  time.Time `json:"lastPass,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	NextPass  time.Time `json:"nextPass,omitzero"`
}

// Daemon periodically refreshes the cache.
type Daemon struct {
	svc   Syncer
	clock clockwork.Clock
	log   zerolog.Logger

	interval time.Duration
	window   int
	months   int

	inFlight atomic.Bool

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	timer    clockwork.Timer
	online   bool
	passes   int
	lastPass time.Time
	lastErr  error
	nextPass time.Time
	wg       sync.WaitGroup
}

// New returns a stopped daemon. It starts online.
func New(svc Syncer, opts Options) *Daemon {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.PreloadMonths <= 0 {
		opts.PreloadMonths = DefaultPreloadMonths
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Daemon{
		svc:      svc,
		clock:    opts.Clock,
		log:      opts.Logger.With().Str("component", "background").Logger(),
		interval: opts.Interval,
		window:   opts.WindowDays,
		months:   opts.PreloadMonths,
		online:   true,
	}
}

// Start runs a pass now and schedules the following ones. Calling Start on a
// running daemon does nothing. The daemon stops when ctx is done or Stop is
// called.
func (d *Daemon) Start(ctx context.Context) {
	d.mu.Lock()
	if d.ctx != nil {
		d.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.ctx, d.cancel = runCtx, cancel
	online := d.online
	d.mu.Unlock()

	d.log.Info().Dur("interval", d.interval).Int("window_days", d.window).Msg("background sync started")

	go func() {
		<-runCtx.Done()
		d.stop(runCtx)
	}()

	if online {
		d.runAsync()
	}
}

// Stop cancels the pending timer. A pass already running finishes.
func (d *Daemon) Stop() {
	d.stop(nil)
}

// stop stops the run bound to ctx, or any run when ctx is nil.
func (d *Daemon) stop(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil || (ctx != nil && d.ctx != ctx) {
		return
	}
	d.cancel()
	d.stopTimerLocked()
	d.ctx, d.cancel = nil, nil
	d.log.Info().Msg("background sync stopped")
}

// Wait blocks until any running pass has returned.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// SetOnline records connectivity. Going offline cancels the pending pass;
// coming back online runs a pass immediately.
func (d *Daemon) SetOnline(online bool) {
	d.mu.Lock()
	was := d.online
	d.online = online
	running := d.ctx != nil
	if !online {
		d.stopTimerLocked()
	}
	d.mu.Unlock()

	if was == online {
		return
	}
	d.log.Info().Bool("online", online).Msg("connectivity changed")
	if online && running {
		d.runAsync()
	}
}

// Status reports the daemon's state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{
		Running:  d.ctx != nil,
		Online:   d.online,
		InFlight: d.inFlight.Load(),
		Passes:   d.passes,
		LastPass: d.lastPass,
		NextPass: d.nextPass,
	}
	if d.lastErr != nil {
		st.LastError = d.lastErr.Error()
	}
	return st
}

// RunPass runs one pass synchronously unless one is already in flight, in
// which case it returns false.
func (d *Daemon) RunPass(ctx context.Context) bool {
	if !d.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer d.inFlight.Store(false)

	err := d.pass(ctx)

	d.mu.Lock()
	d.passes++
	d.lastPass = d.clock.Now()
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		d.log.Error().Err(err).Msg("sync pass failed")
	}
	return true
}

func (d *Daemon) runAsync() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// Stopping cancels the schedule, not a pass in progress.
		if !d.RunPass(context.WithoutCancel(ctx)) {
			return
		}
		d.schedule()
	}()
}

// schedule arms the timer for the next pass.
func (d *Daemon) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil || !d.online {
		return
	}
	d.stopTimerLocked()
	d.nextPass = d.clock.Now().Add(d.interval)
	d.timer = d.clock.AfterFunc(d.interval, d.runAsync)
}

func (d *Daemon) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.nextPass = time.Time{}
}

// pass refreshes the rolling window and, on the first of the month, the
// months ahead.
func (d *Daemon) pass(ctx context.Context) error {
	today, err := d.svc.Today()
	if err != nil {
		return err
	}

	recs, err := d.svc.GetPrayerTimesRange(ctx, today, today.AddDate(0, 0, d.window-1))
	if err != nil {
		return err
	}
	d.log.Debug().Int("days", len(recs)).Str("from", prayer.Key(today)).Msg("window refreshed")

	if today.Day() == 1 {
		report, err := d.svc.PreloadPrayerTimes(ctx, d.months)
		if err != nil {
			return err
		}
		d.log.Info().Int("days", report.Days).Int("failed", report.Failed).Msg("monthly preload done")
	}
	return nil
}
