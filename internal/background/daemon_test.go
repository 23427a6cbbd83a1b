package background

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
)

type fakeSyncer struct {
	mu       sync.Mutex
	today    time.Time
	ranges   [][2]string
	preloads []int
	err      error
	block    chan struct{}
	ranCh    chan struct{}
}

func newFakeSyncer(today time.Time) *fakeSyncer {
	return &fakeSyncer{today: today, ranCh: make(chan struct{}, 100)}
}

func (f *fakeSyncer) Today() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.today, nil
}

func (f *fakeSyncer) GetPrayerTimesRange(ctx context.Context, start, end time.Time) ([]prayer.Record, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.ranges = append(f.ranges, [2]string{prayer.Key(start), prayer.Key(end)})
	err := f.err
	f.mu.Unlock()
	f.ranCh <- struct{}{}
	return nil, err
}

func (f *fakeSyncer) PreloadPrayerTimes(ctx context.Context, months int) (service.PreloadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloads = append(f.preloads, months)
	return service.PreloadReport{Days: 1}, nil
}

func (f *fakeSyncer) rangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ranges)
}

func waitRan(t *testing.T, f *fakeSyncer) {
	t.Helper()
	select {
	case <-f.ranCh:
	case <-time.After(2 * time.Second):
		t.Fatal("pass did not run")
	}
}

func newTestDaemon(f *fakeSyncer, clock clockwork.Clock) *Daemon {
	return New(f, Options{Clock: clock, Logger: zerolog.Nop(), Interval: time.Hour})
}

func TestDaemon_ImmediatePassThenInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 26, 9, 0, 0, 0, time.UTC))
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	d.Start(ctx)
	waitRan(t, f)

	// The next pass waits for the timer.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, f.rangeCount())

	clock.Advance(time.Hour)
	waitRan(t, f)
	assert.Equal(t, 2, f.rangeCount())

	d.Stop()
	d.Wait()
}

func TestDaemon_FourteenDayWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	require.True(t, d.RunPass(context.Background()))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, [][2]string{{"2025-06-26", "2025-07-09"}}, f.ranges)
	assert.Empty(t, f.preloads, "no monthly preload mid-month")
}

func TestDaemon_MonthlyPreloadOnFirst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	require.True(t, d.RunPass(context.Background()))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []int{2}, f.preloads)
}

func TestDaemon_FailedPassIsRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	f.err = errors.New("disk full")
	d := newTestDaemon(f, clock)

	d.Start(ctx)
	waitRan(t, f)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	st := d.Status()
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Passes)
	assert.Equal(t, "disk full", st.LastError)
	assert.False(t, st.NextPass.IsZero(), "a failure still schedules the next pass")

	d.Stop()
	d.Wait()
}

func TestDaemon_SinglePassInFlight(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	f.block = make(chan struct{})
	d := newTestDaemon(f, clock)

	done := make(chan bool)
	go func() { done <- d.RunPass(context.Background()) }()

	require.Eventually(t, func() bool { return d.Status().InFlight }, time.Second, time.Millisecond)
	assert.False(t, d.RunPass(context.Background()), "second pass refused while one runs")

	close(f.block)
	assert.True(t, <-done)
	assert.Equal(t, 1, f.rangeCount())
}

func TestDaemon_OfflineCancelsTimerOnlineRunsNow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	d.Start(ctx)
	waitRan(t, f)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	d.SetOnline(false)
	assert.True(t, d.Status().NextPass.IsZero())

	clock.Advance(2 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.rangeCount(), "no pass while offline")

	d.SetOnline(true)
	waitRan(t, f)
	assert.Equal(t, 2, f.rangeCount())

	d.Stop()
	d.Wait()
}

func TestDaemon_StopCancelsTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	d.Start(ctx)
	waitRan(t, f)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	d.Stop()
	d.Wait()
	assert.False(t, d.Status().Running)

	clock.Advance(3 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.rangeCount())
}

func TestDaemon_StartTwiceIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	f := newFakeSyncer(time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC))
	d := newTestDaemon(f, clock)

	d.Start(ctx)
	d.Start(ctx)
	waitRan(t, f)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, f.rangeCount())

	d.Stop()
	d.Wait()
}

// ---------------------------------------------------------------------------
// ConnectivityWatcher
// ---------------------------------------------------------------------------

type recordingSetter struct {
	mu    sync.Mutex
	calls []bool
}

func (r *recordingSetter) SetOnline(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, online)
}

func TestConnectivityWatcher_Transitions(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := &recordingSetter{}
	w := NewConnectivityWatcher(srv.URL, time.Minute, rec)
	ctx := context.Background()

	assert.True(t, w.Check(ctx))
	assert.True(t, w.Check(ctx))
	up.Store(false)
	assert.False(t, w.Check(ctx))
	up.Store(true)
	assert.True(t, w.Check(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, rec.calls)
}

func TestConnectivityWatcher_Unreachable(t *testing.T) {
	rec := &recordingSetter{}
	w := NewConnectivityWatcher("http://127.0.0.1:1", time.Minute, rec)
	assert.False(t, w.Check(context.Background()))
	assert.Equal(t, []bool{false}, rec.calls)
}

func TestConnectivityWatcher_RunTicks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	w := NewConnectivityWatcher(srv.URL, time.Minute, &recordingSetter{})
	w.Clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}
