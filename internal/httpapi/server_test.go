package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/masjid-times/internal/background"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	clock *clockwork.FakeClock
	zone  *time.Location

	mu     sync.Mutex
	snap   settings.Snapshot
	err    error
	months int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	zone, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)
	return &fakeService{
		clock: clockwork.NewFakeClockAt(time.Date(2025, 6, 26, 12, 0, 0, 0, zone)),
		zone:  zone,
		snap:  settings.Snapshot{Settings: settings.Defaults(), Generation: 1},
	}
}

func (f *fakeService) Clock() clockwork.Clock { return f.clock }

func (f *fakeService) Settings() settings.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeService) Today() (time.Time, error) {
	n := f.clock.Now().In(f.zone)
	return time.Date(n.Year(), n.Month(), n.Day(), 12, 0, 0, 0, f.zone), nil
}

func (f *fakeService) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(prayer.DateLayout, raw, f.zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return d.Add(12 * time.Hour), nil
}

func (f *fakeService) GetPrayerTimes(_ context.Context, date time.Time) (prayer.Record, error) {
	if f.err != nil {
		return prayer.Record{}, f.err
	}
	return prayer.Record{
		Date:  prayer.Key(date),
		Times: map[string]string{"fajr": "05:32", "dhuhr": "13:15"},
	}, nil
}

func (f *fakeService) GetPrayerTimesRange(ctx context.Context, start, end time.Time) ([]prayer.Record, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: backwards", service.ErrInvalidRange)
	}
	var out []prayer.Record
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rec, err := f.GetPrayerTimes(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeService) NextPrayer(_ context.Context, now time.Time) (prayer.Selection, error) {
	if f.err != nil {
		return prayer.Selection{}, f.err
	}
	dhuhr := time.Date(2025, 6, 26, 13, 15, 0, 0, f.zone)
	return prayer.Selection{
		Now:       now,
		Current:   &prayer.Prayer{Name: prayer.Sunrise, Time: time.Date(2025, 6, 26, 7, 7, 0, 0, f.zone)},
		Next:      &prayer.Prayer{Name: prayer.Dhuhr, Time: dhuhr},
		Remaining: dhuhr.Sub(now),
	}, nil
}

func (f *fakeService) UpdateLocation(ctx context.Context, loc settings.Location) (settings.Snapshot, error) {
	return f.UpdateSettings(ctx, func(s *settings.Settings) error {
		s.Location = loc
		return nil
	})
}

func (f *fakeService) UpdateSettings(_ context.Context, fn func(*settings.Settings) error) (settings.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.snap.Settings
	if err := fn(&next); err != nil {
		return f.snap, err
	}
	if err := next.Validate(); err != nil {
		return f.snap, err
	}
	f.snap = settings.Snapshot{Settings: next, Generation: f.snap.Generation + 1}
	return f.snap, nil
}

func (f *fakeService) PreloadPrayerTimes(_ context.Context, months int) (service.PreloadReport, error) {
	if months < 0 {
		return service.PreloadReport{}, service.ErrInvalidMonths
	}
	f.months = months
	return service.PreloadReport{From: "2025-06-26", To: "2025-07-26", Days: 31}, nil
}

type fakeStatus struct{ st background.Status }

func (f fakeStatus) Status() background.Status { return f.st }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newRouter(t *testing.T) (*fakeService, *gin.Engine) {
	t.Helper()
	svc := newFakeService(t)
	return svc, New(svc, nil, Options{Logger: zerolog.Nop()})
}

func TestHealth(t *testing.T) {
	_, r := newRouter(t)

	w := do(t, r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["generation"])
}

func TestGetPrayerTimes(t *testing.T) {
	svc, r := newRouter(t)

	w := do(t, r, http.MethodGet, "/v1/prayer-times/2025-07-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-07-01", decode[prayer.Record](t, w).Date)

	w = do(t, r, http.MethodGet, "/v1/prayer-times/today", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-26", decode[prayer.Record](t, w).Date)

	w = do(t, r, http.MethodGet, "/v1/prayer-times/tomorrow", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-27", decode[prayer.Record](t, w).Date)

	w = do(t, r, http.MethodGet, "/v1/prayer-times/26-06-2025", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "YYYY-MM-DD")

	svc.err = fmt.Errorf("2025-06-26: %w", service.ErrCalculationUnavailable)
	w = do(t, r, http.MethodGet, "/v1/prayer-times/today", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	svc.err = fmt.Errorf("disk on fire")
	w = do(t, r, http.MethodGet, "/v1/prayer-times/today", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListPrayerTimes(t *testing.T) {
	_, r := newRouter(t)

	w := do(t, r, http.MethodGet, "/v1/prayer-times", "")
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[[]prayer.Record](t, w)
	require.Len(t, recs, 7)
	assert.Equal(t, "2025-06-26", recs[0].Date)
	assert.Equal(t, "2025-07-02", recs[6].Date)

	w = do(t, r, http.MethodGet, "/v1/prayer-times?from=2025-12-30&to=2026-01-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	recs = decode[[]prayer.Record](t, w)
	require.Len(t, recs, 4)
	assert.Equal(t, "2026-01-02", recs[3].Date)

	w = do(t, r, http.MethodGet, "/v1/prayer-times?from=2025-07-02&to=2025-07-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/v1/prayer-times?from=2025-01-01&to=2026-12-31", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "limit")
}

func TestNext(t *testing.T) {
	_, r := newRouter(t)

	w := do(t, r, http.MethodGet, "/v1/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[prayer.View](t, w)
	assert.Equal(t, prayer.Sunrise, view.CurrentName)
	assert.Equal(t, prayer.Dhuhr, view.NextName)
	assert.Equal(t, int64(75*time.Minute/time.Millisecond), view.RemainingMs)
	assert.Equal(t, "01:15:00", view.Countdown)
	assert.Equal(t, "1h 15m", view.Remaining)
}

func TestUpdateLocation(t *testing.T) {
	svc, r := newRouter(t)

	w := do(t, r, http.MethodPut, "/v1/location",
		`{"latitude": 51.5074, "longitude": -0.1278, "city": "London", "country": "United Kingdom", "timezone": "Europe/London"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[SettingsResponse](t, w)
	assert.EqualValues(t, 2, resp.Generation)
	assert.Equal(t, "London, United Kingdom", resp.Location)
	assert.Equal(t, "Europe/London", svc.Settings().Location.Timezone)

	// Equator and prime meridian are valid coordinates.
	w = do(t, r, http.MethodPut, "/v1/location", `{"latitude": 0, "longitude": 0, "timezone": "UTC"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tests := []struct {
		name string
		body string
	}{
		{"missing latitude", `{"longitude": 1}`},
		{"latitude out of range", `{"latitude": 91, "longitude": 0}`},
		{"unknown timezone", `{"latitude": 1, "longitude": 1, "timezone": "Mars/Base"}`},
		{"not json", `lat=1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPut, "/v1/location", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.EqualValues(t, 3, svc.Settings().Generation)
}

func TestUpdateCalculation(t *testing.T) {
	svc, r := newRouter(t)

	w := do(t, r, http.MethodPut, "/v1/calculation", `{"adjust.maghrib": "2", "method": "MWL"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MWL", decode[SettingsResponse](t, w).Method)

	calc := svc.Settings().Calculation
	assert.Equal(t, "MWL", calc.Method)
	assert.Equal(t, 18.0, calc.FajrAngle)
	assert.Equal(t, 2, calc.Adjustments.Maghrib)

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"unknown method", `{"method": "Nowhere"}`},
		{"location key", `{"latitude": "10"}`},
		{"bad angle", `{"fajr_angle": "45"}`},
		{"unknown key", `{"colour": "blue"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPut, "/v1/calculation", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.EqualValues(t, 2, svc.Settings().Generation)
}

func TestPreload(t *testing.T) {
	svc, r := newRouter(t)

	w := do(t, r, http.MethodPost, "/v1/preload?months=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 31, decode[service.PreloadReport](t, w).Days)
	assert.Equal(t, 1, svc.months)

	w = do(t, r, http.MethodPost, "/v1/preload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.months)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/v1/preload?months=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/v1/preload?months=two", "").Code)
}

func TestSyncStatus(t *testing.T) {
	_, r := newRouter(t)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/v1/sync/status", "").Code)

	svc := newFakeService(t)
	r = New(svc, fakeStatus{background.Status{Running: true, Online: true, Passes: 3}}, Options{Logger: zerolog.Nop()})
	w := do(t, r, http.MethodGet, "/v1/sync/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[background.Status](t, w)
	assert.True(t, st.Running)
	assert.Equal(t, 3, st.Passes)
}

func TestCORS(t *testing.T) {
	_, r := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://display.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	svc := newFakeService(t)
	r = New(svc, nil, Options{AllowedOrigins: []string{"http://display.local"}, Logger: zerolog.Nop()})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://display.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStreamNext(t *testing.T) {
	svc := newFakeService(t)
	srv := httptest.NewServer(New(svc, nil, Options{StreamInterval: 10 * time.Millisecond, Logger: zerolog.Nop()}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/next/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var event, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = v
			break
		}
	}
	require.Equal(t, "next", event)

	var view prayer.View
	require.NoError(t, json.Unmarshal([]byte(data), &view))
	assert.Equal(t, prayer.Dhuhr, view.NextName)
}

func TestServerRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
