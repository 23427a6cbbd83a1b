package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/masjid-times/internal/notify"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/trigger"
)

type fakeSource struct {
	clock *clockwork.FakeClock
	zone  *time.Location
	err   error
}

func newFakeSource(t *testing.T, hh, mm int) *fakeSource {
	t.Helper()
	zone, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)
	return &fakeSource{
		clock: clockwork.NewFakeClockAt(time.Date(2025, 6, 26, hh, mm, 0, 0, zone)),
		zone:  zone,
	}
}

func (f *fakeSource) Clock() clockwork.Clock        { return f.clock }
func (f *fakeSource) Zone() (*time.Location, error) { return f.zone, nil }

func (f *fakeSource) GetPrayerTimes(_ context.Context, date time.Time) (prayer.Record, error) {
	if f.err != nil {
		return prayer.Record{}, f.err
	}
	return prayer.Record{
		Date: prayer.Key(date),
		Times: map[string]string{
			"fajr": "05:32", "sunrise": "07:07", "dhuhr": "13:15",
			"asr": "16:39", "maghrib": "19:22", "isha": "20:52",
		},
		Iqamah:    map[string]string{"dhuhr": "13:25"},
		HijriDate: "30 Dhu al-Hijjah 1446 AH",
		Location:  "Kuala Lumpur, Malaysia",
		Timezone:  "Asia/Kuala_Lumpur",
	}, nil
}

func (f *fakeSource) NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error) {
	rec, err := f.GetPrayerTimes(ctx, now)
	if err != nil {
		return prayer.Selection{}, err
	}
	today, err := rec.Prayers(f.zone)
	if err != nil {
		return prayer.Selection{}, err
	}
	var yesterday, tomorrow []prayer.Prayer
	for _, p := range today {
		yesterday = append(yesterday, prayer.Prayer{Name: p.Name, Time: p.Time.AddDate(0, 0, -1)})
		tomorrow = append(tomorrow, prayer.Prayer{Name: p.Name, Time: p.Time.AddDate(0, 0, 1)})
	}
	return prayer.Select(yesterday, today, tomorrow, now), nil
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) OnPrayerTimeReached(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.refresh()()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_Defaults(t *testing.T) {
	m := New(Options{Source: newFakeSource(t, 12, 0)})
	assert.Equal(t, "15:04", m.layout)
	assert.Equal(t, prayer.Names, m.prayers)
	assert.Equal(t, time.Second, m.tick)
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Loading...")
}

func TestModel_ShowsDay(t *testing.T) {
	m := load(t, New(Options{Source: newFakeSource(t, 12, 0)}))

	view := m.View()
	assert.Contains(t, view, "Kuala Lumpur, Malaysia")
	assert.Contains(t, view, "30 Dhu al-Hijjah 1446 AH")
	assert.Contains(t, view, "13:15")
	assert.Contains(t, view, "iqamah 13:25")
	assert.Contains(t, view, "<- next in 01:15:00")
	assert.NotContains(t, view, "tomorrow")
}

func TestModel_TwelveHourLayoutAndFilter(t *testing.T) {
	m := load(t, New(Options{
		Source:     newFakeSource(t, 12, 0),
		TimeLayout: "3:04 PM",
		Prayers:    []string{prayer.Fajr, prayer.Maghrib},
	}))

	view := m.View()
	assert.Contains(t, view, "7:22 PM")
	assert.NotContains(t, view, "Dhuhr")
}

func TestModel_AfterIshaShowsTomorrow(t *testing.T) {
	m := load(t, New(Options{Source: newFakeSource(t, 21, 0)}))

	view := m.View()
	assert.Contains(t, view, "Fajr tomorrow at 05:32, in 08:32:00")
}

func TestModel_Error(t *testing.T) {
	src := newFakeSource(t, 12, 0)
	src.err = errors.New("calculator offline")
	m := load(t, New(Options{Source: src}))

	assert.Contains(t, m.View(), "error: calculator offline")
}

func TestModel_FiresAzanOnce(t *testing.T) {
	src := newFakeSource(t, 13, 15)
	n := &recordingNotifier{}
	d := trigger.NewDetector(false)
	// Prime the detector so the first observed prayer is not treated as new.
	d.Observe(prayer.Selection{Current: &prayer.Prayer{Name: prayer.Sunrise}}, src.clock.Now())

	m := New(Options{Source: src, Detector: d, Notifier: n})
	next, cmd := m.Update(m.refresh()())
	m = next.(Model)
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, n.events, 1)
	assert.Equal(t, prayer.Dhuhr, n.events[0].Prayer)
	assert.Equal(t, notify.AudioAzan, n.events[0].Audio)
	assert.Contains(t, m.View(), "last azan: Dhuhr at 13:15")

	src.clock.Advance(time.Second)
	next, cmd = m.Update(m.refresh()())
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Len(t, n.events, 1)
}

func TestModel_MuteKey(t *testing.T) {
	d := trigger.NewDetector(false)
	m := load(t, New(Options{Source: newFakeSource(t, 12, 0), Detector: d}))

	next, _ := m.Update(keyMsg('m'))
	m = next.(Model)
	assert.True(t, d.Muted())
	assert.Contains(t, m.View(), "azan muted")

	next, _ = m.Update(keyMsg('m'))
	m = next.(Model)
	assert.False(t, d.Muted())
	assert.NotContains(t, m.View(), "azan muted")
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := load(t, New(Options{Source: newFakeSource(t, 12, 0)}))

	next, _ := m.Update(keyMsg('?'))
	assert.True(t, next.(Model).help.ShowAll)

	_, cmd := m.Update(keyMsg('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_TickRefreshes(t *testing.T) {
	m := New(Options{Source: newFakeSource(t, 12, 0)})
	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
}
