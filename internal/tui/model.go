// Package tui is the live countdown shown by `prayer-times watch`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/smokyabdulrahman/masjid-times/internal/notify"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/trigger"
)

// Source is the part of service.Service the model reads.
type Source interface {
	Clock() clockwork.Clock
	Zone() (*time.Location, error)
	GetPrayerTimes(ctx context.Context, date time.Time) (prayer.Record, error)
	NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error)
}

// Options configures New.
type Options struct {
	Context context.Context
	Source  Source
	// Detector and Notifier are optional; without them no azan fires.
	Detector *trigger.Detector
	Notifier notify.Notifier
	// TimeLayout is a Go layout, "15:04" by default.
	TimeLayout string
	// Prayers limits the listed prayers; all six by default.
	Prayers []string
	Tick    time.Duration
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Model is the bubbletea model of the countdown screen.
type Model struct {
	ctx      context.Context
	src      Source
	detector *trigger.Detector
	notifier notify.Notifier
	layout   string
	prayers  []string
	tick     time.Duration

	keys keyMap
	help help.Model

	now       time.Time
	record    prayer.Record
	sel       prayer.Selection
	err       error
	lastEvent *notify.Event
	width     int
}

// New creates the model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	layout := opts.TimeLayout
	if layout == "" {
		layout = "15:04"
	}
	names := opts.Prayers
	if len(names) == 0 {
		names = prayer.Names
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	return Model{
		ctx:      ctx,
		src:      opts.Source,
		detector: opts.Detector,
		notifier: opts.Notifier,
		layout:   layout,
		prayers:  names,
		tick:     tick,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
}

type tickMsg time.Time

type dataMsg struct {
	now    time.Time
	record prayer.Record
	sel    prayer.Selection
	err    error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh loads today's record and the current selection.
func (m Model) refresh() tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		now := src.Clock().Now()
		zone, err := src.Zone()
		if err != nil {
			return dataMsg{now: now, err: err}
		}
		now = now.In(zone)
		rec, err := src.GetPrayerTimes(ctx, now)
		if err != nil {
			return dataMsg{now: now, err: err}
		}
		sel, err := src.NextPrayer(ctx, now)
		return dataMsg{now: now, record: rec, sel: sel, err: err}
	}
}

func (m Model) dispatch(ev notify.Event) tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	ctx, n := m.ctx, m.notifier
	return func() tea.Msg {
		_ = n.OnPrayerTimeReached(ctx, ev)
		return nil
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tickCmd(m.tick))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Mute):
			if m.detector != nil {
				m.detector.SetMuted(!m.detector.Muted())
			}
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tickCmd(m.tick))

	case dataMsg:
		m.now = msg.now
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.record = msg.record
		m.sel = msg.sel
		if m.detector != nil {
			if ev, fired := m.detector.Observe(msg.sel, msg.now); fired {
				m.lastEvent = &ev
				return m, m.dispatch(ev)
			}
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString("\n  " + titleStyle.Render("Prayer Times") + "\n\n")

	if m.err != nil {
		b.WriteString("  " + errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}
	if m.record.Date == "" {
		if m.err == nil {
			b.WriteString("  Loading...\n")
		}
		b.WriteString("\n  " + m.help.View(m.keys) + "\n")
		return b.String()
	}

	b.WriteString("  " + m.record.Location + "\n")
	b.WriteString("  " + m.now.Format("Mon 02 Jan 2006 15:04:05"))
	if m.record.HijriDate != "" {
		b.WriteString("  " + dimStyle.Render(m.record.HijriDate))
	}
	b.WriteString("\n\n")

	for _, name := range m.prayers {
		hhmm, ok := m.record.Time(name)
		timeStr := "--:--"
		if ok {
			if t, err := time.Parse("15:04", hhmm); err == nil {
				timeStr = t.Format(m.layout)
			}
		}
		line := fmt.Sprintf("  %-8s %8s", name, timeStr)
		if iq, ok := m.record.Iqamah[strings.ToLower(name)]; ok {
			line += dimStyle.Render("  iqamah " + iq)
		}

		switch {
		case m.sel.Next != nil && m.sel.Next.Name == name && sameDay(m.sel.Next.Time, m.now):
			suffix := "  <- next in " + prayer.FormatClock(m.sel.Remaining)
			b.WriteString(accentStyle.Render(line+suffix) + "\n")
		case m.sel.Current != nil && m.sel.Current.Name == name && sameDay(m.sel.Current.Time, m.now):
			b.WriteString(dimStyle.Render(line) + "\n")
		default:
			b.WriteString(line + "\n")
		}
	}

	if m.sel.Next != nil && !sameDay(m.sel.Next.Time, m.now) {
		b.WriteString(fmt.Sprintf("\n  %s tomorrow at %s, in %s\n",
			m.sel.Next.Name, m.sel.Next.Time.Format(m.layout), prayer.FormatClock(m.sel.Remaining)))
	}
	if m.sel.Announce && m.sel.Next != nil {
		b.WriteString("\n  " + warnStyle.Render(fmt.Sprintf("%s in less than 5 minutes", m.sel.Next.Name)) + "\n")
	}

	b.WriteString("\n")
	if m.detector != nil && m.detector.Muted() {
		b.WriteString("  " + warnStyle.Render("azan muted") + "\n")
	}
	if m.lastEvent != nil {
		b.WriteString("  " + dimStyle.Render(fmt.Sprintf("last azan: %s at %s", m.lastEvent.Prayer, m.lastEvent.Time.Format(m.layout))) + "\n")
	}

	b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	return b.String()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
