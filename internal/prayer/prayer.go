package prayer

import (
	"fmt"
	"strings"
	"time"
)

// Canonical prayer names, in chronological order within a day.
const (
	Fajr    = "Fajr"
	Sunrise = "Sunrise"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
)

// DateLayout is the layout of Record.Date and of every cache key.
const DateLayout = "2006-01-02"

// Names lists the six daily time points in order.
var Names = []string{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
}

// Prayer represents a single prayer with its name and time.
type Prayer struct {
	Name string
	Time time.Time
}

// Record is one day of computed prayer times for a single settings generation.
// Fingerprint identifies the settings the record was computed from.
// Times are wall-clock "HH:MM" strings in the record's timezone, keyed by the
// lowercase prayer name. A prayer the calculator could not produce is absent
// from Times and listed in Unavailable.
type Record struct {
	Date              string            `json:"date"`
	Times             map[string]string `json:"times"`
	Iqamah            map[string]string `json:"iqamah,omitempty"`
	Unavailable       []string          `json:"unavailable,omitempty"`
	HijriDate         string            `json:"hijriDate"`
	Location          string            `json:"location"`
	Timezone          string            `json:"timezone"`
	CalculationMethod string            `json:"calculationMethod"`
	Generation        uint64            `json:"generation"`
	Fingerprint       string            `json:"fingerprint"`
	LastUpdated       time.Time         `json:"lastUpdated"`
}

// Key returns the cache key for the calendar date of t, in t's own location.
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

// Time returns the HH:MM string for the named prayer, if available.
func (r Record) Time(name string) (string, bool) {
	v, ok := r.Times[strings.ToLower(name)]
	return v, ok
}

// IsUnavailable reports whether the named prayer could not be calculated.
func (r Record) IsUnavailable(name string) bool {
	for _, n := range r.Unavailable {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Prayers converts the record into time-stamped prayers on the record's date in loc.
// Unavailable prayers are skipped, so the result may hold fewer than six entries.
func (r Record) Prayers(loc *time.Location) ([]Prayer, error) {
	date, err := time.ParseInLocation(DateLayout, r.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid record date %q: %w", r.Date, err)
	}

	prayers := make([]Prayer, 0, len(Names))
	for _, name := range Names {
		raw, ok := r.Time(name)
		if !ok {
			continue
		}

		t, err := parseTimeStr(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s (%q): %w", name, raw, err)
		}

		prayers = append(prayers, Prayer{Name: name, Time: t})
	}

	return prayers, nil
}

// NextPrayer finds the next upcoming prayer from the given slice, relative to now.
// If all prayers for today have passed, it returns nil (caller should look at tomorrow's Fajr).
func NextPrayer(prayers []Prayer, now time.Time) *Prayer {
	for i := range prayers {
		if prayers[i].Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// CurrentPrayer returns the latest prayer that has started at or before now.
// A prayer whose time equals now has started.
func CurrentPrayer(prayers []Prayer, now time.Time) *Prayer {
	var current *Prayer
	for i := range prayers {
		if prayers[i].Time.After(now) {
			break
		}
		current = &prayers[i]
	}
	return current
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(prayer Prayer, now time.Time) time.Duration {
	return prayer.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatClock formats a duration as a zero-padded "HH:MM:SS" countdown.
// It truncates the same way FormatRemaining does, so both views agree.
func FormatClock(d time.Duration) string {
	if d < 0 {
		return "00:00:00"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatHHMM renders t as the "HH:MM" wall-clock string stored in records.
func FormatHHMM(t time.Time) string {
	return t.Format("15:04")
}

// ParseHHMM parses a stored "HH:MM" string onto the given date in loc.
func ParseHHMM(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	return parseTimeStr(raw, date, loc)
}

// parseTimeStr parses a time string like "15:02" or "15:02 (BST)" into a time.Time
// on the given date in the given location.
func parseTimeStr(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	// Remote sources sometimes append a zone suffix like " (BST)".
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	var hour, min int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return time.Time{}, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &min); err != nil {
		return time.Time{}, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %q", raw)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}
