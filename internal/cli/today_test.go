package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// fakeDays serves the same six times for every date in UTC.
type fakeDays struct {
	calls int
}

func (f *fakeDays) Zone() (*time.Location, error) { return time.UTC, nil }

func (f *fakeDays) GetPrayerTimes(_ context.Context, date time.Time) (prayer.Record, error) {
	f.calls++
	return prayer.Record{
		Date: prayer.Key(date),
		Times: map[string]string{
			"fajr": "05:17", "sunrise": "06:48", "dhuhr": "12:13",
			"asr": "15:02", "maghrib": "17:39", "isha": "19:10",
		},
		Iqamah:            map[string]string{"fajr": "05:37", "maghrib": "17:44"},
		HijriDate:         "10 Ramadan 1447 AH",
		Location:          "Riyadh, Saudi Arabia",
		Timezone:          "UTC",
		CalculationMethod: "MWL",
	}, nil
}

func (f *fakeDays) NextPrayer(context.Context, time.Time) (prayer.Selection, error) {
	return prayer.Selection{}, errors.New("unfiltered path not expected")
}

func TestFormatGregorianDate(t *testing.T) {
	if got := formatGregorianDate("2026-02-28"); got != "Saturday, 28 February 2026" {
		t.Errorf("formatGregorianDate() = %q", got)
	}
}

func TestFormatGregorianDate_Fallback(t *testing.T) {
	if got := formatGregorianDate("28-02-2026"); got != "28-02-2026" {
		t.Errorf("formatGregorianDate() = %q, want input unchanged", got)
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"Fajr", 7, "Fajr   "},
		{"Maghrib", 7, "Maghrib"},
		{"Isha", 4, "Isha"},
		{"A", 10, "A         "},
	}

	for _, tt := range tests {
		got := padRight(tt.s, tt.width)
		if got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Selection with a prayer filter
// ---------------------------------------------------------------------------

func TestNextSelection_Filtered(t *testing.T) {
	src := &fakeDays{}
	now := time.Date(2026, 2, 28, 13, 0, 0, 0, time.UTC)

	sel, err := nextSelection(context.Background(), src, now, []string{prayer.Fajr, prayer.Maghrib})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Current == nil || sel.Current.Name != prayer.Fajr {
		t.Errorf("current = %+v, want Fajr", sel.Current)
	}
	if sel.Next == nil || sel.Next.Name != prayer.Maghrib {
		t.Errorf("next = %+v, want Maghrib", sel.Next)
	}
	if sel.Remaining != 4*time.Hour+39*time.Minute {
		t.Errorf("remaining = %v", sel.Remaining)
	}
	if src.calls != 3 {
		t.Errorf("fetched %d days, want 3", src.calls)
	}
}

func TestNextSelection_FilteredRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 2, 28, 18, 0, 0, 0, time.UTC)

	sel, err := nextSelection(context.Background(), &fakeDays{}, now, []string{prayer.Fajr, prayer.Maghrib})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Current == nil || sel.Current.Name != prayer.Maghrib {
		t.Errorf("current = %+v, want Maghrib", sel.Current)
	}
	if sel.Next == nil || sel.Next.Name != prayer.Fajr || prayer.Key(sel.Next.Time) != "2026-03-01" {
		t.Errorf("next = %+v, want tomorrow's Fajr", sel.Next)
	}
}

func TestFilterPrayers(t *testing.T) {
	base := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	all := []prayer.Prayer{
		{Name: prayer.Fajr, Time: base.Add(5 * time.Hour)},
		{Name: prayer.Sunrise, Time: base.Add(6 * time.Hour)},
		{Name: prayer.Isha, Time: base.Add(19 * time.Hour)},
	}

	got := filterPrayers(all, []string{"isha", "FAJR"})
	if len(got) != 2 || got[0].Name != prayer.Fajr || got[1].Name != prayer.Isha {
		t.Errorf("filterPrayers() = %+v", got)
	}
}

// ---------------------------------------------------------------------------
// Rich output
// ---------------------------------------------------------------------------

func TestPrintTodayRich(t *testing.T) {
	display.SetEnabled(false)
	src := &fakeDays{}
	now := time.Date(2026, 2, 28, 13, 0, 0, 0, time.UTC)
	rec, _ := src.GetPrayerTimes(context.Background(), now)
	prayers, err := rec.Prayers(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	sel := prayer.Select(nil, prayers, nil, now)

	var buf bytes.Buffer
	printTodayRich(&buf, rec, sel, prayer.Names, display.TimeLayout("24h"))
	out := buf.String()

	for _, want := range []string{"Riyadh, Saudi Arabia", "Saturday, 28 February 2026", "10 Ramadan 1447 AH", "Method: MWL (Muslim World League)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if l := lineWith(out, "Asr"); !strings.Contains(l, "15:02") || !strings.Contains(l, "<- next in 2h 2m") {
		t.Errorf("Asr line = %q", l)
	}
	if l := lineWith(out, "Fajr"); !strings.Contains(l, "iqamah 05:37") {
		t.Errorf("Fajr line = %q", l)
	}
	if strings.Contains(out, "tomorrow") {
		t.Error("next prayer is today, no tomorrow line expected")
	}
}

func TestPrintTodayRich_NextIsTomorrow(t *testing.T) {
	display.SetEnabled(false)
	src := &fakeDays{}
	now := time.Date(2026, 2, 28, 20, 0, 0, 0, time.UTC)
	rec, _ := src.GetPrayerTimes(context.Background(), now)
	next, _ := src.GetPrayerTimes(context.Background(), now.AddDate(0, 0, 1))
	today, _ := rec.Prayers(time.UTC)
	tomorrow, _ := next.Prayers(time.UTC)
	sel := prayer.Select(nil, today, tomorrow, now)

	var buf bytes.Buffer
	printTodayRich(&buf, rec, sel, prayer.Names, display.TimeLayout("24h"))

	if !strings.Contains(buf.String(), "Fajr tomorrow at 05:17, in 9h 17m") {
		t.Errorf("missing tomorrow line\n%s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

func TestParseDays(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"week", 7, false},
		{"month", 30, false},
		{"14", 14, false},
		{"366", 366, false},
		{"0", 0, true},
		{"367", 0, true},
		{"fortnight", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDays(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseDays(%q) = %d, %v; want %d, err=%v", tt.raw, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestCanonicalName(t *testing.T) {
	for raw, want := range map[string]string{"fajr": "Fajr", "MAGHRIB": "Maghrib", "Isha": "Isha"} {
		got, err := canonicalName(raw)
		if err != nil || got != want {
			t.Errorf("canonicalName(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := canonicalName("Tahajjud"); err == nil {
		t.Error("expected error for unknown prayer")
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("splitOrigins() = %q", got)
	}
	if got := splitOrigins(""); got != nil {
		t.Errorf("splitOrigins(\"\") = %q, want nil", got)
	}
}

func TestFormatMethodValue(t *testing.T) {
	if got := formatMethodValue("ISNA"); got != "ISNA (Islamic Society of North America)" {
		t.Errorf("formatMethodValue(ISNA) = %q", got)
	}
	if got := formatMethodValue("Custom"); got != "Custom" {
		t.Errorf("formatMethodValue(Custom) = %q", got)
	}
	if got := formatMethodValue("Unknown"); got != "Unknown" {
		t.Errorf("formatMethodValue(Unknown) = %q", got)
	}
}
