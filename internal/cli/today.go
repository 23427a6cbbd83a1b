package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := prayerFilter("")
	if err != nil {
		return err
	}
	layout := display.TimeLayout(a.cfg.Display.TimeFormat)

	zone, err := a.svc.Zone()
	if err != nil {
		return err
	}
	now := appClock.Now().In(zone)

	rec, err := a.svc.GetPrayerTimes(cmd.Context(), now)
	if err != nil {
		return err
	}
	sel, err := nextSelection(cmd.Context(), a.svc, now, names)
	if err != nil {
		return err
	}

	snap := a.svc.Settings()
	out := cmd.OutOrStdout()

	// JSON output.
	if FlagJSON {
		return printTodayJSON(out, rec, sel, snap.Location, names, layout)
	}

	// Rich terminal output.
	printTodayRich(out, rec, sel, names, layout)
	return nil
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, rec prayer.Record, sel prayer.Selection, names []string, layout string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)

	// Location and date info.
	fmt.Fprintf(w, "  %s\n", rec.Location)
	fmt.Fprintf(w, "  %s\n", rec.Timezone)
	fmt.Fprintf(w, "  %s\n", formatGregorianDate(rec.Date))
	if rec.HijriDate != "" {
		fmt.Fprintf(w, "  %s\n", rec.HijriDate)
	}
	fmt.Fprintf(w, "  %s\n", display.Gray("Method: "+formatMethodValue(rec.CalculationMethod)))

	fmt.Fprintln(w)

	// Find the max prayer name length for alignment.
	maxNameLen := 0
	for _, n := range names {
		maxNameLen = max(maxNameLen, len(n))
	}

	// Current and next are only marked when they fall on this record's date.
	current := onDate(sel.Current, rec.Date)
	next := onDate(sel.Next, rec.Date)

	timeWidth := len(display.FormatTime("23:59", layout))

	for _, name := range names {
		hhmm, _ := rec.Time(name)
		line := fmt.Sprintf("  %s  %s", padRight(name, maxNameLen), padRight(display.FormatTime(hhmm, layout), timeWidth))
		if iq, ok := rec.Iqamah[strings.ToLower(name)]; ok {
			line += display.Gray("  iqamah " + display.FormatTime(iq, layout))
		}

		switch {
		case current != nil && current.Name == name:
			// Current prayer: dimmed.
			fmt.Fprintln(w, display.Dim(line))
		case next != nil && next.Name == name:
			// Next prayer: accent color + countdown.
			suffix := fmt.Sprintf("  <- next in %s", prayer.FormatRemaining(sel.Remaining))
			fmt.Fprintln(w, display.Accent(line)+display.Accent(suffix))
		default:
			fmt.Fprintln(w, line)
		}
	}

	// After the last prayer of the day the next one is tomorrow's.
	if sel.Next != nil && next == nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", display.Accent(fmt.Sprintf("%s tomorrow at %s, in %s",
			sel.Next.Name, sel.Next.Time.Format(layout), prayer.FormatRemaining(sel.Remaining))))
	}

	fmt.Fprintln(w)
}

// onDate returns p when it falls on the given "YYYY-MM-DD" date.
func onDate(p *prayer.Prayer, date string) *prayer.Prayer {
	if p == nil || prayer.Key(p.Time) != date {
		return nil
	}
	return p
}

// formatGregorianDate returns a long date for a "YYYY-MM-DD" record date.
// An unparseable date is returned unchanged.
func formatGregorianDate(date string) string {
	d, err := time.Parse(prayer.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Monday, 02 January 2006")
}

// padRight pads a string to the given width with spaces.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location    todayJSONLocation `json:"location"`
	Date        todayJSONDate     `json:"date"`
	Method      string            `json:"method"`
	Timings     map[string]string `json:"timings"`
	Iqamah      map[string]string `json:"iqamah,omitempty"`
	Unavailable []string          `json:"unavailable,omitempty"`
	Current     string            `json:"current"`
	Next        *todayJSONNext    `json:"next"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, rec prayer.Record, sel prayer.Selection, loc settings.Location, names []string, layout string) error {
	timings := make(map[string]string, len(names))
	iqamah := make(map[string]string)
	for _, name := range names {
		key := strings.ToLower(name)
		if hhmm, ok := rec.Time(name); ok {
			timings[key] = display.FormatTime(hhmm, layout)
		}
		if iq, ok := rec.Iqamah[key]; ok {
			iqamah[key] = display.FormatTime(iq, layout)
		}
	}

	out := todayJSON{
		Location: todayJSONLocation{
			City:      loc.City,
			Country:   loc.Country,
			Timezone:  rec.Timezone,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		},
		Date: todayJSONDate{
			Gregorian: rec.Date,
			Hijri:     rec.HijriDate,
		},
		Method:      rec.CalculationMethod,
		Timings:     timings,
		Unavailable: rec.Unavailable,
	}
	if len(iqamah) > 0 {
		out.Iqamah = iqamah
	}

	if sel.Current != nil {
		out.Current = strings.ToLower(sel.Current.Name)
	}

	if sel.Next != nil {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(sel.Next.Name),
			Time:      sel.Next.Time.Format(layout),
			Remaining: prayer.FormatRemaining(sel.Remaining),
		}
	}

	return writeJSON(w, out)
}

// writeJSON prints v indented.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
