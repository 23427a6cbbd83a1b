package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long:  "Query a specific prayer time for today, or across multiple days with --days.\n\nValid prayer names: " + strings.Join(prayer.Names, ", "),
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

// parseDays reads the --days value. Empty means one day.
func parseDays(raw string) (int, error) {
	switch raw {
	case "":
		return 1, nil
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListDays {
		return 0, fmt.Errorf("invalid --days value %q: must be 1-%d, 'week', or 'month'", raw, maxListDays)
	}
	return n, nil
}

// canonicalName matches a prayer name case-insensitively.
func canonicalName(raw string) (string, error) {
	for _, name := range prayer.Names {
		if strings.EqualFold(name, raw) {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown prayer %q; valid names: %s", raw, strings.Join(prayer.Names, ", "))
}

type queryJSONDay struct {
	Date   string `json:"date"`
	Hijri  string `json:"hijri"`
	Time   string `json:"time"`
	Iqamah string `json:"iqamah,omitempty"`
}

type queryJSON struct {
	Prayer   string         `json:"prayer"`
	Location string         `json:"location"`
	Timezone string         `json:"timezone"`
	Days     []queryJSONDay `json:"days"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	prayerName, err := canonicalName(args[0])
	if err != nil {
		return err
	}
	days, err := parseDays(flagQueryDays)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	layout := display.TimeLayout(a.cfg.Display.TimeFormat)
	recs, today, err := fetchDays(cmd.Context(), a.svc, days)
	if err != nil {
		return err
	}

	key := strings.ToLower(prayerName)
	w := cmd.OutOrStdout()

	if FlagJSON {
		out := queryJSON{Prayer: key, Days: make([]queryJSONDay, 0, len(recs))}
		for _, rec := range recs {
			hhmm, _ := rec.Time(prayerName)
			day := queryJSONDay{Date: rec.Date, Hijri: rec.HijriDate, Time: display.FormatTime(hhmm, layout)}
			if iq, ok := rec.Iqamah[key]; ok {
				day.Iqamah = display.FormatTime(iq, layout)
			}
			out.Days = append(out.Days, day)
			out.Location, out.Timezone = rec.Location, rec.Timezone
		}
		return writeJSON(w, out)
	}

	// Single day: one plain line.
	if days == 1 {
		hhmm, _ := recs[0].Time(prayerName)
		fmt.Fprintf(w, "%s %s\n", prayerName, display.FormatTime(hhmm, layout))
		return nil
	}

	// Rich terminal output.
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold(fmt.Sprintf("%s Times - %d Days", prayerName, days)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", recs[0].Location)
	fmt.Fprintln(w)
	fmt.Fprint(w, display.RecordTable(recs, []string{prayerName}, today, layout).Render())
	fmt.Fprintln(w)
	return nil
}
