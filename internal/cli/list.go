package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
)

// maxListDays bounds list and query --days.
const maxListDays = 366

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days starting today (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'. Display a grid of prayer times for 7 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Display a grid of prayer times for 30 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// runList is the handler for the list, week and month subcommands.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days := defaultDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxListDays {
			return fmt.Errorf("invalid number of days: %q (must be between 1 and %d)", args[0], maxListDays)
		}
		days = n
	}

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

	recs, today, err := fetchDays(cmd.Context(), a.svc, days)
	if err != nil {
		return err
	}

	if FlagJSON {
		return printListJSON(cmd, recs, names, layout)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold(fmt.Sprintf("Prayer Times - %d Days", days)))
	fmt.Fprintln(w)
	if len(recs) > 0 {
		fmt.Fprintf(w, "  %s\n", recs[0].Location)
		fmt.Fprintf(w, "  %s\n", recs[0].Timezone)
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, display.RecordTable(recs, names, today, layout).Render())
	fmt.Fprintln(w)
	return nil
}

// fetchDays returns the records for days consecutive dates from today, and
// today's date key.
func fetchDays(ctx context.Context, svc *service.Service, days int) ([]prayer.Record, string, error) {
	start, err := svc.Today()
	if err != nil {
		return nil, "", err
	}
	recs, err := svc.GetPrayerTimesRange(ctx, start, start.AddDate(0, 0, days-1))
	if err != nil {
		return nil, "", err
	}
	return recs, prayer.Key(start), nil
}

// listDayJSON is one day of list output.
type listDayJSON struct {
	Date        string            `json:"date"`
	Hijri       string            `json:"hijri"`
	Timings     map[string]string `json:"timings"`
	Iqamah      map[string]string `json:"iqamah,omitempty"`
	Unavailable []string          `json:"unavailable,omitempty"`
}

type listJSON struct {
	Location string        `json:"location"`
	Timezone string        `json:"timezone"`
	Method   string        `json:"method"`
	Days     []listDayJSON `json:"days"`
}

func printListJSON(cmd *cobra.Command, recs []prayer.Record, names []string, layout string) error {
	out := listJSON{Days: make([]listDayJSON, 0, len(recs))}
	if len(recs) > 0 {
		out.Location = recs[0].Location
		out.Timezone = recs[0].Timezone
		out.Method = recs[0].CalculationMethod
	}

	for _, rec := range recs {
		day := listDayJSON{
			Date:        rec.Date,
			Hijri:       rec.HijriDate,
			Timings:     make(map[string]string, len(names)),
			Unavailable: rec.Unavailable,
		}
		for _, name := range names {
			key := strings.ToLower(name)
			if hhmm, ok := rec.Time(name); ok {
				day.Timings[key] = display.FormatTime(hhmm, layout)
			}
			if iq, ok := rec.Iqamah[key]; ok {
				if day.Iqamah == nil {
					day.Iqamah = make(map[string]string)
				}
				day.Iqamah[key] = display.FormatTime(iq, layout)
			}
		}
		out.Days = append(out.Days, day)
	}

	return writeJSON(cmd.OutOrStdout(), out)
}
