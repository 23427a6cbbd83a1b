package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

var (
	flagFormat  string
	flagPrayers string
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown.\nThe output is a single line without a newline, suitable for status bars.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, countdown, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to track (overrides config)")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	// Priority: --prayers flag > config > all six.
	override := ""
	if cmd.Flags().Changed("prayers") {
		override = flagPrayers
	}
	names, err := prayerFilter(override)
	if err != nil {
		return err
	}

	sel, err := nextSelection(cmd.Context(), a.svc, appClock.Now(), names)
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(cmd.OutOrStdout(), sel.View())
	}

	fmt.Fprint(cmd.OutOrStdout(), prayer.FormatOutput(sel, flagFormat, display.TimeLayout(a.cfg.Display.TimeFormat)))
	return nil
}

// prayerFilter returns the prayers to show. A non-empty override wins over
// the configured filter; with neither, all six are shown.
func prayerFilter(override string) ([]string, error) {
	d := loadedConfig.Display
	if override != "" {
		d.Prayers = override
	}
	names, err := d.PrayerFilter()
	if err != nil {
		return nil, fmt.Errorf("invalid prayer filter: %w", err)
	}
	if len(names) == 0 {
		return prayer.Names, nil
	}
	return names, nil
}

// daySource is the part of the service a selection is built from.
type daySource interface {
	Zone() (*time.Location, error)
	GetPrayerTimes(ctx context.Context, date time.Time) (prayer.Record, error)
	NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error)
}

// nextSelection is the service's selection restricted to names. With every
// prayer selected it is exactly svc.NextPrayer.
func nextSelection(ctx context.Context, svc daySource, now time.Time, names []string) (prayer.Selection, error) {
	if len(names) == len(prayer.Names) {
		return svc.NextPrayer(ctx, now)
	}

	zone, err := svc.Zone()
	if err != nil {
		return prayer.Selection{}, err
	}
	now = now.In(zone)
	y, m, d := now.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, zone)

	days := make([][]prayer.Prayer, 3)
	for i, offset := range []int{-1, 0, 1} {
		rec, err := svc.GetPrayerTimes(ctx, noon.AddDate(0, 0, offset))
		if err != nil {
			return prayer.Selection{}, err
		}
		all, err := rec.Prayers(zone)
		if err != nil {
			return prayer.Selection{}, err
		}
		days[i] = filterPrayers(all, names)
	}

	return prayer.Select(days[0], days[1], days[2], now), nil
}

func filterPrayers(ps []prayer.Prayer, names []string) []prayer.Prayer {
	out := make([]prayer.Prayer, 0, len(names))
	for _, p := range ps {
		if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, p.Name) }) {
			out = append(out, p)
		}
	}
	return out
}
