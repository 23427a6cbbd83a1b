package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
)

func newPreloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload [months]",
		Short: "Compute and cache prayer times ahead",
		Long:  "Compute every day from today through the given number of months ahead\n(default: sync.preload_months) and store them in the cache.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPreload,
	}
}

func runPreload(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	months := a.cfg.Sync.PreloadMonths
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number of months: %q", args[0])
		}
		months = n
	}

	report, err := a.svc.PreloadPrayerTimes(cmd.Context(), months)
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Preloaded %d days (%s to %s)\n", report.Days, report.From, report.To)
	if report.Failed > 0 {
		fmt.Fprintln(w, display.Yellow(fmt.Sprintf("%d days failed; see the log for details", report.Failed)))
	}
	return nil
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached prayer times",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the dates held in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, persistMode)
			if err != nil {
				return err
			}
			defer a.Close()

			dates, err := a.svc.CachedDates(cmd.Context())
			if err != nil {
				return err
			}
			if FlagJSON {
				if dates == nil {
					dates = []string{}
				}
				return writeJSON(cmd.OutOrStdout(), dates)
			}

			w := cmd.OutOrStdout()
			if len(dates) == 0 {
				fmt.Fprintln(w, "Cache is empty.")
				return nil
			}
			fmt.Fprintf(w, "%d dates cached, %s to %s\n", len(dates), dates[0], dates[len(dates)-1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached prayer time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, persistMode)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.records.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	})

	return cmd
}
