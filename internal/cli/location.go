package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/geo"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

var flagElevation float64

func newLocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or change the saved location",
		Long:  "Display the saved location, or use subcommands to change it.\nChanging the location clears the cached prayer times.",
		RunE:  runLocationShow,
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Save a location",
		Long: "Save a location given by --latitude/--longitude (with optional --timezone),\nor by --city/--country, which is resolved through the Al Adhan API.\n\n" +
			"Examples:\n  prayer-times location set --city Riyadh --country \"Saudi Arabia\"\n  prayer-times location set --latitude 51.5074 --longitude -0.1278 --timezone Europe/London",
		Args: cobra.NoArgs,
		RunE: runLocationSet,
	}
	set.Flags().Float64Var(&flagElevation, "elevation", 0, "Elevation in meters")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "Detect the location from your IP address and save it",
		Args:  cobra.NoArgs,
		RunE:  runLocationDetect,
	})

	return cmd
}

func runLocationShow(cmd *cobra.Command, args []string) error {
	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return err
	}
	s, err := file.Load()
	if err != nil {
		return err
	}
	if FlagJSON {
		return writeJSON(cmd.OutOrStdout(), locationJSON(s.Location))
	}
	printLocation(cmd.OutOrStdout(), s.Location)
	return nil
}

func runLocationSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, persistMode)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.bindBackground(cmd.Context())()

	var loc settings.Location
	switch {
	case anyFlagSet(cmd, "latitude", "longitude"):
		if !anyFlagSet(cmd, "latitude") || !anyFlagSet(cmd, "longitude") {
			return errors.New("--latitude and --longitude must be given together")
		}
		loc = settings.Location{
			Latitude:  FlagLatitude,
			Longitude: FlagLongitude,
			Elevation: flagElevation,
			City:      FlagCity,
			Country:   FlagCountry,
			Timezone:  FlagTimezone,
		}
	case anyFlagSet(cmd, "city"):
		loc, err = a.locateCity(cmd.Context())
		if err != nil {
			return err
		}
		loc.Elevation = flagElevation
	default:
		return errors.New("give --latitude and --longitude, or --city and --country")
	}

	if err := loc.Validate(); err != nil {
		return err
	}
	snap, err := a.svc.UpdateLocation(cmd.Context(), loc)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Location saved.")
	printLocation(cmd.OutOrStdout(), snap.Location)
	return nil
}

func runLocationDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, persistMode)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.bindBackground(cmd.Context())()

	current := a.svc.Settings().Location
	loc, err := geo.Resolve(cmd.Context(), a.geoProvider(), current)
	if err != nil {
		return fmt.Errorf("location detection failed, keeping %s: %w", current.Label(), err)
	}

	snap, err := a.svc.UpdateLocation(cmd.Context(), loc)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Detected location saved.")
	printLocation(cmd.OutOrStdout(), snap.Location)
	return nil
}

func printLocation(w io.Writer, l settings.Location) {
	fmt.Fprintf(w, "  %s\n", display.Bold(l.Label()))
	fmt.Fprintf(w, "  %-10s %.4f, %.4f\n", "coords", l.Latitude, l.Longitude)
	if l.Elevation != 0 {
		fmt.Fprintf(w, "  %-10s %gm\n", "elevation", l.Elevation)
	}
	tz := l.Timezone
	if tz == "" {
		tz = "local"
	}
	fmt.Fprintf(w, "  %-10s %s\n", "timezone", tz)
}

type locationOut struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation,omitempty"`
	Timezone  string  `json:"timezone"`
}

func locationJSON(l settings.Location) locationOut {
	return locationOut{
		City:      l.City,
		Country:   l.Country,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Elevation: l.Elevation,
		Timezone:  l.Timezone,
	}
}
