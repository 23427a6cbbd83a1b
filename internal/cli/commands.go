package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/config"
	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify settings",
		Long:  "Display the current settings, or use subcommands to modify them.\nWhen run without subcommands, shows the current settings.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a settings value",
		Long: fmt.Sprintf("Set a settings value and clear the cached prayer times. Valid keys: %s\n\nExamples:\n  prayer-times config set method MWL\n  prayer-times config set asr_method Hanafi\n  prayer-times config set adjust.maghrib 2\n  prayer-times config set iqamah.isha 15",
			strings.Join(settings.ValidKeys, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a settings value",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset settings to defaults",
		Long:  "Delete the settings file and restore all settings to defaults.",
		RunE:  runConfigReset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings and config file paths",
		RunE:  runConfigPath,
	})

	return cmd
}

// runConfigShow displays the current settings and the runtime config that
// shapes them.
func runConfigShow(cmd *cobra.Command, args []string) error {
	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return err
	}
	s, err := file.Load()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "  Settings (%s)\n\n", file.Path())

	for _, key := range settings.DisplayKeys() {
		val, _ := s.Get(key)
		shown := val
		if shown == "" {
			shown = display.Gray("(not set)")
		}
		if key == "method" && val != "" {
			shown = formatMethodValue(val)
		}
		fmt.Fprintf(w, "  %-16s %s\n", key, shown)
	}

	cfg := loadedConfig
	fmt.Fprintf(w, "\n  Runtime\n\n")
	fmt.Fprintf(w, "  %-16s %s\n", "calculator", cfg.Calculator.Kind)
	fmt.Fprintf(w, "  %-16s %s\n", "cache", cfg.Cache.Backend)
	fmt.Fprintf(w, "  %-16s %s\n", "time_format", cfg.Display.TimeFormat)
	if cfg.Display.Prayers != "" {
		fmt.Fprintf(w, "  %-16s %s\n", "prayers", cfg.Display.Prayers)
	}
	return nil
}

// runConfigSet changes one key through the service so the cache is cleared
// along with it.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	a, err := newApp(cmd, persistMode)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.bindBackground(cmd.Context())()

	if _, err := a.svc.UpdateSettings(cmd.Context(), func(s *settings.Settings) error {
		return s.Set(key, value)
	}); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	fmt.Fprintln(w, display.Gray("Cached prayer times cleared."))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return err
	}
	s, err := file.Load()
	if err != nil {
		return err
	}
	val, err := s.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

// runConfigReset deletes the settings file. Records computed under the old
// settings no longer match and are recomputed on the next read.
func runConfigReset(cmd *cobra.Command, args []string) error {
	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return err
	}
	if err := file.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults.")
	return nil
}

// runConfigPath prints the settings and config file paths.
func runConfigPath(cmd *cobra.Command, args []string) error {
	file, err := settings.NewFileStore(FlagSettings)
	if err != nil {
		return err
	}
	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), file.Path())
	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}

// formatMethodValue adds the method name to its ID.
func formatMethodValue(val string) string {
	if m, ok := solar.LookupMethod(val); ok && m.ID != solar.MethodCustom {
		return fmt.Sprintf("%s (%s)", m.ID, m.Name)
	}
	return val
}

// formatAngles summarises a method's twilight parameters.
func formatAngles(p solar.Params) string {
	isha := fmt.Sprintf("%g°", p.IshaAngle)
	if p.IshaInterval > 0 {
		isha = fmt.Sprintf("%g min", p.IshaInterval)
	}
	return fmt.Sprintf("Fajr %g°, Isha %s", p.FajrAngle, isha)
}

type methodJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AlAdhanID int     `json:"aladhanId"`
	FajrAngle float64 `json:"fajrAngle"`
	IshaAngle float64 `json:"ishaAngle,omitempty"`
	IshaMins  float64 `json:"ishaInterval,omitempty"`
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of all supported calculation methods.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if FlagJSON {
				out := make([]methodJSON, 0, len(solar.Methods))
				for _, m := range solar.Methods {
					out = append(out, methodJSON{
						ID:        m.ID,
						Name:      m.Name,
						AlAdhanID: m.AlAdhanID,
						FajrAngle: m.Params.FajrAngle,
						IshaAngle: m.Params.IshaAngle,
						IshaMins:  m.Params.IshaInterval,
					})
				}
				return writeJSON(w, out)
			}

			fmt.Fprintln(w, "Supported calculation methods:")
			fmt.Fprintln(w)
			tbl := display.NewTable([]string{"ID", "Name", "Angles"})
			for _, m := range solar.Methods {
				angles := formatAngles(m.Params)
				if m.ID == solar.MethodCustom {
					angles = "from settings"
				}
				tbl.AddRow([]string{m.ID, m.Name, angles})
			}
			fmt.Fprint(w, tbl.Render())
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Use --method <ID> for one run, or 'config set method <ID>' to keep it.")
			return nil
		},
	}
}

// bindBackground ties the preload a settings change starts to ctx. The
// returned func cancels it and waits.
func (a *app) bindBackground(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	a.svc.Bind(ctx)
	return func() {
		cancel()
		a.svc.Wait()
	}
}
