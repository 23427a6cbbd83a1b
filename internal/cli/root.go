package cli

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/masjid-times/internal/config"
	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/logger"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagCountry    string
	FlagLatitude   float64
	FlagLongitude  float64
	FlagTimezone   string
	FlagMethod     string
	FlagAsr        string
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagSettings   string
	FlagNoColor    bool
	FlagVerbose    bool
)

// loadedConfig holds the config loaded during PersistentPreRunE.
// Available to all subcommand handlers.
var loadedConfig *config.Config

// rootLogger is built from loadedConfig in PersistentPreRunE.
var rootLogger = zerolog.Nop()

// appClock is the time source handed to the service. Tests replace it.
var appClock clockwork.Clock = clockwork.NewRealClock()

// NewRootCmd creates the root command for the prayer-times CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "prayer-times",
		Short:   "Islamic prayer times CLI",
		Long:    "A full-featured CLI for Islamic prayer times, calculated locally or fetched from the Al Adhan API.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := applyConfigFlags(cmd, cfg); err != nil {
				return err
			}
			loadedConfig = cfg

			rootLogger = logger.New(logger.Options{
				Level:      logLevel(cfg),
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				Console:    cfg.Log.Console || FlagVerbose,
				Stderr:     cmd.ErrOrStderr(),
			})

			if FlagNoColor {
				display.SetEnabled(false)
			}
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Register global persistent flags.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "Override city (takes precedence over settings)")
	pf.StringVar(&FlagCountry, "country", "", "Override country")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.StringVar(&FlagTimezone, "timezone", "", "Override IANA timezone, e.g. Europe/London")
	pf.StringVar(&FlagMethod, "method", "", "Override calculation method (see 'methods')")
	pf.StringVar(&FlagAsr, "asr", "", "Override Asr rule: Standard or Hanafi")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-times/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagSettings, "settings", "", "Settings file (default: ~/.config/prayer-times/settings.toml)")
	pf.BoolVar(&FlagNoColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&FlagVerbose, "verbose", "v", false, "Log to stderr at debug level")

	// Register subcommands.
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())
	rootCmd.AddCommand(newLocationCmd())
	rootCmd.AddCommand(newPreloadCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("prayer-times %s\n", version)
}

// applyConfigFlags folds the flags that belong to the runtime config into cfg.
func applyConfigFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "cache-dir") {
		cfg.Cache.Dir = FlagCacheDir
	}
	if flagWasSet(flags, root, "time-format") {
		if FlagTimeFormat != "12h" && FlagTimeFormat != "24h" {
			return fmt.Errorf("invalid --time-format %q: must be 12h or 24h", FlagTimeFormat)
		}
		cfg.Display.TimeFormat = FlagTimeFormat
	}
	return nil
}

func logLevel(cfg *config.Config) string {
	if FlagVerbose {
		return "debug"
	}
	return cfg.Log.Level
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

// anyFlagSet reports whether any of the named flags was explicitly set.
func anyFlagSet(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), n) {
			return true
		}
	}
	return false
}
