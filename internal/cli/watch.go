package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/masjid-times/internal/display"
	"github.com/smokyabdulrahman/masjid-times/internal/trigger"
	"github.com/smokyabdulrahman/masjid-times/internal/tui"
)

var flagMuted bool

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of today's prayers with a countdown",
		Long:  "Open a full-screen view that counts down to the next prayer and\nfires the azan notification when a prayer time is reached.\nPress m to mute, q to quit.",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().BoolVar(&flagMuted, "muted", false, "Start with the azan muted")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := prayerFilter("")
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := buildNotifier(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	detector := trigger.NewDetector(a.cfg.Trigger.IncludeSunrise)
	detector.SetMuted(a.cfg.Trigger.Muted || flagMuted)

	bgCtx, cancel := context.WithCancel(ctx)
	defer a.svc.Wait()
	defer cancel()
	a.svc.Start(bgCtx)

	model := tui.New(tui.Options{
		Context:    ctx,
		Source:     a.svc,
		Detector:   detector,
		Notifier:   notifier,
		TimeLayout: display.TimeLayout(a.cfg.Display.TimeFormat),
		Prayers:    names,
	})

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
