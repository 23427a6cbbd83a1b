package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/masjid-times/internal/background"
	"github.com/smokyabdulrahman/masjid-times/internal/config"
	"github.com/smokyabdulrahman/masjid-times/internal/httpapi"
	"github.com/smokyabdulrahman/masjid-times/internal/logger"
	"github.com/smokyabdulrahman/masjid-times/internal/notify"
	"github.com/smokyabdulrahman/masjid-times/internal/trigger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background sync and azan triggers",
		Long: "Serve prayer times over HTTP while keeping the cache warm in the background\n" +
			"and firing a notification at each prayer time. Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd, readMode)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	a.log.Info().
		Str("location", a.svc.Settings().Location.Label()).
		Str("calculator", cfg.Calculator.Kind).
		Str("cache", cfg.Cache.Backend).
		Msg("starting")

	notifier, closeNotifier, err := buildNotifier(cfg, a.log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	daemon := background.New(a.svc, background.Options{
		Interval:      cfg.Sync.Interval,
		WindowDays:    cfg.Sync.WindowDays,
		PreloadMonths: cfg.Sync.PreloadMonths,
		Clock:         appClock,
		Logger:        a.log,
	})

	detector := trigger.NewDetector(cfg.Trigger.IncludeSunrise)
	detector.SetMuted(cfg.Trigger.Muted)
	runner := trigger.NewRunner(a.svc, detector, notifier, appClock, a.log)

	engine := httpapi.New(a.svc, daemon, httpapi.Options{
		AllowedOrigins: splitOrigins(cfg.HTTP.AllowedOrigins),
		Logger:         logger.Component(a.log, "http"),
	})
	srv := httpapi.NewServer(cfg.HTTP.Addr, engine, cfg.HTTP.ShutdownTimeout, a.log)

	g, gctx := errgroup.WithContext(ctx)
	a.svc.Start(gctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		daemon.Start(gctx)
		<-gctx.Done()
		daemon.Wait()
		return nil
	})
	g.Go(func() error {
		runner.Run(gctx)
		return nil
	})
	if cfg.Sync.ProbeURL != "" {
		watcher := background.NewConnectivityWatcher(cfg.Sync.ProbeURL, cfg.Sync.ProbeInterval, daemon)
		watcher.Clock = appClock
		watcher.Logger = logger.Component(a.log, "connectivity")
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}

	err = g.Wait()
	a.svc.Wait()
	return err
}

// buildNotifier logs every event and, with a broker configured, publishes it
// over MQTT. The returned func disconnects.
func buildNotifier(cfg *config.Config, log zerolog.Logger) (notify.Notifier, func(), error) {
	n := notify.Multi{notify.Log{Logger: logger.Component(log, "azan")}}
	if cfg.MQTT.Broker == "" {
		return n, func() {}, nil
	}

	m, err := notify.NewMQTT(notify.MQTTOptions{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
		QoS:      cfg.MQTT.QoS,
	}, logger.Component(log, "mqtt"))
	if err != nil {
		return nil, nil, err
	}
	return append(n, m), m.Close, nil
}

// splitOrigins parses a comma-separated CORS origin list.
func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
