// Package httpapi exposes the prayer time service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/masjid-times/internal/background"
	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/service"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

// Service is the part of service.Service the handlers use.
type Service interface {
	Clock() clockwork.Clock
	Settings() settings.Snapshot
	Today() (time.Time, error)
	ParseDate(raw string) (time.Time, error)
	GetPrayerTimes(ctx context.Context, date time.Time) (prayer.Record, error)
	GetPrayerTimesRange(ctx context.Context, start, end time.Time) ([]prayer.Record, error)
	NextPrayer(ctx context.Context, now time.Time) (prayer.Selection, error)
	UpdateLocation(ctx context.Context, loc settings.Location) (settings.Snapshot, error)
	UpdateSettings(ctx context.Context, fn func(*settings.Settings) error) (settings.Snapshot, error)
	PreloadPrayerTimes(ctx context.Context, monthsAhead int) (service.PreloadReport, error)
}

// StatusSource reports the background sync state.
type StatusSource interface {
	Status() background.Status
}

// Options configures New.
type Options struct {
	// AllowedOrigins for CORS. Empty or "*" allows any origin.
	AllowedOrigins []string
	// StreamInterval is the SSE push period. Defaults to one second.
	StreamInterval time.Duration
	// MaxRangeDays caps GET /v1/prayer-times. Defaults to 366.
	MaxRangeDays int
	Logger       zerolog.Logger
}

// Error is a handler failure rendered as {"error": Message}.
type Error struct {
	Code    int
	Message string
}

// HandlerFunc returns a JSON body or an Error.
type HandlerFunc func(ctx *gin.Context) (any, *Error)

func resolve(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}

// controller holds the handler dependencies.
type controller struct {
	svc      Service
	status   StatusSource
	interval time.Duration
	maxDays  int
	log      zerolog.Logger
}

// New builds the router. status may be nil when no daemon runs.
func New(svc Service, status StatusSource, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	ctl := &controller{
		svc:      svc,
		status:   status,
		interval: opts.StreamInterval,
		maxDays:  opts.MaxRangeDays,
		log:      opts.Logger,
	}
	if ctl.interval <= 0 {
		ctl.interval = time.Second
	}
	if ctl.maxDays <= 0 {
		ctl.maxDays = 366
	}

	r.GET("/healthz", resolve(ctl.health))

	v1 := r.Group("/v1")
	v1.GET("/prayer-times", resolve(ctl.listPrayerTimes))
	v1.GET("/prayer-times/:date", resolve(ctl.getPrayerTimes))
	v1.GET("/next", resolve(ctl.next))
	v1.GET("/next/stream", ctl.streamNext)
	v1.PUT("/location", resolve(ctl.updateLocation))
	v1.PUT("/calculation", resolve(ctl.updateCalculation))
	v1.POST("/preload", resolve(ctl.preload))
	v1.GET("/sync/status", resolve(ctl.syncStatus))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// Server runs the router until its context ends.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

// NewServer binds handler to addr.
func NewServer(addr string, handler http.Handler, shutdownTimeout time.Duration, log zerolog.Logger) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Request contexts end with ctx so open streams do not hold up shutdown.
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}
