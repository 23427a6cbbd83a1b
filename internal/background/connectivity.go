package background

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// OnlineSetter receives connectivity transitions.
type OnlineSetter interface {
	SetOnline(online bool)
}

// ConnectivityWatcher probes a URL with HEAD requests and reports
// transitions to a Daemon.
type ConnectivityWatcher struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
	Clock    clockwork.Clock
	Logger   zerolog.Logger

	target OnlineSetter
	online bool
	known  bool
}

// NewConnectivityWatcher probes url every interval.
func NewConnectivityWatcher(url string, interval time.Duration, target OnlineSetter) *ConnectivityWatcher {
	return &ConnectivityWatcher{
		URL:      url,
		Interval: interval,
		Client:   &http.Client{Timeout: 5 * time.Second},
		Clock:    clockwork.NewRealClock(),
		target:   target,
	}
}

// Run probes immediately and then on every tick until ctx is done.
func (w *ConnectivityWatcher) Run(ctx context.Context) {
	ticker := w.Clock.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.Check(ctx)
		}
	}
}

// Check runs one probe and forwards a change of state. The first probe is
// always forwarded. It is not safe to call concurrently with itself.
func (w *ConnectivityWatcher) Check(ctx context.Context) bool {
	online := w.probe(ctx)
	if !w.known || online != w.online {
		w.Logger.Debug().Str("url", w.URL).Bool("online", online).Msg("connectivity probe")
		w.target.SetOnline(online)
	}
	w.known, w.online = true, online
	return online
}

func (w *ConnectivityWatcher) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.URL, nil)
	if err != nil {
		return false
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
