package workers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/client/watch"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 3 * time.Second

// OnlineWatcher probes the backend periodically and publishes the
// resulting mode. It starts offline until the first probe succeeds.
type OnlineWatcher struct {
	pinger   Pinger
	interval time.Duration
	mode     *watch.Value[Mode]
	log      logging.Logger
	metrics  *metrics.WorkerMetrics
}

func NewOnlineWatcher(p Pinger, interval time.Duration, log logging.Logger, m *metrics.WorkerMetrics) *OnlineWatcher {
	if log == nil {
		log = logging.Nop()
	}
	return &OnlineWatcher{pinger: p, interval: interval, mode: watch.NewValue(ModeOffline), log: log, metrics: m}
}

func (w *OnlineWatcher) Mode() Mode   { return w.mode.Get() }
func (w *OnlineWatcher) Online() bool { return w.mode.Get() == ModeOnline }

// Subscribe streams the mode, starting with the current one.
func (w *OnlineWatcher) Subscribe(ctx context.Context) <-chan Mode {
	return w.mode.Subscribe(ctx)
}

// Check probes once and updates the mode.
func (w *OnlineWatcher) Check(ctx context.Context) Mode {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := w.pinger.Ping(pctx)
	cancel()

	mode := ModeOnline
	if err != nil {
		mode = ModeOffline
	}
	w.setMode(ctx, mode)
	return mode
}

func (w *OnlineWatcher) setMode(ctx context.Context, mode Mode) {
	w.metrics.SetOnline(mode == ModeOnline)
	if w.mode.Get() == mode {
		return
	}
	w.mode.Set(mode)
	w.log.Info(ctx, "connectivity changed", "mode", string(mode))
}

// Run probes immediately and then every interval until ctx is done.
func (w *OnlineWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
