package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/woow-admin/woow/internal/state"
)

const (
	defaultProbeInterval = 15 * time.Second
	maxBackoff           = 60 * time.Second
	minProbeGap          = time.Second
)

// Prober checks whether the site is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Link receives connectivity transitions and exposes the retry queue length.
type Link interface {
	SetOnline(ctx context.Context, online bool)
	PendingCount() int
}

// Poller probes the site on a fixed cadence, backing off while it is
// unreachable, and pushes connectivity transitions to the dispatcher.
type Poller struct {
	prober   Prober
	link     Link
	store    *state.Store
	interval time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
	trigger  chan struct{}
}

// NewPoller builds a Poller. A non-positive interval uses the default.
func NewPoller(prober Prober, link Link, store *state.Store, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		prober:   prober,
		link:     link,
		store:    store,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(minProbeGap), 1),
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks for an immediate probe. Requests arriving faster than the
// limiter allows collapse into one.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Start launches the probe loop in a goroutine and returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run probes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.ProbeOnce(ctx)

		wait := calculateBackoff(p.store.Snapshot().ConsecutiveFailures, p.interval)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// ProbeOnce runs a single probe and applies its result.
func (p *Poller) ProbeOnce(ctx context.Context) {
	err := p.prober.Probe(ctx)
	if ctx.Err() != nil {
		return
	}
	changed := p.store.RecordProbe(err)
	snap := p.store.Snapshot()
	if err != nil {
		p.logger.Debug("probe failed", "failures", snap.ConsecutiveFailures, "error", err)
	}
	if changed {
		online := !snap.IsOffline()
		p.logger.Info("connectivity changed", "online", online)
		p.link.SetOnline(ctx, online)
	}
	p.store.SetPendingRetries(p.link.PendingCount())
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff. The first failure keeps the base interval so a second probe
// can confirm the outage promptly.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 1 {
		return base
	}
	backoff := base
	for i := 1; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
