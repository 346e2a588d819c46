package widget

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/kin/internal/logging"
)

// ModTimer reports when the watched data last changed. *contact.FileSource implements it.
type ModTimer interface {
	ModTime() (time.Time, error)
}

// SchedulerConfig configures the periodic and data-change triggers.
type SchedulerConfig struct {
	// Interval is the periodic refresh period; zero disables the timer.
	Interval time.Duration
	// PollInterval is how often Watch is checked; zero disables polling.
	PollInterval time.Duration
	Watch        ModTimer
}

// Scheduler drives the host's timer and data-change triggers.
type Scheduler struct {
	host   *Host
	cfg    SchedulerConfig
	logger *slog.Logger
}

// NewScheduler returns a scheduler for host. A nil logger discards.
func NewScheduler(host *Host, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{host: host, cfg: cfg, logger: logger}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	var tick, poll <-chan time.Time

	if s.cfg.Interval > 0 {
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	var lastMod time.Time
	if s.cfg.Watch != nil && s.cfg.PollInterval > 0 {
		lastMod, _ = s.cfg.Watch.ModTime()
		p := time.NewTicker(s.cfg.PollInterval)
		defer p.Stop()
		poll = p.C
	}

	s.logger.Info("scheduler started", "interval", s.cfg.Interval, "poll_interval", s.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-tick:
			if _, err := s.host.RefreshAll(ctx); err != nil {
				s.logger.Warn("timer refresh failed", "error", err)
			}
		case <-poll:
			mod, err := s.cfg.Watch.ModTime()
			if err != nil {
				s.logger.Warn("address book stat failed", "error", err)
				continue
			}
			if mod.Equal(lastMod) {
				continue
			}
			lastMod = mod
			if _, err := s.host.NotifyDataChanged(ctx); err != nil {
				s.logger.Warn("data-change refresh failed", "error", err)
			}
		}
	}
}
