// Package monitor watches hot feeds for fresh keyword mentions and pushes
// a notification event the first time each post is seen. Dedup state is
// persisted so restarts do not replay old mentions.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qepting91/buzzscope/internal/domain"
)

// Collector runs one keyword collection. Satisfied by orchestrate.Service.
type Collector interface {
	Collect(ctx context.Context, keyword string, platforms []domain.Platform,
		mode domain.Mode, policy domain.MatchPolicy, forceRefresh bool) (*domain.CollectionResult, error)
}

// Options configures a monitor.
type Options struct {
	Keywords     []string
	Policy       domain.MatchPolicy
	Retention    time.Duration // how long notified posts stay deduplicated
	Schedule     string        // cron expression for Run
	CycleTimeout time.Duration // budget for one scheduled check
}

// Monitor is the hot-mode event monitor.
type Monitor struct {
	collector Collector
	state     *NotifiedSet
	notifiers []Notifier
	logger    *slog.Logger
	opts      Options

	now func() time.Time
}

func New(collector Collector, state *NotifiedSet, notifiers []Notifier, logger *slog.Logger, opts Options) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = domain.MatchExact
	}
	if opts.Retention == 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	if opts.CycleTimeout == 0 {
		opts.CycleTimeout = 5 * time.Minute
	}
	return &Monitor{
		collector: collector,
		state:     state,
		notifiers: notifiers,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Check runs one monitoring cycle: collect hot posts for every keyword,
// notify for posts not seen before, then persist the dedup state. Platform
// and delivery failures degrade the cycle; only a state-save failure is
// fatal, because losing the dedup set would duplicate every notification on
// the next cycle.
func (m *Monitor) Check(ctx context.Context) ([]domain.NotificationEvent, error) {
	var events []domain.NotificationEvent

	for _, keyword := range m.opts.Keywords {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}

		// Hot mode always refetches: yesterday's cache defeats the point.
		res, err := m.collector.Collect(ctx, keyword, nil, domain.ModeHot, m.opts.Policy, true)
		if err != nil {
			m.logger.Warn("monitor collection degraded", "keyword", keyword, "err", err)
			if res == nil {
				continue
			}
		}

		for _, post := range res.Posts {
			if m.state.Contains(post.Platform, post.ID) {
				continue
			}
			event := domain.EventFromPost(res.Keyword, post, m.now().UTC())
			m.deliver(ctx, event)
			m.state.Add(post.Platform, post.ID, event.FoundAt)
			events = append(events, event)
		}
	}

	m.state.Prune(m.opts.Retention, m.now())
	if err := m.state.Save(); err != nil {
		return events, fmt.Errorf("persist notified state: %w", err)
	}

	m.logger.Info("monitor cycle complete", "keywords", len(m.opts.Keywords),
		"new_events", len(events), "tracked", m.state.Len())
	return events, nil
}

// deliver fans one event out to every notifier. A failing channel does not
// block the others.
func (m *Monitor) deliver(ctx context.Context, event domain.NotificationEvent) {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			m.logger.Error("notification delivery failed",
				"keyword", event.Keyword, "platform", event.Platform, "err", err)
		}
	}
}

// Run executes an immediate cycle, then repeats on the configured cron
// schedule until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.Check(ctx); err != nil {
		return err
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(m.opts.Schedule, func() {
		cycleCtx, cancel := context.WithTimeout(ctx, m.opts.CycleTimeout)
		defer cancel()
		if _, err := m.Check(cycleCtx); err != nil {
			m.logger.Error("monitor cycle failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.opts.Schedule, err)
	}

	m.logger.Info("monitor running", "schedule", m.opts.Schedule, "keywords", len(m.opts.Keywords))
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return ctx.Err()
}
