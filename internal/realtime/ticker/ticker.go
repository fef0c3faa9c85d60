package ticker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/logging"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/hub"
	"github.com/hydroaid/hydroaid-backend/internal/stats/service"
	"github.com/robfig/cron/v3"
)

// StatsSource computes the dashboard snapshot pushed on each tick.
type StatsSource interface {
	GetDashboardStats(ctx context.Context) (*service.DashboardStats, error)
}

// Scheduler periodically publishes dashboard-stats to the admin room.
type Scheduler struct {
	source      StatsSource
	broadcaster *hub.Broadcaster
	timeout     time.Duration
	cron        *cron.Cron
}

func NewScheduler(source StatsSource, broadcaster *hub.Broadcaster, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Scheduler{
		source:      source,
		broadcaster: broadcaster,
		timeout:     timeout,
		cron:        cron.New(cron.WithSeconds()),
	}
}

// Start registers the job under spec (six fields, seconds first, or a
// descriptor such as "@every 30s") and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx := logging.WithRequestID(context.Background(), "stats-ticker")
		if err := s.Tick(ctx); err != nil {
			logging.NewLogger(ctx).Warnf("stats_tick", "error=%v", err)
		}
	}); err != nil {
		return fmt.Errorf("stats ticker spec %q: %w", spec, err)
	}
	s.cron.Start()
	logging.NewLogger(context.Background()).Infof("stats_tick", "scheduler started spec=%q", spec)
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Tick computes one snapshot and publishes it. An empty admin room is not
// an error.
func (s *Scheduler) Tick(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.source.GetDashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("dashboard stats: %w", err)
	}

	err = s.broadcaster.Broadcast(ctx, []hub.Target{{Room: hub.AdminRoom, Event: hub.EventDashboardStats}}, stats)
	if err != nil && !errors.Is(err, hub.ErrNoRecipients) {
		return err
	}
	return nil
}
