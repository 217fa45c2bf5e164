package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// StatusSweeper periodically reconciles stored auction statuses with
// the values derived from their time windows. Only the leader instance
// runs the sweep; readers reconcile on demand regardless, so a lapsed
// leadership never leaves clients with stale listings.
type StatusSweeper struct {
	cron       *cron.Cron
	manager    *AuctionManager
	leader     domain.LeaderElection
	instanceID string
	schedule   string
	log        logger.Logger
}

func NewStatusSweeper(manager *AuctionManager, leader domain.LeaderElection,
	instanceID, schedule string, log logger.Logger) *StatusSweeper {
	return &StatusSweeper{
		cron:       cron.New(cron.WithSeconds()),
		manager:    manager,
		leader:     leader,
		instanceID: instanceID,
		schedule:   schedule,
		log:        log,
	}
}

func (s *StatusSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting status sweeper", "schedule", s.schedule)

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *StatusSweeper) Stop() error {
	s.log.Info("Stopping status sweeper")
	s.cron.Stop()
	return nil
}

func (s *StatusSweeper) sweep(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		return
	}

	if err := s.manager.SyncNow(ctx); err != nil {
		s.log.Error("Status sweep failed", "error", err)
	}
}
