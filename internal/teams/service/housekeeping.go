package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
)

// HousekeepingService periodically removes invitations past their redeemable
// window so the invitations table does not grow without bound. This is the
// cleanup job the join/invite flows themselves do not perform.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// InvitationTTL is how long invitations stay redeemable; anything older
	// is swept regardless of status.
	InvitationTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour, a non-positive TTL to 14 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, invitationTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if invitationTTL <= 0 {
		invitationTTL = 14 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:         st,
		Logger:        logger,
		Interval:      interval,
		InvitationTTL: invitationTTL,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() for a
// graceful shutdown.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker, blocking until any in-progress
// sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.InvitationTTL)

	n, err := s.Store.Invitations().DeleteInvitationsOlderThan(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to sweep stale invitations", "error", err)
		return
	}
	if n > 0 {
		s.Logger.Info("swept stale invitations", "deleted", n, "cutoff", cutoff)
	}
}
