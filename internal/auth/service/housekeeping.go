package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/obs"
)

// SessionSweeper drops expired sessions. TokenService implements it.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// HousekeepingService periodically asks the token service to drop expired
// refresh records so the table does not grow without bound.
type HousekeepingService struct {
	Sessions SessionSweeper
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *obs.Metrics
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(sessions SessionSweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one sweep and reports how many records went.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	n, err := s.Sessions.DeleteExpiredSessions(ctx, s.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		return 0
	}

	s.Metrics.ExpiredDeleted(n)
	s.Logger.Info("housekeeping cleanup completed", "deleted", n)
	return n
}
