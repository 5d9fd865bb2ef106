package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"event-seating/internal/data/repository"
	"event-seating/internal/realtime"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

// Sweeper returns holds older than the hold TTL to available.
type Sweeper struct {
	seats    repository.SeatRepository
	notifier *notifier
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	// held for the duration of a pass; ticks skip instead of queueing
	mu  sync.Mutex
	log *zap.Logger
}

func NewSweeper(seats repository.SeatRepository, n *notifier, config utils.HoldConfig, log *zap.Logger) *Sweeper {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	interval := config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Sweeper{
		seats:    seats,
		notifier: n,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		log:      log.With(zap.String("service", "sweeper")),
	}
}

// Sweep runs one pass and reports how many holds it released. Cleanup is
// only broadcast when something was released.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	released, err := s.sweep(ctx, false)
	return len(released), err
}

func (s *Sweeper) sweep(ctx context.Context, always bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(ctx, always)
}

func (s *Sweeper) sweepLocked(ctx context.Context, always bool) ([]string, error) {
	cutoff := s.now().Add(-s.ttl)

	released, err := s.seats.ReleaseExpired(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to release expired holds", zap.Error(err))
		return nil, fmt.Errorf("cleanup expired holds: %w", err)
	}

	if len(released) > 0 {
		s.log.Info("Expired holds released",
			zap.Int("released", len(released)),
			zap.Time("cutoff", cutoff),
		)
	}
	if len(released) > 0 || always {
		s.notifier.notify(ctx, realtime.Cleanup(released))
	}

	return released, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("ttl", s.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if !s.mu.TryLock() {
				s.log.Debug("Previous sweep still running, skipping tick")
				continue
			}
			_, _ = s.sweepLocked(ctx, false)
			s.mu.Unlock()
		}
	}
}
