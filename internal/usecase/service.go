package usecase

import (
	"context"
	"time"

	"event-seating/internal/data/cache"
	"event-seating/internal/data/repository"
	"event-seating/internal/queue"
	"event-seating/internal/realtime"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

// Broadcaster fans an event out to every live channel.
type Broadcaster interface {
	Broadcast(ev realtime.Event) int
}

type Service struct {
	Seat    SeatService
	Sweeper *Sweeper
}

func NewService(
	repo *repository.Repository,
	hub Broadcaster,
	seatCache cache.SeatCache,
	publisher queue.Publisher,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	n := &notifier{
		hub:       hub,
		cache:     seatCache,
		publisher: publisher,
		log:       log.With(zap.String("service", "notifier")),
	}
	sweeper := NewSweeper(repo.Seat, n, config.Hold, log)

	return &Service{
		Seat:    NewSeatService(repo, n, sweeper, config.Hold, log),
		Sweeper: sweeper,
	}
}

const publishTimeout = 2 * time.Second

// notifier runs the side effects of a committed ledger change: drop cached
// pages, push to live channels, then hand the event to the broker.
type notifier struct {
	hub       Broadcaster
	cache     cache.SeatCache
	publisher queue.Publisher
	log       *zap.Logger
}

func (n *notifier) notify(ctx context.Context, ev realtime.Event) {
	// The ledger change is already committed; a cancelled request must not
	// suppress its notifications.
	ctx = context.WithoutCancel(ctx)

	n.cache.Invalidate(ctx)
	delivered := n.hub.Broadcast(ev)

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	n.publisher.Publish(pubCtx, ev)

	n.log.Debug("Seat event dispatched",
		zap.String("event", string(ev.Event)),
		zap.Int("delivered", delivered),
	)
}
