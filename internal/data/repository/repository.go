package repository

import (
	"context"
	"time"

	"event-seating/internal/data/entity"
	"event-seating/pkg/database"

	"go.uber.org/zap"
)

// SeatRepository is the hold ledger. Every mutating method is a single
// conditional transition, atomic against concurrent callers on the same seat.
type SeatRepository interface {
	List(ctx context.Context, limit, offset int) ([]*entity.Seat, int64, error)
	FindAll(ctx context.Context) ([]*entity.Seat, error)
	FindByIDs(ctx context.Context, ids []string) ([]*entity.Seat, error)

	// TryHold holds seatID for sessionID when it is available or already
	// held by sessionID. The session's other holds are counted in the same
	// transaction, so maxHeld is never exceeded.
	TryHold(ctx context.Context, seatID, sessionID string, maxHeld int) (*entity.Seat, error)
	Release(ctx context.Context, seatID, sessionID string) (*entity.Seat, error)
	// Complete sells every seat in seatIDs or none of them.
	Complete(ctx context.Context, seatIDs []string, sessionID string) ([]*entity.Seat, error)
	// SetStatus is the administrative override. holder is only used when
	// status is held; any other status clears the hold fields.
	SetStatus(ctx context.Context, seatIDs []string, status entity.SeatStatus, holder string) ([]*entity.Seat, error)
	ReleaseExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}

// SessionRepository tracks seat-selection sessions and what they hold.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	CountHeld(ctx context.Context, sessionID string) (int, error)
}

type Repository struct {
	Seat    SeatRepository
	Session SessionRepository
}

// NewRepository wires the PostgreSQL-backed ledger.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Seat:    NewSeatRepository(db, log),
		Session: NewSessionRepository(db, log),
	}
}

// NewMemoryRepository wires the in-process ledger. Both repositories share
// one store so hold counts and seat rows never disagree.
func NewMemoryRepository(seats []*entity.Seat, log *zap.Logger, opts ...MemoryOption) *Repository {
	store := NewMemoryStore(seats, log, opts...)
	return &Repository{
		Seat:    store,
		Session: store,
	}
}
