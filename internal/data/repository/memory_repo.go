package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"event-seating/internal/data/entity"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

// MemoryStore is an in-process ledger. One mutex guards every row, which
// makes each method a single atomic transition.
type MemoryStore struct {
	mu       sync.Mutex
	seats    map[string]*entity.Seat
	sessions map[string]entity.Session
	now      func() time.Time
	log      *zap.Logger
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for held_at and updated_at.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(seats []*entity.Seat, log *zap.Logger, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		seats:    make(map[string]*entity.Seat, len(seats)),
		sessions: make(map[string]entity.Session),
		now:      time.Now,
		log:      log.With(zap.String("repository", "memory")),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, seat := range seats {
		s.seats[seat.ID] = seat.Clone()
	}
	return s
}

// GenerateSeatMap builds an all-available seat catalog with IDs of the form
// "<section>-<row>-<column>".
func GenerateSeatMap(sections []string, rows, cols int) []*entity.Seat {
	now := time.Now()
	seats := make([]*entity.Seat, 0, len(sections)*rows*cols)
	for tier, section := range sections {
		for r := 0; r < rows; r++ {
			row := string(rune('A' + r%26))
			for c := 1; c <= cols; c++ {
				rowID := row
				seats = append(seats, &entity.Seat{
					ID:        fmt.Sprintf("%s-%s-%d", section, row, c),
					SectionID: section,
					RowID:     &rowID,
					Column:    c,
					PriceTier: tier + 1,
					Status:    entity.SeatStatusAvailable,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
		}
	}
	return seats
}

func (s *MemoryStore) sortedLocked() []*entity.Seat {
	out := make([]*entity.Seat, 0, len(s.seats))
	for _, seat := range s.seats {
		out = append(out, seat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneAll(seats []*entity.Seat) []*entity.Seat {
	out := make([]*entity.Seat, len(seats))
	for i, seat := range seats {
		out[i] = seat.Clone()
	}
	return out
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*entity.Seat, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sortedLocked()
	total := int64(len(all))
	if offset >= len(all) {
		return []*entity.Seat{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return cloneAll(all[offset:end]), total, nil
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneAll(s.sortedLocked()), nil
}

func (s *MemoryStore) FindByIDs(ctx context.Context, ids []string) ([]*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*entity.Seat{}
	for _, id := range utils.UniqueStrings(ids) {
		if seat, ok := s.seats[id]; ok {
			out = append(out, seat.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) TryHold(ctx context.Context, seatID, sessionID string, maxHeld int) (*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxHeld > 0 && s.countHeldLocked(sessionID, seatID) >= maxHeld {
		return nil, ErrCapExceeded
	}

	seat, ok := s.seats[seatID]
	if !ok {
		return nil, ErrNotFound
	}
	if seat.Status != entity.SeatStatusAvailable && !seat.IsHeldBy(sessionID) {
		return nil, ErrConflict
	}

	seat.Hold(sessionID, s.now())
	return seat.Clone(), nil
}

func (s *MemoryStore) Release(ctx context.Context, seatID, sessionID string) (*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, ok := s.seats[seatID]
	if !ok {
		return nil, ErrNotFound
	}
	if !seat.IsHeldBy(sessionID) {
		return nil, ErrForbidden
	}

	seat.Settle(entity.SeatStatusAvailable, s.now())
	return seat.Clone(), nil
}

func (s *MemoryStore) Complete(ctx context.Context, seatIDs []string, sessionID string) ([]*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := utils.UniqueStrings(seatIDs)
	current := make([]*entity.Seat, 0, len(ids))
	for _, id := range ids {
		if seat, ok := s.seats[id]; ok {
			current = append(current, seat)
		}
	}
	if offending := OffendingSeats(ids, current, sessionID); len(offending) > 0 {
		return nil, &HoldMismatchError{SeatIDs: offending}
	}

	now := s.now()
	sold := make([]*entity.Seat, 0, len(current))
	for _, seat := range current {
		seat.Settle(entity.SeatStatusSold, now)
		sold = append(sold, seat.Clone())
	}
	return sold, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, seatIDs []string, status entity.SeatStatus, holder string) ([]*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	updated := []*entity.Seat{}
	for _, id := range utils.UniqueStrings(seatIDs) {
		seat, ok := s.seats[id]
		if !ok {
			continue
		}
		if status == entity.SeatStatusHeld {
			seat.Hold(holder, now)
		} else {
			seat.Settle(status, now)
		}
		updated = append(updated, seat.Clone())
	}
	return updated, nil
}

func (s *MemoryStore) ReleaseExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	released := []string{}
	for _, seat := range s.sortedLocked() {
		if seat.Status == entity.SeatStatusHeld && seat.HeldAt != nil && seat.HeldAt.Before(cutoff) {
			seat.Settle(entity.SeatStatusAvailable, now)
			released = append(released, seat.ID)
		}
	}
	if len(released) > 0 {
		s.log.Debug("Expired holds released", zap.Int("count", len(released)))
	}
	return released, nil
}

func (s *MemoryStore) Create(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) CountHeld(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countHeldLocked(sessionID, ""), nil
}

func (s *MemoryStore) countHeldLocked(sessionID, except string) int {
	count := 0
	for id, seat := range s.seats {
		if id != except && seat.IsHeldBy(sessionID) {
			count++
		}
	}
	return count
}
