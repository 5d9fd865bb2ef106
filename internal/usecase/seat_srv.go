package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-seating/internal/data/entity"
	"event-seating/internal/data/repository"
	"event-seating/internal/dto/request"
	"event-seating/internal/dto/response"
	"event-seating/internal/realtime"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

type SeatService interface {
	// Reads
	ListSeats(ctx context.Context, req *request.ListSeatsRequest) (*response.SeatListResponse, error)
	Snapshot(ctx context.Context) ([]response.SeatResponse, error)

	// Session commands
	CreateSession(ctx context.Context) (*response.SessionResponse, error)
	HoldSeat(ctx context.Context, req *request.HoldSeatRequest) (*response.SeatActionResponse, error)
	ReleaseSeat(ctx context.Context, req *request.ReleaseSeatRequest) (*response.SeatActionResponse, error)
	CompleteReservation(ctx context.Context, req *request.CompleteReservationRequest) (*response.CompleteReservationResponse, error)

	// Administrative
	UpdateSeatStatus(ctx context.Context, req *request.UpdateSeatStatusRequest) (*response.SeatStatusResponse, error)
	CleanupExpired(ctx context.Context) (*response.CleanupResponse, error)
}

type seatService struct {
	repo     *repository.Repository
	notifier *notifier
	sweeper  *Sweeper
	maxHeld  int
	log      *zap.Logger
}

func NewSeatService(repo *repository.Repository, n *notifier, sweeper *Sweeper, config utils.HoldConfig, log *zap.Logger) SeatService {
	return &seatService{
		repo:     repo,
		notifier: n,
		sweeper:  sweeper,
		maxHeld:  config.MaxPerSession,
		log:      log.With(zap.String("service", "seat")),
	}
}

func (s *seatService) ListSeats(ctx context.Context, req *request.ListSeatsRequest) (*response.SeatListResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("List seats validation failed", zap.Error(err))
		return nil, err
	}

	var cached response.SeatListResponse
	gen, hit := s.notifier.cache.GetPage(ctx, req.Page, req.Limit, &cached)
	if hit {
		return &cached, nil
	}

	seats, total, err := s.repo.Seat.List(ctx, req.Limit, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}

	resp := &response.SeatListResponse{
		Data:  response.SeatsToResponse(seats),
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
	}
	s.notifier.cache.SetPage(ctx, gen, req.Page, req.Limit, resp)

	return resp, nil
}

func (s *seatService) Snapshot(ctx context.Context) ([]response.SeatResponse, error) {
	seats, err := s.repo.Seat.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seat snapshot: %w", err)
	}
	return response.SeatsToResponse(seats), nil
}

func (s *seatService) CreateSession(ctx context.Context) (*response.SessionResponse, error) {
	session := &entity.Session{
		ID:        utils.GenerateSessionID(),
		CreatedAt: time.Now(),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.log.Error("Failed to create session", zap.Error(err))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("Session created", zap.String("session_id", session.ID))

	return &response.SessionResponse{
		Success:   true,
		SessionID: session.ID,
		Message:   "Session created successfully",
	}, nil
}

func (s *seatService) HoldSeat(ctx context.Context, req *request.HoldSeatRequest) (*response.SeatActionResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Hold seat validation failed", zap.Error(err))
		return nil, err
	}

	if err := s.checkCap(ctx, req.SessionID, req.SeatID); err != nil {
		return nil, err
	}

	seat, err := s.repo.Seat.TryHold(ctx, req.SeatID, req.SessionID, s.maxHeld)
	if err != nil {
		return nil, s.holdError(req.SeatID, req.SessionID, err)
	}

	s.log.Info("Seat held",
		zap.String("seat_id", seat.ID),
		zap.String("session_id", req.SessionID),
	)
	s.notifier.notify(ctx, realtime.SeatHeld(seat.ID, req.SessionID))

	return &response.SeatActionResponse{
		Success: true,
		Seat:    response.SeatToResponse(seat),
		Message: "Seat held successfully",
	}, nil
}

// checkCap fails fast before touching the seat row. A re-hold of a seat the
// session already owns never counts against the cap. The ledger enforces the
// cap again atomically.
func (s *seatService) checkCap(ctx context.Context, sessionID, seatID string) error {
	if s.maxHeld <= 0 {
		return nil
	}

	held, err := s.repo.Session.CountHeld(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("count held seats: %w", err)
	}
	if held < s.maxHeld {
		return nil
	}

	seats, err := s.repo.Seat.FindByIDs(ctx, []string{seatID})
	if err != nil {
		return fmt.Errorf("find seat %s: %w", seatID, err)
	}
	if len(seats) == 1 && seats[0].IsHeldBy(sessionID) {
		return nil
	}

	s.log.Warn("Hold cap reached",
		zap.String("session_id", sessionID),
		zap.Int("held", held),
		zap.Int("max", s.maxHeld),
	)
	return s.capError()
}

func (s *seatService) capError() error {
	return fmt.Errorf("%w: maximum %d seats can be held per session", repository.ErrCapExceeded, s.maxHeld)
}

func (s *seatService) holdError(seatID, sessionID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrCapExceeded):
		return s.capError()
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrConflict):
		s.log.Warn("Hold rejected",
			zap.String("seat_id", seatID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return fmt.Errorf("seat %s: %w", seatID, err)
	default:
		return fmt.Errorf("hold seat %s: %w", seatID, err)
	}
}

func (s *seatService) ReleaseSeat(ctx context.Context, req *request.ReleaseSeatRequest) (*response.SeatActionResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Release seat validation failed", zap.Error(err))
		return nil, err
	}

	seat, err := s.repo.Seat.Release(ctx, req.SeatID, req.SessionID)
	if err != nil {
		s.log.Warn("Release rejected",
			zap.String("seat_id", req.SeatID),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("seat %s: %w", req.SeatID, err)
	}

	s.log.Info("Seat released",
		zap.String("seat_id", seat.ID),
		zap.String("session_id", req.SessionID),
	)
	s.notifier.notify(ctx, realtime.SeatReleased(seat.ID, req.SessionID))

	return &response.SeatActionResponse{
		Success: true,
		Seat:    response.SeatToResponse(seat),
		Message: "Seat released successfully",
	}, nil
}

func (s *seatService) CompleteReservation(ctx context.Context, req *request.CompleteReservationRequest) (*response.CompleteReservationResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Complete reservation validation failed", zap.Error(err))
		return nil, err
	}

	ids := utils.UniqueStrings(req.SeatIDs)
	if len(ids) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"SeatIDs": "This field is required"}}
	}

	current, err := s.repo.Seat.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find seats: %w", err)
	}
	if offending := repository.OffendingSeats(ids, current, req.SessionID); len(offending) > 0 {
		s.log.Warn("Completion rejected",
			zap.String("session_id", req.SessionID),
			zap.Strings("offending", offending),
		)
		return nil, &repository.HoldMismatchError{SeatIDs: offending}
	}

	sold, err := s.repo.Seat.Complete(ctx, ids, req.SessionID)
	if err != nil {
		var mismatch *repository.HoldMismatchError
		if errors.As(err, &mismatch) {
			s.log.Warn("Completion lost a race",
				zap.String("session_id", req.SessionID),
				zap.Strings("offending", mismatch.SeatIDs),
			)
			return nil, err
		}
		return nil, fmt.Errorf("complete reservation: %w", err)
	}

	soldIDs := response.SeatIDs(sold)
	s.log.Info("Reservation completed",
		zap.String("session_id", req.SessionID),
		zap.Strings("seat_ids", soldIDs),
	)
	s.notifier.notify(ctx, realtime.SeatsSold(soldIDs, req.SessionID))

	return &response.CompleteReservationResponse{
		Success:       true,
		ReservedSeats: response.SeatsToResponse(sold),
		Count:         len(sold),
		Message:       "Reservation completed successfully.",
	}, nil
}

func (s *seatService) UpdateSeatStatus(ctx context.Context, req *request.UpdateSeatStatusRequest) (*response.SeatStatusResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Update seat status validation failed", zap.Error(err))
		return nil, err
	}

	status := entity.SeatStatus(req.Status)
	holder := ""
	if status == entity.SeatStatusHeld {
		holder = req.SessionID
	}

	updated, err := s.repo.Seat.SetStatus(ctx, req.Seats, status, holder)
	if err != nil {
		return nil, fmt.Errorf("update seat status: %w", err)
	}

	s.log.Info("Seat status overridden",
		zap.String("status", req.Status),
		zap.Int("requested", len(req.Seats)),
		zap.Int("updated", len(updated)),
	)
	if len(updated) > 0 {
		s.notifier.notify(ctx, realtime.SeatStatusChanged(response.SeatIDs(updated), req.Status))
	}

	return &response.SeatStatusResponse{
		Success: true,
		Updated: len(updated),
		Seats:   response.SeatsToResponse(updated),
	}, nil
}

func (s *seatService) CleanupExpired(ctx context.Context) (*response.CleanupResponse, error) {
	released, err := s.sweeper.sweep(ctx, true)
	if err != nil {
		return nil, err
	}

	return &response.CleanupResponse{
		Success:  true,
		Released: len(released),
		SeatIDs:  released,
		Message:  "Expired seat holds cleaned up successfully",
	}, nil
}
