package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"event-seating/internal/data/repository"
	"event-seating/internal/dto/request"
	"event-seating/internal/usecase"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

type SeatHandler struct {
	service usecase.SeatService
	log     *zap.Logger
}

func NewSeatHandler(service usecase.SeatService, log *zap.Logger) *SeatHandler {
	return &SeatHandler{
		service: service,
		log:     log.With(zap.String("handler", "seat")),
	}
}

// ListSeats handles GET /api/seats
func (h *SeatHandler) ListSeats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.ListSeatsRequest{
		Page:  utils.ParseInt(query.Get("page"), 1),
		Limit: utils.ParseInt(query.Get("limit"), 20),
	}

	seats, err := h.service.ListSeats(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "list seats")
		return
	}

	utils.ResponseSuccess(w, seats)
}

// UpdateSeatStatus handles PATCH /api/seats/status
func (h *SeatHandler) UpdateSeatStatus(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateSeatStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if sessionID, ok := utils.GetSessionIDFromContext(r.Context()); ok && req.SessionID == "" {
		req.SessionID = sessionID
	}

	resp, err := h.service.UpdateSeatStatus(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "update seat status")
		return
	}

	utils.ResponseSuccess(w, resp)
}

// CreateSession handles POST /api/seats/session
func (h *SeatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "create session")
		return
	}

	utils.ResponseCreated(w, resp)
}

// HoldSeat handles POST /api/seats/hold
func (h *SeatHandler) HoldSeat(w http.ResponseWriter, r *http.Request) {
	var req request.HoldSeatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionFor(r, req.SessionID)

	resp, err := h.service.HoldSeat(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "hold seat")
		return
	}

	utils.ResponseSuccess(w, resp)
}

// ReleaseSeat handles POST /api/seats/release
func (h *SeatHandler) ReleaseSeat(w http.ResponseWriter, r *http.Request) {
	var req request.ReleaseSeatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionFor(r, req.SessionID)

	resp, err := h.service.ReleaseSeat(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "release seat")
		return
	}

	utils.ResponseSuccess(w, resp)
}

// CompleteReservation handles POST /api/seats/complete
func (h *SeatHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	var req request.CompleteReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionFor(r, req.SessionID)

	resp, err := h.service.CompleteReservation(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "complete reservation")
		return
	}

	utils.ResponseSuccess(w, resp)
}

// CleanupExpired handles POST /api/seats/cleanup
func (h *SeatHandler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.CleanupExpired(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "cleanup expired holds")
		return
	}

	utils.ResponseSuccess(w, resp)
}

// sessionFor prefers the x-session-id header over the body field.
func sessionFor(r *http.Request, bodySessionID string) string {
	if sessionID, ok := utils.GetSessionIDFromContext(r.Context()); ok {
		return sessionID
	}
	return bodySessionID
}

// decodeBody treats an empty body as an empty object so validation reports
// the missing fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// handleServiceError maps ledger and validation errors to HTTP statuses
func (h *SeatHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var validationErr *usecase.ValidationError
	var mismatch *repository.HoldMismatchError

	switch {
	case errors.As(err, &validationErr):
		h.log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.As(err, &mismatch):
		h.log.Warn(operation+" failed - invalid holds",
			zap.Error(err),
			zap.Strings("seat_ids", mismatch.SeatIDs))
		utils.ResponseBadRequest(w, repository.ErrInvalidHold.Error(), map[string][]string{"seatIds": mismatch.SeatIDs})

	case errors.Is(err, repository.ErrCapExceeded):
		h.log.Warn(operation+" failed - hold cap reached", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, repository.ErrConflict):
		h.log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, repository.ErrForbidden):
		h.log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, repository.ErrNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
