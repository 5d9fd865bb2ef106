package request

import "event-seating/pkg/utils"

// ListSeatsRequest pages through the seat map.
type ListSeatsRequest struct {
	Page  int `json:"page" validate:"min=1"`
	Limit int `json:"limit" validate:"min=1,max=100"`
}

func (p ListSeatsRequest) Offset() int {
	return utils.CalculateOffset(p.Page, p.Limit)
}

type UpdateSeatStatusRequest struct {
	Seats     []string `json:"seats" validate:"required,min=1,dive,required"`
	Status    string   `json:"status" validate:"required,oneof=available reserved sold held"`
	SessionID string   `json:"sessionId" validate:"required_if=Status held"`
}

type HoldSeatRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	SeatID    string `json:"seatId" validate:"required"`
}

type ReleaseSeatRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	SeatID    string `json:"seatId" validate:"required"`
}

type CompleteReservationRequest struct {
	SessionID string   `json:"sessionId" validate:"required"`
	SeatIDs   []string `json:"seatIds" validate:"required,min=1,dive,required"`
}
