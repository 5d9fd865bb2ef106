package response

import (
	"time"

	"event-seating/internal/data/entity"
)

type SeatResponse struct {
	ID        string     `json:"id"`
	SectionID string     `json:"section_id"`
	RowID     *string    `json:"row_id"`
	Column    int        `json:"column"`
	PriceTier int        `json:"price_tier"`
	Status    string     `json:"status"`
	HeldBy    *string    `json:"held_by"`
	HeldAt    *time.Time `json:"held_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type SeatListResponse struct {
	Data  []SeatResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type SeatStatusResponse struct {
	Success bool           `json:"success"`
	Updated int            `json:"updated"`
	Seats   []SeatResponse `json:"seats"`
}

type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type SeatActionResponse struct {
	Success bool         `json:"success"`
	Seat    SeatResponse `json:"seat"`
	Message string       `json:"message"`
}

type CompleteReservationResponse struct {
	Success       bool           `json:"success"`
	ReservedSeats []SeatResponse `json:"reservedSeats"`
	Count         int            `json:"count"`
	Message       string         `json:"message"`
}

type CleanupResponse struct {
	Success  bool     `json:"success"`
	Released int      `json:"released"`
	SeatIDs  []string `json:"seatIds"`
	Message  string   `json:"message"`
}

// Helper converter
func SeatToResponse(seat *entity.Seat) SeatResponse {
	return SeatResponse{
		ID:        seat.ID,
		SectionID: seat.SectionID,
		RowID:     seat.RowID,
		Column:    seat.Column,
		PriceTier: seat.PriceTier,
		Status:    string(seat.Status),
		HeldBy:    seat.HeldBy,
		HeldAt:    seat.HeldAt,
		CreatedAt: seat.CreatedAt,
		UpdatedAt: seat.UpdatedAt,
	}
}

func SeatsToResponse(seats []*entity.Seat) []SeatResponse {
	out := make([]SeatResponse, 0, len(seats))
	for _, seat := range seats {
		out = append(out, SeatToResponse(seat))
	}
	return out
}

// SeatIDs returns the IDs of seats in order.
func SeatIDs(seats []*entity.Seat) []string {
	ids := make([]string, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}
	return ids
}
