package entity

import "time"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusHeld      SeatStatus = "held"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusSold      SeatStatus = "sold"
)

// SeatStatuses lists every status an administrator may assign.
var SeatStatuses = []SeatStatus{
	SeatStatusAvailable,
	SeatStatusReserved,
	SeatStatusSold,
	SeatStatusHeld,
}

func (s SeatStatus) Valid() bool {
	for _, status := range SeatStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Seat is one row of the hold ledger. HeldBy and HeldAt are set exactly
// when Status is held.
type Seat struct {
	ID        string     `db:"id"` // e.g. "A-3-12": section-row-column, cosmetic only
	SectionID string     `db:"section_id"`
	RowID     *string    `db:"row_id"`
	Column    int        `db:"col"`
	PriceTier int        `db:"price_tier"`
	Status    SeatStatus `db:"status"`
	HeldBy    *string    `db:"held_by"`
	HeldAt    *time.Time `db:"held_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// IsHeldBy reports whether the seat is currently held by sessionID.
func (s *Seat) IsHeldBy(sessionID string) bool {
	return s.Status == SeatStatusHeld && s.HeldBy != nil && *s.HeldBy == sessionID
}

// Hold moves the seat to held for sessionID at now.
func (s *Seat) Hold(sessionID string, now time.Time) {
	holder := sessionID
	at := now
	s.Status = SeatStatusHeld
	s.HeldBy = &holder
	s.HeldAt = &at
	s.UpdatedAt = now
}

// Settle moves the seat to a non-held status and clears the holder.
func (s *Seat) Settle(status SeatStatus, now time.Time) {
	s.Status = status
	s.HeldBy = nil
	s.HeldAt = nil
	s.UpdatedAt = now
}

// Clone returns a deep copy safe to hand out of a lock.
func (s *Seat) Clone() *Seat {
	c := *s
	if s.RowID != nil {
		row := *s.RowID
		c.RowID = &row
	}
	if s.HeldBy != nil {
		holder := *s.HeldBy
		c.HeldBy = &holder
	}
	if s.HeldAt != nil {
		at := *s.HeldAt
		c.HeldAt = &at
	}
	return &c
}
