package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a targeted seat row does not exist.
var ErrNotFound = errors.New("seat not found")

// ErrConflict is returned when a seat is held, reserved or sold by
// someone else. Handlers translate it into 409.
var ErrConflict = errors.New("seat is not available")

// ErrForbidden is returned when a session releases a seat it does not hold.
var ErrForbidden = errors.New("seat is not held by this session")

// ErrCapExceeded is returned when a hold would take a session over its limit.
var ErrCapExceeded = errors.New("hold limit reached for this session")

// ErrInvalidHold is the sentinel matched by HoldMismatchError.
var ErrInvalidHold = errors.New("some seats are not held by this session or already booked")

// HoldMismatchError lists the seats that failed the held-by-session
// precondition of a completion.
type HoldMismatchError struct {
	SeatIDs []string
}

func (e *HoldMismatchError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidHold.Error(), strings.Join(e.SeatIDs, ", "))
}

func (e *HoldMismatchError) Is(target error) bool {
	return target == ErrInvalidHold
}
